package entity

import (
	"github.com/google/uuid"
)

type StoreService struct {
	Base
	StoreID         uuid.UUID `db:"store_id"`
	Name            string    `db:"name"`
	DurationMinutes int       `db:"duration_minutes"`
	Price           float64   `db:"price"`
	IsActive        bool      `db:"is_active"`
}
