package entity

import (
	"github.com/google/uuid"
)

type Employee struct {
	Base
	StoreID  uuid.UUID `db:"store_id"`
	Name     string    `db:"name"`
	Phone    *string   `db:"phone"`
	IsActive bool      `db:"is_active"`
}
