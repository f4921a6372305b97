package entity

import (
	"github.com/google/uuid"
)

type Store struct {
	Base
	OwnerID  uuid.UUID `db:"owner_id"`
	Name     string    `db:"name"`
	Address  string    `db:"address"`
	Phone    *string   `db:"phone"`
	IsActive bool      `db:"is_active"`
}
