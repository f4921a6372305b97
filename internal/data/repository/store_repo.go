package repository

import (
	"context"
	"fmt"

	"salon-booking/internal/data/entity"
	"salon-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type StoreRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Store, error)
}

type storeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewStoreRepository(db database.PgxIface, log *zap.Logger) StoreRepository {
	return &storeRepository{
		db:  db,
		log: log.With(zap.String("repository", "store")),
	}
}

func (r *storeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Store, error) {
	query := `
		SELECT id, owner_id, name, address, phone, is_active, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var store entity.Store
	err := r.db.QueryRow(ctx, query, id).Scan(
		&store.ID,
		&store.OwnerID,
		&store.Name,
		&store.Address,
		&store.Phone,
		&store.IsActive,
		&store.CreatedAt,
		&store.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find store by ID",
			zap.Error(err),
			zap.String("store_id", id.String()),
		)
		return nil, fmt.Errorf("find store by ID %s: %w", id.String(), err)
	}

	return &store, nil
}
