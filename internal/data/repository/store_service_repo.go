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

type StoreServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.StoreService, error)
	FindByStoreID(ctx context.Context, storeID uuid.UUID) ([]*entity.StoreService, error)
}

type storeServiceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewStoreServiceRepository(db database.PgxIface, log *zap.Logger) StoreServiceRepository {
	return &storeServiceRepository{
		db:  db,
		log: log.With(zap.String("repository", "store_service")),
	}
}

func (r *storeServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.StoreService, error) {
	query := `
		SELECT id, store_id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM store_services
		WHERE id = $1
	`

	var service entity.StoreService
	err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.StoreID,
		&service.Name,
		&service.DurationMinutes,
		&service.Price,
		&service.IsActive,
		&service.CreatedAt,
		&service.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find store service by ID",
			zap.Error(err),
			zap.String("store_service_id", id.String()),
		)
		return nil, fmt.Errorf("find store service by ID %s: %w", id.String(), err)
	}

	return &service, nil
}

func (r *storeServiceRepository) FindByStoreID(ctx context.Context, storeID uuid.UUID) ([]*entity.StoreService, error) {
	query := `
		SELECT id, store_id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM store_services
		WHERE store_id = $1 AND is_active = TRUE
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, storeID)
	if err != nil {
		r.log.Error("Failed to find store services",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
		)
		return nil, fmt.Errorf("find store services by store ID %s: %w", storeID.String(), err)
	}
	defer rows.Close()

	var services []*entity.StoreService
	for rows.Next() {
		var service entity.StoreService
		err := rows.Scan(
			&service.ID,
			&service.StoreID,
			&service.Name,
			&service.DurationMinutes,
			&service.Price,
			&service.IsActive,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan store service row", zap.Error(err))
			return nil, fmt.Errorf("scan store service row: %w", err)
		}
		services = append(services, &service)
	}

	return services, nil
}
