package repository

import (
	"context"
	"fmt"

	"salon-booking/internal/data/entity"
	"salon-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityRepository interface {
	// FindActiveWindows returns active windows for the store on one weekday.
	// With employeeID set it returns that employee's windows instead of the
	// store-level ones.
	FindActiveWindows(ctx context.Context, storeID uuid.UUID, employeeID *uuid.UUID, dayOfWeek int) ([]*entity.AvailabilityWindow, error)

	// ReplaceWindows swaps the full weekly window set for a store (or a single
	// employee) in one transaction: delete all, then insert the new set.
	ReplaceWindows(ctx context.Context, storeID uuid.UUID, employeeID *uuid.UUID, windows []*entity.AvailabilityWindow) error
}

type availabilityRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAvailabilityRepository(db database.PgxIface, log *zap.Logger) AvailabilityRepository {
	return &availabilityRepository{
		db:  db,
		log: log.With(zap.String("repository", "availability")),
	}
}

func (r *availabilityRepository) FindActiveWindows(ctx context.Context, storeID uuid.UUID, employeeID *uuid.UUID, dayOfWeek int) ([]*entity.AvailabilityWindow, error) {
	query := `
		SELECT id, store_id, employee_id, day_of_week, start_time, end_time, is_active, created_at
		FROM availability_windows
		WHERE store_id = $1
		  AND day_of_week = $2
		  AND is_active = TRUE
		  AND employee_id IS NULL
		ORDER BY start_time
	`
	args := []any{storeID, dayOfWeek}

	if employeeID != nil {
		query = `
			SELECT id, store_id, employee_id, day_of_week, start_time, end_time, is_active, created_at
			FROM availability_windows
			WHERE store_id = $1
			  AND day_of_week = $2
			  AND is_active = TRUE
			  AND employee_id = $3
			ORDER BY start_time
		`
		args = append(args, *employeeID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find availability windows",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
			zap.Int("day_of_week", dayOfWeek),
		)
		return nil, fmt.Errorf("find availability windows for store %s: %w", storeID.String(), err)
	}
	defer rows.Close()

	var windows []*entity.AvailabilityWindow
	for rows.Next() {
		var window entity.AvailabilityWindow
		err := rows.Scan(
			&window.ID,
			&window.StoreID,
			&window.EmployeeID,
			&window.DayOfWeek,
			&window.StartTime,
			&window.EndTime,
			&window.IsActive,
			&window.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan availability window row", zap.Error(err))
			return nil, fmt.Errorf("scan availability window row: %w", err)
		}
		windows = append(windows, &window)
	}

	return windows, nil
}

func (r *availabilityRepository) ReplaceWindows(ctx context.Context, storeID uuid.UUID, employeeID *uuid.UUID, windows []*entity.AvailabilityWindow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace windows tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Delete-all-then-insert, bukan merge
	if employeeID != nil {
		_, err = tx.Exec(ctx, `DELETE FROM availability_windows WHERE store_id = $1 AND employee_id = $2`, storeID, *employeeID)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM availability_windows WHERE store_id = $1 AND employee_id IS NULL`, storeID)
	}
	if err != nil {
		r.log.Error("Failed to delete availability windows",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
		)
		return fmt.Errorf("delete availability windows for store %s: %w", storeID.String(), err)
	}

	insertQuery := `
		INSERT INTO availability_windows (id, store_id, employee_id, day_of_week, start_time, end_time, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, window := range windows {
		_, err := tx.Exec(ctx, insertQuery,
			window.ID,
			window.StoreID,
			window.EmployeeID,
			window.DayOfWeek,
			window.StartTime,
			window.EndTime,
			window.IsActive,
			window.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to insert availability window",
				zap.Error(err),
				zap.String("store_id", storeID.String()),
				zap.Int("day_of_week", window.DayOfWeek),
			)
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace windows tx: %w", err)
	}

	return nil
}
