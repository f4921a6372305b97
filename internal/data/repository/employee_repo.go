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

type EmployeeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Employee, error)
}

type employeeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEmployeeRepository(db database.PgxIface, log *zap.Logger) EmployeeRepository {
	return &employeeRepository{
		db:  db,
		log: log.With(zap.String("repository", "employee")),
	}
}

func (r *employeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Employee, error) {
	query := `
		SELECT id, store_id, name, phone, is_active, created_at, updated_at
		FROM employees
		WHERE id = $1
	`

	var employee entity.Employee
	err := r.db.QueryRow(ctx, query, id).Scan(
		&employee.ID,
		&employee.StoreID,
		&employee.Name,
		&employee.Phone,
		&employee.IsActive,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find employee by ID",
			zap.Error(err),
			zap.String("employee_id", id.String()),
		)
		return nil, fmt.Errorf("find employee by ID %s: %w", id.String(), err)
	}

	return &employee, nil
}
