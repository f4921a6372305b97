package repository

import (
	"context"
	"fmt"
	"time"

	"salon-booking/internal/data/entity"
	"salon-booking/pkg/database"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingListFilter holds the optional filters for store booking listings.
type BookingListFilter struct {
	Status   *entity.BookingStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

type BookingRepository interface {
	// CreateIfAvailable runs the conflict check and the insert as one atomic
	// unit. Returns ErrSlotTaken when an active booking overlaps the range.
	CreateIfAvailable(ctx context.Context, booking *entity.Booking) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)
	FindByStoreID(ctx context.Context, storeID uuid.UUID, filter BookingListFilter, limit, offset int) ([]*entity.Booking, error)
	CountByStoreID(ctx context.Context, storeID uuid.UUID, filter BookingListFilter) (int64, error)

	// FindActiveByStoreDate returns PENDING/CONFIRMED bookings blocking slots
	// on one store+date, optionally narrowed to one employee.
	FindActiveByStoreDate(ctx context.Context, storeID uuid.UUID, date time.Time, employeeID *uuid.UUID) ([]*entity.Booking, error)

	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error

	// SetGatewayOrder links a booking to the gateway order created for it.
	SetGatewayOrder(ctx context.Context, bookingID uuid.UUID, gatewayOrderID string) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Booking, error)

	// ApplyPaymentEvent serializes one payment event against a booking:
	// the ledger insert is the dedup gate (ErrDuplicateEvent on replay), the
	// booking row is read under FOR UPDATE, mutated by apply, and written back.
	ApplyPaymentEvent(ctx context.Context, event *entity.PaymentEvent, apply func(*entity.Booking) error) (*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, order_id, customer_id, store_id, store_service_id, employee_id,
	booking_date, start_time, end_time, total_price, paid_amount, payment_status, status, notes,
	gateway_order_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.OrderID,
		&booking.CustomerID,
		&booking.StoreID,
		&booking.StoreServiceID,
		&booking.EmployeeID,
		&booking.BookingDate,
		&booking.StartTime,
		&booking.EndTime,
		&booking.TotalPrice,
		&booking.PaidAmount,
		&booking.PaymentStatus,
		&booking.Status,
		&booking.Notes,
		&booking.GatewayOrderID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) CreateIfAvailable(ctx context.Context, booking *entity.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent reservations for the same store+date on an
	// advisory lock, so the conflict check below cannot race the insert.
	lockKey := booking.StoreID.String() + ":" + booking.BookingDate.Format("2006-01-02")
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		r.log.Error("Failed to take reservation lock",
			zap.Error(err),
			zap.String("store_id", booking.StoreID.String()),
		)
		return fmt.Errorf("take reservation lock: %w", err)
	}

	// Half-open overlap test: existing.start < new.end AND existing.end > new.start
	conflictQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE store_id = $1
		  AND booking_date = $2
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $4
	`

	var conflicts int
	err = tx.QueryRow(ctx, conflictQuery,
		booking.StoreID,
		booking.BookingDate,
		booking.EndTime,
		booking.StartTime,
	).Scan(&conflicts)
	if err != nil {
		r.log.Error("Failed to check booking conflicts",
			zap.Error(err),
			zap.String("store_id", booking.StoreID.String()),
		)
		return fmt.Errorf("check booking conflicts: %w", err)
	}

	if conflicts > 0 {
		return ErrSlotTaken
	}

	insertQuery := `
		INSERT INTO bookings (id, order_id, customer_id, store_id, store_service_id, employee_id,
		                      booking_date, start_time, end_time, total_price, paid_amount,
		                      payment_status, status, notes, gateway_order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = tx.Exec(ctx, insertQuery,
		booking.ID,
		booking.OrderID,
		booking.CustomerID,
		booking.StoreID,
		booking.StoreServiceID,
		booking.EmployeeID,
		booking.BookingDate,
		booking.StartTime,
		booking.EndTime,
		booking.TotalPrice,
		booking.PaidAmount,
		booking.PaymentStatus,
		booking.Status,
		booking.Notes,
		booking.GatewayOrderID,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create booking tx: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE order_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, orderID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by order ID",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("find booking by order ID %s: %w", orderID, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("find bookings by customer ID %s: %w", customerID.String(), err)
	}
	defer rows.Close()

	return collectBookings(rows, r.log)
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, customerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings by customer ID %s: %w", customerID.String(), err)
	}

	return count, nil
}

// storeBookingsBuilder applies the optional status/date filters shared by the
// list and count queries.
func storeBookingsBuilder(base sq.SelectBuilder, storeID uuid.UUID, filter BookingListFilter) sq.SelectBuilder {
	builder := base.Where(sq.Eq{"store_id": storeID})

	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		builder = builder.Where(sq.GtOrEq{"booking_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		builder = builder.Where(sq.LtOrEq{"booking_date": *filter.DateTo})
	}

	return builder
}

func (r *bookingRepository) FindByStoreID(ctx context.Context, storeID uuid.UUID, filter BookingListFilter, limit, offset int) ([]*entity.Booking, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	builder := storeBookingsBuilder(psql.Select(bookingColumns).From("bookings"), storeID, filter).
		OrderBy("booking_date DESC", "start_time DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build store bookings query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find bookings by store ID",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
		)
		return nil, fmt.Errorf("find bookings by store ID %s: %w", storeID.String(), err)
	}
	defer rows.Close()

	return collectBookings(rows, r.log)
}

func (r *bookingRepository) CountByStoreID(ctx context.Context, storeID uuid.UUID, filter BookingListFilter) (int64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	query, args, err := storeBookingsBuilder(psql.Select("COUNT(*)").From("bookings"), storeID, filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build store bookings count query: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by store ID",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
		)
		return 0, fmt.Errorf("count bookings by store ID %s: %w", storeID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindActiveByStoreDate(ctx context.Context, storeID uuid.UUID, date time.Time, employeeID *uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE store_id = $1
		  AND booking_date = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_time
	`
	args := []any{storeID, date}

	if employeeID != nil {
		query = `
			SELECT ` + bookingColumns + `
			FROM bookings
			WHERE store_id = $1
			  AND booking_date = $2
			  AND status IN ('pending', 'confirmed')
			  AND (employee_id = $3 OR employee_id IS NULL)
			ORDER BY start_time
		`
		args = append(args, *employeeID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find active bookings",
			zap.Error(err),
			zap.String("store_id", storeID.String()),
			zap.String("date", date.Format("2006-01-02")),
		)
		return nil, fmt.Errorf("find active bookings for store %s: %w", storeID.String(), err)
	}
	defer rows.Close()

	return collectBookings(rows, r.log)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, bookingID, status)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", bookingID.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	return nil
}

func (r *bookingRepository) SetGatewayOrder(ctx context.Context, bookingID uuid.UUID, gatewayOrderID string) error {
	query := `UPDATE bookings SET gateway_order_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, bookingID, gatewayOrderID)
	if err != nil {
		r.log.Error("Failed to set gateway order",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return fmt.Errorf("set gateway order for booking %s: %w", bookingID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	return nil
}

func (r *bookingRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE gateway_order_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, gatewayOrderID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by gateway order ID",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil, fmt.Errorf("find booking by gateway order ID %s: %w", gatewayOrderID, err)
	}

	return booking, nil
}

func (r *bookingRepository) ApplyPaymentEvent(ctx context.Context, event *entity.PaymentEvent, apply func(*entity.Booking) error) (*entity.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin apply payment event tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Dedup gate: unique constraint on event_id. Zero rows inserted means the
	// same gateway event was already applied.
	insertEvent := `
		INSERT INTO payment_events (id, event_id, booking_id, kind, amount, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := tx.Exec(ctx, insertEvent,
		uuid.New(),
		event.EventID,
		event.BookingID,
		event.Kind,
		event.Amount,
		event.Source,
	)
	if err != nil {
		r.log.Error("Failed to record payment event",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.String("booking_id", event.BookingID.String()),
		)
		return nil, fmt.Errorf("record payment event %s: %w", event.EventID, err)
	}

	if result.RowsAffected() == 0 {
		return nil, ErrDuplicateEvent
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(tx.QueryRow(ctx, query, event.BookingID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("lock booking %s: booking not found", event.BookingID.String())
	}
	if err != nil {
		r.log.Error("Failed to lock booking for payment event",
			zap.Error(err),
			zap.String("booking_id", event.BookingID.String()),
		)
		return nil, fmt.Errorf("lock booking %s: %w", event.BookingID.String(), err)
	}

	if err := apply(booking); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE bookings
		SET paid_amount = $2, payment_status = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err = tx.Exec(ctx, updateQuery,
		booking.ID,
		booking.PaidAmount,
		booking.PaymentStatus,
		booking.Status,
	)
	if err != nil {
		r.log.Error("Failed to update booking payment state",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("update booking %s payment state: %w", booking.ID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit apply payment event tx: %w", err)
	}

	return booking, nil
}

func collectBookings(rows pgx.Rows, log *zap.Logger) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}
