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

type PaymentEventRepository interface {
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.PaymentEvent, error)

	// FindByEventID resolves a ledger entry by gateway event id. Used to
	// correlate refunds back to the booking of the original capture.
	FindByEventID(ctx context.Context, eventID string) (*entity.PaymentEvent, error)
}

type paymentEventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentEventRepository(db database.PgxIface, log *zap.Logger) PaymentEventRepository {
	return &paymentEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment_event")),
	}
}

func (r *paymentEventRepository) FindByEventID(ctx context.Context, eventID string) (*entity.PaymentEvent, error) {
	query := `
		SELECT id, event_id, booking_id, kind, amount, source, created_at
		FROM payment_events
		WHERE event_id = $1
	`

	var event entity.PaymentEvent
	err := r.db.QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.EventID,
		&event.BookingID,
		&event.Kind,
		&event.Amount,
		&event.Source,
		&event.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment event by event ID",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return nil, fmt.Errorf("find payment event %s: %w", eventID, err)
	}

	return &event, nil
}

func (r *paymentEventRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, event_id, booking_id, kind, amount, source, created_at
		FROM payment_events
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find payment events",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment events for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var events []*entity.PaymentEvent
	for rows.Next() {
		var event entity.PaymentEvent
		err := rows.Scan(
			&event.ID,
			&event.EventID,
			&event.BookingID,
			&event.Kind,
			&event.Amount,
			&event.Source,
			&event.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan payment event row", zap.Error(err))
			return nil, fmt.Errorf("scan payment event row: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}
