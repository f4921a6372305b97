package entity

import (
	"github.com/google/uuid"
)

type PaymentEventKind string

const (
	PaymentEventCaptured PaymentEventKind = "captured"
	PaymentEventFailed   PaymentEventKind = "failed"
	PaymentEventRefunded PaymentEventKind = "refunded"
)

// PaymentEvent is one row of the append-only payment ledger. EventID is the
// gateway's payment/refund id and carries a unique constraint; the insert is
// the dedup gate for webhook retries.
type PaymentEvent struct {
	BaseSimple
	EventID   string           `db:"event_id"`
	BookingID uuid.UUID        `db:"booking_id"`
	Kind      PaymentEventKind `db:"kind"`
	Amount    float64          `db:"amount"`
	Source    string           `db:"source"` // "webhook" or "api"
}
