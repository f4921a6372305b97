package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusFull     PaymentStatus = "full"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// BlocksSlot reports whether a booking in this status still occupies
// its time range for availability and conflict checks.
func (s BookingStatus) BlocksSlot() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal reports whether no further status transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	Base
	OrderID        string        `db:"order_id"`
	CustomerID     uuid.UUID     `db:"customer_id"`
	StoreID        uuid.UUID     `db:"store_id"`
	StoreServiceID uuid.UUID     `db:"store_service_id"`
	EmployeeID     *uuid.UUID    `db:"employee_id"`
	BookingDate    time.Time     `db:"booking_date"`
	StartTime      string        `db:"start_time"`
	EndTime        string        `db:"end_time"`
	TotalPrice     float64       `db:"total_price"`
	PaidAmount     float64       `db:"paid_amount"`
	PaymentStatus  PaymentStatus `db:"payment_status"`
	Status         BookingStatus `db:"status"`
	Notes          *string       `db:"notes"`
	GatewayOrderID *string       `db:"gateway_order_id"`
}
