package response

import (
	"time"

	"salon-booking/internal/data/entity"
)

type PaymentOrderResponse struct {
	OrderID   string  `json:"order_id"`
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Receipt   string  `json:"receipt"`
}

type PaymentEventResponse struct {
	EventID   string                  `json:"event_id"`
	Kind      entity.PaymentEventKind `json:"kind"`
	Amount    float64                 `json:"amount"`
	Source    string                  `json:"source"`
	CreatedAt time.Time               `json:"created_at"`
}

// Helper converter
func PaymentEventToResponse(event *entity.PaymentEvent) PaymentEventResponse {
	return PaymentEventResponse{
		EventID:   event.EventID,
		Kind:      event.Kind,
		Amount:    event.Amount,
		Source:    event.Source,
		CreatedAt: event.CreatedAt,
	}
}
