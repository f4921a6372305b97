package request

type ProcessPaymentRequest struct {
	BookingID     string  `json:"booking_id" validate:"required,uuid4"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	TransactionID string  `json:"transaction_id" validate:"required"`
}

type CreatePaymentOrderRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

// ConfirmPaymentRequest is the client-confirmed ("pay-first") gateway flow:
// the mobile app posts the captured payment with its signature.
type ConfirmPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}
