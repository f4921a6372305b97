package paygate

// Amounts on the wire are in the smallest currency unit (e.g. paise).

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"` // created / authorized / captured / failed
	Method   string `json:"method"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Webhook event names delivered by the gateway.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment *PaymentEnvelope `json:"payment,omitempty"`
	Order   *OrderEnvelope   `json:"order,omitempty"`
	Refund  *RefundEnvelope  `json:"refund,omitempty"`
}

type PaymentEnvelope struct {
	Entity Payment `json:"entity"`
}

type OrderEnvelope struct {
	Entity Order `json:"entity"`
}

type RefundEnvelope struct {
	Entity Refund `json:"entity"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
