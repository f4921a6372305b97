package paygate

import "errors"

var (
	// ErrGateway is returned when the payment provider rejects a request or
	// is unreachable. The core surfaces it without retrying.
	ErrGateway = errors.New("payment gateway error")

	// ErrOrderNotFound is returned when the gateway does not know the order.
	ErrOrderNotFound = errors.New("gateway order not found")

	// ErrPaymentNotFound is returned when the gateway does not know the payment.
	ErrPaymentNotFound = errors.New("gateway payment not found")
)
