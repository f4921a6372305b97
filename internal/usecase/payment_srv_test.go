package usecase

import (
	"context"
	"testing"
	"time"

	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/internal/dto/request"
	"salon-booking/internal/integrations/paygate"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type paymentFixture struct {
	repo       *repository.Repository
	mem        *memStore
	gateway    *fakeGateway
	service    PaymentService
	customerID uuid.UUID
	ownerID    uuid.UUID
	storeID    uuid.UUID
	bookingID  uuid.UUID
}

// newPaymentFixture seeds one half-paid pending booking: total 100, paid 50.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	repo, mem := newFakeRepository()
	gateway := newFakeGateway()

	customerID := uuid.New()
	ownerID := uuid.New()
	storeID := uuid.New()
	bookingID := uuid.New()

	mem.stores[storeID] = &entity.Store{
		Base:     entity.Base{ID: storeID},
		OwnerID:  ownerID,
		IsActive: true,
	}

	date, _ := time.Parse("2006-01-02", testMonday)
	mem.bookings[bookingID] = &entity.Booking{
		Base:          entity.Base{ID: bookingID},
		OrderID:       "SLN-20260301-120000-0001",
		CustomerID:    customerID,
		StoreID:       storeID,
		BookingDate:   date,
		StartTime:     "10:00",
		EndTime:       "11:00",
		TotalPrice:    100,
		PaidAmount:    50,
		PaymentStatus: entity.PaymentStatusPartial,
		Status:        entity.BookingStatusPending,
	}
	mem.bookingOrder = append(mem.bookingOrder, bookingID)

	return &paymentFixture{
		repo:       repo,
		mem:        mem,
		gateway:    gateway,
		service:    NewPaymentService(repo, gateway, zap.NewNop()),
		customerID: customerID,
		ownerID:    ownerID,
		storeID:    storeID,
		bookingID:  bookingID,
	}
}

func (f *paymentFixture) booking(t *testing.T) *entity.Booking {
	t.Helper()
	booking, err := f.repo.Booking.FindByID(context.Background(), f.bookingID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}

func (f *paymentFixture) captureWebhook(amountSubunits int64, paymentID string) *paygate.WebhookEvent {
	return &paygate.WebhookEvent{
		Event: paygate.EventPaymentCaptured,
		Payload: paygate.WebhookPayload{
			Payment: &paygate.PaymentEnvelope{
				Entity: paygate.Payment{
					ID:      paymentID,
					Amount:  amountSubunits,
					Status:  "captured",
				},
			},
			Order: &paygate.OrderEnvelope{
				Entity: paygate.Order{
					ID:      "order_wh",
					Receipt: "booking_" + f.bookingID.String(),
				},
			},
		},
	}
}

func TestProcessPayment_SettlesBooking(t *testing.T) {
	f := newPaymentFixture(t)

	resp, err := f.service.ProcessPayment(context.Background(), f.customerID, string(entity.RoleCustomer),
		&request.ProcessPaymentRequest{
			BookingID:     f.bookingID.String(),
			Amount:        50,
			TransactionID: "txn_1",
		})
	require.NoError(t, err)

	assert.Equal(t, float64(100), resp.PaidAmount)
	assert.Equal(t, entity.PaymentStatusFull, resp.PaymentStatus)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
}

func TestProcessPayment_DuplicateTransactionCountsOnce(t *testing.T) {
	f := newPaymentFixture(t)

	req := &request.ProcessPaymentRequest{
		BookingID:     f.bookingID.String(),
		Amount:        25,
		TransactionID: "txn_dup",
	}

	first, err := f.service.ProcessPayment(context.Background(), f.customerID, string(entity.RoleCustomer), req)
	require.NoError(t, err)

	second, err := f.service.ProcessPayment(context.Background(), f.customerID, string(entity.RoleCustomer), req)
	require.NoError(t, err)

	assert.Equal(t, first.PaidAmount, second.PaidAmount)
	assert.Equal(t, float64(75), f.booking(t).PaidAmount)

	events, err := f.repo.PaymentEvent.FindByBookingID(context.Background(), f.bookingID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestApplyPaymentEvent_UnknownBookingErrors(t *testing.T) {
	f := newPaymentFixture(t)

	// The ledger row must never land for a booking that does not exist; the
	// repo reports an error instead of a nil booking.
	booking, err := f.repo.Booking.ApplyPaymentEvent(context.Background(), &entity.PaymentEvent{
		EventID:   "txn_orphan",
		BookingID: uuid.New(),
		Kind:      entity.PaymentEventCaptured,
		Amount:    10,
		Source:    "api",
	}, func(b *entity.Booking) error { return nil })

	require.Error(t, err)
	assert.Nil(t, booking)
}

func TestProcessPayment_OverpaymentRejected(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.ProcessPayment(context.Background(), f.customerID, string(entity.RoleCustomer),
		&request.ProcessPaymentRequest{
			BookingID:     f.bookingID.String(),
			Amount:        60, // outstanding is 50
			TransactionID: "txn_over",
		})
	assert.ErrorIs(t, err, ErrValidation)

	// Rejected payment leaves no ledger trace
	assert.Equal(t, float64(50), f.booking(t).PaidAmount)
	events, err := f.repo.PaymentEvent.FindByBookingID(context.Background(), f.bookingID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestProcessPayment_CancelledBookingRejected(t *testing.T) {
	f := newPaymentFixture(t)
	f.mem.bookings[f.bookingID].Status = entity.BookingStatusCancelled

	_, err := f.service.ProcessPayment(context.Background(), f.customerID, string(entity.RoleCustomer),
		&request.ProcessPaymentRequest{
			BookingID:     f.bookingID.String(),
			Amount:        50,
			TransactionID: "txn_cancelled",
		})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessPayment_StrangerForbidden(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.ProcessPayment(context.Background(), uuid.New(), string(entity.RoleCustomer),
		&request.ProcessPaymentRequest{
			BookingID:     f.bookingID.String(),
			Amount:        50,
			TransactionID: "txn_stranger",
		})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWebhookCapture_AppliedOnce(t *testing.T) {
	f := newPaymentFixture(t)

	event := f.captureWebhook(5000, "pay_1")

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))

	booking := f.booking(t)
	assert.Equal(t, float64(100), booking.PaidAmount)
	assert.Equal(t, entity.PaymentStatusFull, booking.PaymentStatus)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)

	// Webhook retry is acknowledged without double counting
	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, float64(100), f.booking(t).PaidAmount)
}

func TestWebhookCapture_MalformedReceipt(t *testing.T) {
	f := newPaymentFixture(t)

	event := f.captureWebhook(5000, "pay_bad")
	event.Payload.Order.Entity.Receipt = "invoice-12345"

	err := f.service.HandleWebhookEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrCorrelation)
}

func TestWebhookCapture_FallsBackToGatewayOrderLink(t *testing.T) {
	f := newPaymentFixture(t)

	require.NoError(t, f.repo.Booking.SetGatewayOrder(context.Background(), f.bookingID, "order_linked"))

	event := f.captureWebhook(5000, "pay_linked")
	event.Payload.Order = nil
	event.Payload.Payment.Entity.OrderID = "order_linked"

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, float64(100), f.booking(t).PaidAmount)
}

func TestWebhookFailure_CancelsPendingBooking(t *testing.T) {
	f := newPaymentFixture(t)

	event := f.captureWebhook(0, "pay_failed")
	event.Event = paygate.EventPaymentFailed

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))

	booking := f.booking(t)
	assert.Equal(t, entity.BookingStatusCancelled, booking.Status)
	// Failure never touches money
	assert.Equal(t, float64(50), booking.PaidAmount)
}

func TestWebhookFailure_ConfirmedBookingUntouched(t *testing.T) {
	f := newPaymentFixture(t)
	f.mem.bookings[f.bookingID].Status = entity.BookingStatusConfirmed

	event := f.captureWebhook(0, "pay_failed_late")
	event.Event = paygate.EventPaymentFailed

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, entity.BookingStatusConfirmed, f.booking(t).Status)
}

func TestWebhookRefund_PartialKeepsConfirmation(t *testing.T) {
	f := newPaymentFixture(t)

	// Capture to FULL first, the refund correlates through this ledger entry
	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), f.captureWebhook(5000, "pay_refundable")))
	require.Equal(t, entity.BookingStatusConfirmed, f.booking(t).Status)

	refund := &paygate.WebhookEvent{
		Event: paygate.EventRefundProcessed,
		Payload: paygate.WebhookPayload{
			Refund: &paygate.RefundEnvelope{
				Entity: paygate.Refund{
					ID:        "rfnd_1",
					PaymentID: "pay_refundable",
					Amount:    3000,
				},
			},
		},
	}

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), refund))

	booking := f.booking(t)
	assert.Equal(t, float64(70), booking.PaidAmount)
	assert.Equal(t, entity.PaymentStatusPartial, booking.PaymentStatus)
	// Refund never auto-cancels
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)

	// Replayed refund changes nothing
	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), refund))
	assert.Equal(t, float64(70), f.booking(t).PaidAmount)
}

func TestWebhookRefund_FullDrainFloorsAtZero(t *testing.T) {
	f := newPaymentFixture(t)

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), f.captureWebhook(5000, "pay_drain")))

	refund := &paygate.WebhookEvent{
		Event: paygate.EventRefundProcessed,
		Payload: paygate.WebhookPayload{
			Refund: &paygate.RefundEnvelope{
				Entity: paygate.Refund{
					ID:        "rfnd_big",
					PaymentID: "pay_drain",
					Amount:    99999, // more than ever paid
				},
			},
		},
	}

	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), refund))

	booking := f.booking(t)
	assert.Equal(t, float64(0), booking.PaidAmount)
	assert.Equal(t, entity.PaymentStatusPending, booking.PaymentStatus)
}

func TestWebhookRefund_UnknownPayment(t *testing.T) {
	f := newPaymentFixture(t)

	refund := &paygate.WebhookEvent{
		Event: paygate.EventRefundProcessed,
		Payload: paygate.WebhookPayload{
			Refund: &paygate.RefundEnvelope{
				Entity: paygate.Refund{
					ID:        "rfnd_orphan",
					PaymentID: "pay_never_seen",
					Amount:    1000,
				},
			},
		},
	}

	err := f.service.HandleWebhookEvent(context.Background(), refund)
	assert.ErrorIs(t, err, ErrCorrelation)
}

func TestWebhookRefundFailed_Acknowledged(t *testing.T) {
	f := newPaymentFixture(t)

	event := &paygate.WebhookEvent{
		Event: paygate.EventRefundFailed,
		Payload: paygate.WebhookPayload{
			Refund: &paygate.RefundEnvelope{
				Entity: paygate.Refund{ID: "rfnd_failed", PaymentID: "pay_x"},
			},
		},
	}

	assert.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, float64(50), f.booking(t).PaidAmount)
}

func TestCreatePaymentOrder(t *testing.T) {
	f := newPaymentFixture(t)

	resp, err := f.service.CreatePaymentOrder(context.Background(), f.customerID,
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	require.NoError(t, err)

	assert.Equal(t, float64(50), resp.Amount)
	assert.Equal(t, "booking_"+f.bookingID.String(), resp.Receipt)

	// Gateway got the amount in subunits
	order := f.gateway.orders[resp.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, int64(5000), order.Amount)

	// Order is linked back for webhook correlation
	booking := f.booking(t)
	require.NotNil(t, booking.GatewayOrderID)
	assert.Equal(t, resp.OrderID, *booking.GatewayOrderID)
}

func TestCreatePaymentOrder_NothingOutstanding(t *testing.T) {
	f := newPaymentFixture(t)
	f.mem.bookings[f.bookingID].PaidAmount = 100
	f.mem.bookings[f.bookingID].PaymentStatus = entity.PaymentStatusFull

	_, err := f.service.CreatePaymentOrder(context.Background(), f.customerID,
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePaymentOrder_NotBookingOwner(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.CreatePaymentOrder(context.Background(), uuid.New(),
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConfirmGatewayPayment(t *testing.T) {
	f := newPaymentFixture(t)

	order, err := f.service.CreatePaymentOrder(context.Background(), f.customerID,
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	require.NoError(t, err)

	f.gateway.payments["pay_confirm"] = &paygate.Payment{
		ID:      "pay_confirm",
		OrderID: order.OrderID,
		Amount:  5000,
		Status:  "captured",
	}

	resp, err := f.service.ConfirmGatewayPayment(context.Background(), f.customerID,
		&request.ConfirmPaymentRequest{
			OrderID:   order.OrderID,
			PaymentID: "pay_confirm",
			Signature: f.gateway.goodSig,
		})
	require.NoError(t, err)

	assert.Equal(t, float64(100), resp.PaidAmount)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
}

func TestConfirmGatewayPayment_BadSignature(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.ConfirmGatewayPayment(context.Background(), f.customerID,
		&request.ConfirmPaymentRequest{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "forged",
		})
	assert.ErrorIs(t, err, ErrSignature)
}

func TestConfirmGatewayPayment_RacesWebhookCleanly(t *testing.T) {
	f := newPaymentFixture(t)

	order, err := f.service.CreatePaymentOrder(context.Background(), f.customerID,
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	require.NoError(t, err)

	f.gateway.payments["pay_race"] = &paygate.Payment{
		ID:      "pay_race",
		OrderID: order.OrderID,
		Amount:  5000,
		Status:  "captured",
	}

	// Webhook lands first
	event := f.captureWebhook(5000, "pay_race")
	require.NoError(t, f.service.HandleWebhookEvent(context.Background(), event))

	// Client confirmation of the same payment is a no-op, not a double count
	resp, err := f.service.ConfirmGatewayPayment(context.Background(), f.customerID,
		&request.ConfirmPaymentRequest{
			OrderID:   order.OrderID,
			PaymentID: "pay_race",
			Signature: f.gateway.goodSig,
		})
	require.NoError(t, err)
	assert.Equal(t, float64(100), resp.PaidAmount)
	assert.Equal(t, float64(100), f.booking(t).PaidAmount)
}

func TestConfirmGatewayPayment_NotCaptured(t *testing.T) {
	f := newPaymentFixture(t)

	order, err := f.service.CreatePaymentOrder(context.Background(), f.customerID,
		&request.CreatePaymentOrderRequest{BookingID: f.bookingID.String()})
	require.NoError(t, err)

	f.gateway.payments["pay_auth"] = &paygate.Payment{
		ID:      "pay_auth",
		OrderID: order.OrderID,
		Amount:  5000,
		Status:  "authorized",
	}

	_, err = f.service.ConfirmGatewayPayment(context.Background(), f.customerID,
		&request.ConfirmPaymentRequest{
			OrderID:   order.OrderID,
			PaymentID: "pay_auth",
			Signature: f.gateway.goodSig,
		})
	assert.ErrorIs(t, err, ErrValidation)
}
