package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/internal/dto/request"
	"salon-booking/internal/dto/response"
	"salon-booking/internal/integrations/paygate"
	"salon-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway is the slice of the gateway client the payment service needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (*paygate.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*paygate.Payment, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	Currency() string
}

type PaymentService interface {
	// ProcessPayment records a direct (non-gateway) payment against a booking.
	ProcessPayment(ctx context.Context, actorID uuid.UUID, actorRole string, req *request.ProcessPaymentRequest) (*response.BookingResponse, error)

	// CreatePaymentOrder opens a gateway order for a booking's outstanding amount.
	CreatePaymentOrder(ctx context.Context, customerID uuid.UUID, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error)

	// ConfirmGatewayPayment handles the client-confirmed flow: verify the
	// posted signature, fetch the payment from the gateway, apply the capture.
	ConfirmGatewayPayment(ctx context.Context, customerID uuid.UUID, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error)

	// HandleWebhookEvent applies one signature-verified gateway webhook event.
	HandleWebhookEvent(ctx context.Context, event *paygate.WebhookEvent) error
}

type paymentService struct {
	repo    *repository.Repository
	gateway PaymentGateway
	log     *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gateway PaymentGateway, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:    repo,
		gateway: gateway,
		log:     log.With(zap.String("service", "payment")),
	}
}

const (
	eventSourceAPI     = "api"
	eventSourceWebhook = "webhook"

	receiptPrefix = "booking_"
)

func bookingReceipt(bookingID uuid.UUID) string {
	return receiptPrefix + bookingID.String()
}

func parseBookingReceipt(receipt string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(receipt, receiptPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: receipt %q has no booking prefix", ErrCorrelation, receipt)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: receipt %q carries malformed booking id", ErrCorrelation, receipt)
	}

	return id, nil
}

// Gateway amounts travel in the smallest currency unit.
func toSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromSubunits(amount int64) float64 {
	return float64(amount) / 100
}

// applyCapture adds a captured amount, capped at the total price, and moves
// payment/booking status forward. Status transitions are forward-only,
// terminal states stay put.
func applyCapture(booking *entity.Booking, amount float64) {
	booking.PaidAmount = math.Min(booking.PaidAmount+amount, booking.TotalPrice)

	if booking.PaidAmount >= booking.TotalPrice {
		booking.PaymentStatus = entity.PaymentStatusFull
	} else {
		booking.PaymentStatus = entity.PaymentStatusPartial
	}

	if booking.PaymentStatus == entity.PaymentStatusFull && booking.Status == entity.BookingStatusPending {
		booking.Status = entity.BookingStatusConfirmed
	}
}

// applyFailure cancels a booking that never reached a confirmed payment.
// The paid amount is left untouched.
func applyFailure(booking *entity.Booking) {
	if booking.Status == entity.BookingStatusPending {
		booking.Status = entity.BookingStatusCancelled
	}
}

// applyRefund subtracts a refunded amount, flooring at zero, and derives the
// payment status from what remains. Booking status is never reverted here,
// cancellation is an explicit owner action.
func applyRefund(booking *entity.Booking, amount float64) {
	booking.PaidAmount = math.Max(0, booking.PaidAmount-amount)

	switch {
	case booking.PaidAmount >= booking.TotalPrice:
		booking.PaymentStatus = entity.PaymentStatusFull
	case booking.PaidAmount > 0:
		booking.PaymentStatus = entity.PaymentStatusPartial
	default:
		booking.PaymentStatus = entity.PaymentStatusPending
	}
}

func (s *paymentService) ProcessPayment(ctx context.Context, actorID uuid.UUID, actorRole string, req *request.ProcessPaymentRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, req.BookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, req.BookingID)
	}

	if err := s.requireBookingAccess(ctx, actorID, actorRole, booking); err != nil {
		return nil, err
	}

	event := &entity.PaymentEvent{
		EventID:   req.TransactionID,
		BookingID: booking.ID,
		Kind:      entity.PaymentEventCaptured,
		Amount:    req.Amount,
		Source:    eventSourceAPI,
	}

	// The overpayment and cancellation checks run inside the apply callback so
	// they see the row under lock, not the snapshot read above.
	updated, err := s.repo.Booking.ApplyPaymentEvent(ctx, event, func(b *entity.Booking) error {
		if b.Status == entity.BookingStatusCancelled {
			return fmt.Errorf("%w: booking %s is cancelled", ErrValidation, b.ID)
		}
		if outstanding := b.TotalPrice - b.PaidAmount; req.Amount > outstanding {
			return fmt.Errorf("%w: amount %.2f exceeds outstanding %.2f", ErrValidation, req.Amount, outstanding)
		}

		applyCapture(b, req.Amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			return s.duplicateEventResponse(ctx, booking.ID, req.TransactionID)
		}
		return nil, fmt.Errorf("apply payment: %w", err)
	}

	s.log.Info("Direct payment recorded",
		zap.String("booking_id", booking.ID.String()),
		zap.String("transaction_id", req.TransactionID),
		zap.Float64("amount", req.Amount),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *paymentService) CreatePaymentOrder(ctx context.Context, customerID uuid.UUID, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, req.BookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, req.BookingID)
	}
	if booking.CustomerID != customerID {
		return nil, fmt.Errorf("%w: booking %s does not belong to actor", ErrForbidden, req.BookingID)
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: booking %s is cancelled", ErrValidation, req.BookingID)
	}

	outstanding := booking.TotalPrice - booking.PaidAmount
	if outstanding <= 0 {
		return nil, fmt.Errorf("%w: booking %s has no outstanding amount", ErrValidation, req.BookingID)
	}

	receipt := bookingReceipt(booking.ID)
	order, err := s.gateway.CreateOrder(ctx, toSubunits(outstanding), receipt)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	if err := s.repo.Booking.SetGatewayOrder(ctx, booking.ID, order.ID); err != nil {
		s.log.Error("Failed to link gateway order",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("gateway_order_id", order.ID),
		)
		return nil, fmt.Errorf("link gateway order: %w", err)
	}

	s.log.Info("Payment order created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("gateway_order_id", order.ID),
		zap.Float64("amount", outstanding),
	)

	return &response.PaymentOrderResponse{
		OrderID:   order.ID,
		BookingID: booking.ID.String(),
		Amount:    outstanding,
		Currency:  order.Currency,
		Receipt:   receipt,
	}, nil
}

func (s *paymentService) ConfirmGatewayPayment(ctx context.Context, customerID uuid.UUID, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	if !s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		s.log.Warn("Payment confirmation signature mismatch",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, fmt.Errorf("%w: payment %s", ErrSignature, req.PaymentID)
	}

	payment, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	if payment.Status != "captured" {
		return nil, fmt.Errorf("%w: payment %s is %s, not captured", ErrValidation, req.PaymentID, payment.Status)
	}

	booking, err := s.repo.Booking.FindByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("resolve booking by order: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: no booking for gateway order %s", ErrCorrelation, req.OrderID)
	}
	if booking.CustomerID != customerID {
		return nil, fmt.Errorf("%w: booking %s does not belong to actor", ErrForbidden, booking.ID)
	}

	event := &entity.PaymentEvent{
		EventID:   payment.ID,
		BookingID: booking.ID,
		Kind:      entity.PaymentEventCaptured,
		Amount:    fromSubunits(payment.Amount),
		Source:    eventSourceAPI,
	}

	updated, err := s.repo.Booking.ApplyPaymentEvent(ctx, event, func(b *entity.Booking) error {
		applyCapture(b, event.Amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			// Webhook won the race for the same payment, the money is counted.
			return s.duplicateEventResponse(ctx, booking.ID, payment.ID)
		}
		return nil, fmt.Errorf("apply capture: %w", err)
	}

	s.log.Info("Gateway payment confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID),
		zap.Float64("amount", event.Amount),
		zap.String("status", string(updated.Status)),
	)

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *paymentService) HandleWebhookEvent(ctx context.Context, event *paygate.WebhookEvent) error {
	switch event.Event {
	case paygate.EventPaymentCaptured:
		return s.handlePaymentCaptured(ctx, event)
	case paygate.EventPaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	case paygate.EventRefundProcessed:
		return s.handleRefundProcessed(ctx, event)
	case paygate.EventRefundFailed:
		// Nothing to reconcile, money never moved back. Acknowledge so the
		// gateway stops retrying.
		s.log.Warn("Refund failed at gateway", zap.Any("payload", event.Payload))
		return nil
	default:
		s.log.Warn("Unhandled webhook event", zap.String("event", event.Event))
		return nil
	}
}

func (s *paymentService) handlePaymentCaptured(ctx context.Context, event *paygate.WebhookEvent) error {
	if event.Payload.Payment == nil {
		return fmt.Errorf("%w: %s event without payment payload", ErrCorrelation, event.Event)
	}
	payment := event.Payload.Payment.Entity

	booking, err := s.resolveBookingForPayment(ctx, &payment, event.Payload.Order)
	if err != nil {
		return err
	}

	ledgerEvent := &entity.PaymentEvent{
		EventID:   payment.ID,
		BookingID: booking.ID,
		Kind:      entity.PaymentEventCaptured,
		Amount:    fromSubunits(payment.Amount),
		Source:    eventSourceWebhook,
	}

	updated, err := s.repo.Booking.ApplyPaymentEvent(ctx, ledgerEvent, func(b *entity.Booking) error {
		applyCapture(b, ledgerEvent.Amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.log.Info("Duplicate capture event ignored",
				zap.String("event_id", payment.ID),
				zap.String("booking_id", booking.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("apply capture: %w", err)
	}

	s.log.Info("Webhook capture applied",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID),
		zap.Float64("amount", ledgerEvent.Amount),
		zap.String("payment_status", string(updated.PaymentStatus)),
		zap.String("status", string(updated.Status)),
	)

	return nil
}

func (s *paymentService) handlePaymentFailed(ctx context.Context, event *paygate.WebhookEvent) error {
	if event.Payload.Payment == nil {
		return fmt.Errorf("%w: %s event without payment payload", ErrCorrelation, event.Event)
	}
	payment := event.Payload.Payment.Entity

	booking, err := s.resolveBookingForPayment(ctx, &payment, event.Payload.Order)
	if err != nil {
		return err
	}

	ledgerEvent := &entity.PaymentEvent{
		EventID:   payment.ID,
		BookingID: booking.ID,
		Kind:      entity.PaymentEventFailed,
		Amount:    0,
		Source:    eventSourceWebhook,
	}

	updated, err := s.repo.Booking.ApplyPaymentEvent(ctx, ledgerEvent, func(b *entity.Booking) error {
		applyFailure(b)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			return nil
		}
		return fmt.Errorf("apply failure: %w", err)
	}

	s.log.Info("Webhook payment failure applied",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID),
		zap.String("status", string(updated.Status)),
	)

	return nil
}

func (s *paymentService) handleRefundProcessed(ctx context.Context, event *paygate.WebhookEvent) error {
	if event.Payload.Refund == nil {
		return fmt.Errorf("%w: %s event without refund payload", ErrCorrelation, event.Event)
	}
	refund := event.Payload.Refund.Entity

	// A refund only names the payment it reverses. The ledger entry written
	// when that payment was captured points back at the booking.
	capture, err := s.repo.PaymentEvent.FindByEventID(ctx, refund.PaymentID)
	if err != nil {
		return fmt.Errorf("resolve refund origin: %w", err)
	}
	if capture == nil {
		return fmt.Errorf("%w: refund %s references unknown payment %s", ErrCorrelation, refund.ID, refund.PaymentID)
	}

	ledgerEvent := &entity.PaymentEvent{
		EventID:   refund.ID,
		BookingID: capture.BookingID,
		Kind:      entity.PaymentEventRefunded,
		Amount:    fromSubunits(refund.Amount),
		Source:    eventSourceWebhook,
	}

	updated, err := s.repo.Booking.ApplyPaymentEvent(ctx, ledgerEvent, func(b *entity.Booking) error {
		applyRefund(b, ledgerEvent.Amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.log.Info("Duplicate refund event ignored",
				zap.String("event_id", refund.ID),
				zap.String("booking_id", capture.BookingID.String()),
			)
			return nil
		}
		return fmt.Errorf("apply refund: %w", err)
	}

	s.log.Info("Webhook refund applied",
		zap.String("booking_id", capture.BookingID.String()),
		zap.String("refund_id", refund.ID),
		zap.Float64("amount", ledgerEvent.Amount),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)

	return nil
}

// resolveBookingForPayment finds the booking a gateway payment belongs to,
// preferring the order receipt (booking_<id>), falling back to the stored
// gateway order link.
func (s *paymentService) resolveBookingForPayment(ctx context.Context, payment *paygate.Payment, order *paygate.OrderEnvelope) (*entity.Booking, error) {
	if order != nil && order.Entity.Receipt != "" {
		bookingID, err := parseBookingReceipt(order.Entity.Receipt)
		if err != nil {
			return nil, err
		}

		booking, err := s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("get booking: %w", err)
		}
		if booking == nil {
			return nil, fmt.Errorf("%w: receipt %q names unknown booking", ErrCorrelation, order.Entity.Receipt)
		}
		return booking, nil
	}

	if payment.OrderID != "" {
		booking, err := s.repo.Booking.FindByGatewayOrderID(ctx, payment.OrderID)
		if err != nil {
			return nil, fmt.Errorf("resolve booking by order: %w", err)
		}
		if booking == nil {
			return nil, fmt.Errorf("%w: no booking for gateway order %s", ErrCorrelation, payment.OrderID)
		}
		return booking, nil
	}

	return nil, fmt.Errorf("%w: payment %s carries no order reference", ErrCorrelation, payment.ID)
}

// duplicateEventResponse re-reads the booking so a replayed event returns the
// state the first delivery produced.
func (s *paymentService) duplicateEventResponse(ctx context.Context, bookingID uuid.UUID, eventID string) (*response.BookingResponse, error) {
	s.log.Info("Duplicate payment event ignored",
		zap.String("event_id", eventID),
		zap.String("booking_id", bookingID.String()),
	)

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// requireBookingAccess allows the booking's customer, the store owner, and
// admins.
func (s *paymentService) requireBookingAccess(ctx context.Context, actorID uuid.UUID, actorRole string, booking *entity.Booking) error {
	if actorRole == string(entity.RoleAdmin) || booking.CustomerID == actorID {
		return nil
	}

	store, err := s.repo.Store.FindByID(ctx, booking.StoreID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store != nil && store.OwnerID == actorID {
		return nil
	}

	return fmt.Errorf("%w: booking %s is not accessible to actor", ErrForbidden, booking.ID)
}
