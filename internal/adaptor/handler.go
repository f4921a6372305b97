package adaptor

import (
	"errors"
	"net/http"

	"salon-booking/internal/integrations/paygate"
	"salon-booking/internal/usecase"
	"salon-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Session      *SessionHandler
}

func NewHandler(service *usecase.Service, gateway usecase.PaymentGateway, log *zap.Logger) *Handler {
	return &Handler{
		Availability: NewAvailabilityHandler(service.Availability, log),
		Booking:      NewBookingHandler(service.Booking, log),
		Payment:      NewPaymentHandler(service.Payment, gateway, log),
		Session:      NewSessionHandler(service.Session, log),
	}
}

// handleServiceError maps usecase errors ke HTTP responses. Slot conflicts get
// their own status so clients tahu harus re-fetch availability.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrSlotUnavailable):
		log.Warn(operation+" failed - slot conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidTransition):
		log.Warn(operation+" failed - invalid transition", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrSignature):
		log.Warn(operation+" failed - signature mismatch", zap.Error(err))
		utils.ResponseUnauthorized(w, err.Error())

	case errors.Is(err, usecase.ErrCorrelation):
		log.Warn(operation+" failed - correlation", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, paygate.ErrGateway), errors.Is(err, paygate.ErrPaymentNotFound), errors.Is(err, paygate.ErrOrderNotFound):
		log.Error(operation+" failed - payment gateway", zap.Error(err))
		utils.ResponseBadGateway(w, "Payment gateway error")

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
