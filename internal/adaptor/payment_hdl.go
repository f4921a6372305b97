package adaptor

import (
	"encoding/json"
	"io"
	"net/http"

	"salon-booking/internal/dto/request"
	"salon-booking/internal/integrations/paygate"
	"salon-booking/internal/usecase"
	"salon-booking/pkg/utils"

	"go.uber.org/zap"
)

// webhookSignatureHeader carries the HMAC of the raw request body.
const webhookSignatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	service usecase.PaymentService
	gateway usecase.PaymentGateway
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, gateway usecase.PaymentGateway, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		gateway: gateway,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// ProcessPayment handles POST /api/payments (protected)
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	var req request.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.ProcessPayment(r.Context(), userID, role, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "process payment")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CreatePaymentOrder handles POST /api/payments/order (protected)
func (h *PaymentHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	order, err := h.service.CreatePaymentOrder(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment order")
		return
	}

	utils.ResponseCreated(w, "success", order)
}

// ConfirmPayment handles POST /api/payments/confirm (protected)
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.ConfirmGatewayPayment(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "confirm payment")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Webhook handles POST /api/webhooks/payment (public, signature-verified).
// The signature covers the raw body, so the body is read before decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.ResponseBadRequest(w, "Failed to read request body", nil)
		return
	}

	signature := r.Header.Get(webhookSignatureHeader)
	if !h.gateway.VerifyWebhookSignature(body, signature) {
		h.log.Warn("Webhook signature mismatch", zap.Int("body_size", len(body)))
		utils.ResponseUnauthorized(w, "Invalid webhook signature")
		return
	}

	var event paygate.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.ResponseBadRequest(w, "Invalid webhook payload", nil)
		return
	}

	if err := h.service.HandleWebhookEvent(r.Context(), &event); err != nil {
		handleServiceError(w, h.log, err, "handle webhook event")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
