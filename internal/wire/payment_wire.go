package wire

import (
	"salon-booking/internal/adaptor"
	"salon-booking/internal/data/repository"
	"salon-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/payments - Record direct payment against a booking
		r.Post("/api/payments", paymentHandler.ProcessPayment)

		// POST /api/payments/order - Open gateway order for outstanding amount
		r.Post("/api/payments/order", paymentHandler.CreatePaymentOrder)

		// POST /api/payments/confirm - Client-confirmed gateway payment
		r.Post("/api/payments/confirm", paymentHandler.ConfirmPayment)
	})

	// ==================== WEBHOOK ====================
	// Public endpoint, authenticated by HMAC signature over the raw body
	r.Post("/api/webhooks/payment", paymentHandler.Webhook)
}
