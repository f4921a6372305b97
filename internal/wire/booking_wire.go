package wire

import (
	"salon-booking/internal/adaptor"
	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/bookings - Create new booking
		r.Post("/api/bookings", bookingHandler.CreateBooking)

		// GET /api/user/bookings - View booking history (user's own bookings)
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)

		// GET /api/bookings/order/{orderId} - Booking detail by order code
		r.Get("/api/bookings/order/{orderId}", bookingHandler.GetBookingByOrderID)

		// GET /api/bookings/{id} - Booking detail with payment ledger
		r.Get("/api/bookings/{id}", bookingHandler.GetBookingByID)
	})

	// ==================== OWNER ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.RequireRole(entity.RoleOwner, log))

		// GET /api/stores/{storeId}/bookings - Store bookings with filters
		r.Get("/api/stores/{storeId}/bookings", bookingHandler.GetStoreBookings)

		// PATCH /api/bookings/{id}/status - Confirm/complete/cancel a booking
		r.Patch("/api/bookings/{id}/status", bookingHandler.UpdateBookingStatus)
	})
}
