package wire

import (
	"salon-booking/internal/adaptor"
	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAvailability(
	r chi.Router,
	availabilityHandler *adaptor.AvailabilityHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/stores/{storeId}/services - Active service catalog for a store
	r.Get("/api/stores/{storeId}/services", availabilityHandler.GetStoreServices)

	// GET /api/stores/{storeId}/slots - Available slots for a store+service+date
	r.Get("/api/stores/{storeId}/slots", availabilityHandler.GetAvailableSlots)

	// ==================== OWNER ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.RequireRole(entity.RoleOwner, log))

		// PUT /api/stores/{storeId}/availability - Replace weekly schedule
		r.Put("/api/stores/{storeId}/availability", availabilityHandler.ReplaceAvailability)
	})
}
