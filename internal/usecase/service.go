package usecase

import (
	"salon-booking/internal/data/repository"

	"go.uber.org/zap"
)

// Service mengumpulkan semua usecase service.
type Service struct {
	Availability AvailabilityService
	Booking      BookingService
	Payment      PaymentService
	Session      SessionService
}

func NewService(repo *repository.Repository, gateway PaymentGateway, log *zap.Logger) *Service {
	return &Service{
		Availability: NewAvailabilityService(repo, log),
		Booking:      NewBookingService(repo, log),
		Payment:      NewPaymentService(repo, gateway, log),
		Session:      NewSessionService(repo, log),
	}
}
