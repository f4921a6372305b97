package repository

import (
	"salon-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User         UserRepository
	Session      SessionRepository
	Store        StoreRepository
	StoreService StoreServiceRepository
	Employee     EmployeeRepository
	Availability AvailabilityRepository
	Booking      BookingRepository
	PaymentEvent PaymentEventRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(db, log),
		Session:      NewSessionRepository(db, log),
		Store:        NewStoreRepository(db, log),
		StoreService: NewStoreServiceRepository(db, log),
		Employee:     NewEmployeeRepository(db, log),
		Availability: NewAvailabilityRepository(db, log),
		Booking:      NewBookingRepository(db, log),
		PaymentEvent: NewPaymentEventRepository(db, log),
	}
}
