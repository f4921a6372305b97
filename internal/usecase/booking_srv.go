package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/internal/dto/request"
	"salon-booking/internal/dto/response"
	"salon-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Customer endpoints
	CreateBooking(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// Owner endpoints
	GetStoreBookings(ctx context.Context, actorID uuid.UUID, actorRole string, storeID string, filter repository.BookingListFilter, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	UpdateBookingStatus(ctx context.Context, actorID uuid.UUID, actorRole string, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)

	// Shared
	GetBookingByID(ctx context.Context, actorID uuid.UUID, actorRole string, bookingID string) (*response.BookingDetailResponse, error)
	GetBookingByOrderID(ctx context.Context, actorID uuid.UUID, actorRole string, orderID string) (*response.BookingDetailResponse, error)
}

type bookingService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewBookingService(repo *repository.Repository, log *zap.Logger) BookingService {
	return &bookingService{
		repo: repo,
		log:  log.With(zap.String("service", "booking")),
		now:  time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store ID %q", ErrValidation, req.StoreID)
	}

	serviceID, err := uuid.Parse(req.StoreServiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store service ID %q", ErrValidation, req.StoreServiceID)
	}

	startMinutes, err := utils.TimeToMinutes(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %v", ErrValidation, err)
	}

	bookingDate, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking date %q", ErrValidation, req.BookingDate)
	}

	// Booking must start in the future
	startAt := bookingDate.Add(time.Duration(startMinutes) * time.Minute)
	if !startAt.After(s.now()) {
		return nil, fmt.Errorf("%w: booking date must be future", ErrValidation)
	}

	// Resolve store service; must exist, be active, and belong to the store
	storeService, err := s.repo.StoreService.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get store service: %w", err)
	}
	if storeService == nil || !storeService.IsActive {
		return nil, fmt.Errorf("%w: store service %s", ErrNotFound, req.StoreServiceID)
	}
	if storeService.StoreID != storeID {
		return nil, fmt.Errorf("%w: service %s does not belong to store %s", ErrValidation, req.StoreServiceID, req.StoreID)
	}

	var employeeID *uuid.UUID
	if req.EmployeeID != nil {
		id, err := uuid.Parse(*req.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid employee ID %q", ErrValidation, *req.EmployeeID)
		}

		employee, err := s.repo.Employee.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get employee: %w", err)
		}
		if employee == nil || !employee.IsActive || employee.StoreID != storeID {
			return nil, fmt.Errorf("%w: employee %s", ErrNotFound, *req.EmployeeID)
		}
		employeeID = &id
	}

	endMinutes := startMinutes + storeService.DurationMinutes
	if endMinutes >= utils.MinutesPerDay {
		return nil, fmt.Errorf("%w: booking runs past midnight", ErrValidation)
	}

	totalPrice := storeService.Price
	paidAmount := totalPrice * float64(req.PaymentPercentage) / 100

	paymentStatus := entity.PaymentStatusPartial
	if req.PaymentPercentage == 100 {
		paymentStatus = entity.PaymentStatusFull
	}

	now := s.now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:        utils.GenerateOrderID(),
		CustomerID:     customerID,
		StoreID:        storeID,
		StoreServiceID: serviceID,
		EmployeeID:     employeeID,
		BookingDate:    bookingDate,
		StartTime:      utils.MinutesToTime(startMinutes),
		EndTime:        utils.MinutesToTime(endMinutes),
		TotalPrice:     totalPrice,
		PaidAmount:     paidAmount,
		PaymentStatus:  paymentStatus,
		Status:         entity.BookingStatusPending,
		Notes:          req.Notes,
	}

	// Conflict check and insert run as one atomic unit in the repository
	if err := s.repo.Booking.CreateIfAvailable(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.log.Warn("Booking slot conflict",
				zap.String("store_id", req.StoreID),
				zap.String("date", req.BookingDate),
				zap.String("start_time", booking.StartTime),
			)
			return nil, fmt.Errorf("%w: %s %s-%s", ErrSlotUnavailable, req.BookingDate, booking.StartTime, booking.EndTime)
		}
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("store_id", req.StoreID),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("customer_id", customerID.String()),
		zap.String("date", req.BookingDate),
		zap.String("start_time", booking.StartTime),
		zap.Float64("total_price", totalPrice),
		zap.Float64("paid_amount", paidAmount),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerID)
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err))
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = response.BookingToResponse(booking)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *bookingService) GetStoreBookings(ctx context.Context, actorID uuid.UUID, actorRole string, storeIDStr string, filter repository.BookingListFilter, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	storeID, err := uuid.Parse(storeIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store ID %q", ErrValidation, storeIDStr)
	}

	if err := s.requireStoreOwner(ctx, actorID, actorRole, storeID); err != nil {
		return nil, err
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByStoreID(ctx, storeID, filter, limit, offset)
	if err != nil {
		s.log.Error("Failed to get store bookings",
			zap.Error(err),
			zap.String("store_id", storeIDStr),
		)
		return nil, fmt.Errorf("get store bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByStoreID(ctx, storeID, filter)
	if err != nil {
		s.log.Error("Failed to count store bookings", zap.Error(err))
		return nil, fmt.Errorf("count store bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = response.BookingToResponse(booking)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

// allowedTransitions is the forward-only booking status matrix. COMPLETED and
// CANCELLED are terminal.
var allowedTransitions = map[entity.BookingStatus][]entity.BookingStatus{
	entity.BookingStatusPending:   {entity.BookingStatusConfirmed, entity.BookingStatusCancelled},
	entity.BookingStatusConfirmed: {entity.BookingStatusCompleted, entity.BookingStatusCancelled},
}

func transitionAllowed(from, to entity.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *bookingService) UpdateBookingStatus(ctx context.Context, actorID uuid.UUID, actorRole string, bookingIDStr string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(bookingIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, bookingIDStr)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingIDStr)
	}

	if err := s.requireStoreOwner(ctx, actorID, actorRole, booking.StoreID); err != nil {
		return nil, err
	}

	target := entity.BookingStatus(req.Status)
	if !transitionAllowed(booking.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}

	if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, target); err != nil {
		s.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingIDStr),
			zap.String("status", req.Status),
		)
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	s.log.Info("Booking status updated",
		zap.String("booking_id", bookingIDStr),
		zap.String("from", string(booking.Status)),
		zap.String("to", req.Status),
	)

	booking.Status = target
	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, actorID uuid.UUID, actorRole string, bookingIDStr string) (*response.BookingDetailResponse, error) {
	bookingID, err := uuid.Parse(bookingIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, bookingIDStr)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingIDStr)
	}

	return s.bookingDetail(ctx, actorID, actorRole, booking)
}

func (s *bookingService) GetBookingByOrderID(ctx context.Context, actorID uuid.UUID, actorRole string, orderID string) (*response.BookingDetailResponse, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order ID is required", ErrValidation)
	}

	booking, err := s.repo.Booking.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get booking by order ID: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}

	return s.bookingDetail(ctx, actorID, actorRole, booking)
}

// bookingDetail builds the detail response with the payment ledger attached.
// Visible to the customer who booked, the store owner, and admins.
func (s *bookingService) bookingDetail(ctx context.Context, actorID uuid.UUID, actorRole string, booking *entity.Booking) (*response.BookingDetailResponse, error) {
	if booking.CustomerID != actorID {
		if err := s.requireStoreOwner(ctx, actorID, actorRole, booking.StoreID); err != nil {
			return nil, err
		}
	}

	events, err := s.repo.PaymentEvent.FindByBookingID(ctx, booking.ID)
	if err != nil {
		s.log.Error("Failed to load payment events",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("load payment events: %w", err)
	}

	eventResponses := make([]response.PaymentEventResponse, len(events))
	for i, event := range events {
		eventResponses[i] = response.PaymentEventToResponse(event)
	}

	return &response.BookingDetailResponse{
		BookingResponse: response.BookingToResponse(booking),
		PaymentEvents:   eventResponses,
	}, nil
}

// requireStoreOwner checks that the actor owns the store (admins pass).
func (s *bookingService) requireStoreOwner(ctx context.Context, actorID uuid.UUID, actorRole string, storeID uuid.UUID) error {
	if actorRole == string(entity.RoleAdmin) {
		return nil
	}

	store, err := s.repo.Store.FindByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("%w: store %s", ErrNotFound, storeID.String())
	}
	if store.OwnerID != actorID {
		return fmt.Errorf("%w: store %s is not owned by actor", ErrForbidden, storeID.String())
	}

	return nil
}
