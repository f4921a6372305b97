package usecase

import (
	"context"
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

// SlotQuery is the parsed query for available slots.
type SlotQuery struct {
	StoreID        string
	StoreServiceID string
	Date           string // YYYY-MM-DD
	EmployeeID     *string
}

type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, query SlotQuery) (*response.AvailableSlotsResponse, error)

	// GetStoreServices lists a store's active services, the catalog a customer
	// picks from before asking for slots.
	GetStoreServices(ctx context.Context, storeID string) ([]response.StoreServiceResponse, error)

	// ReplaceWindows swaps the weekly schedule for a store (owner only) or one
	// of its employees, wholesale.
	ReplaceWindows(ctx context.Context, actorID uuid.UUID, actorRole string, storeID string, req *request.ReplaceAvailabilityRequest) error
}

type availabilityService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo: repo,
		log:  log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GetAvailableSlots(ctx context.Context, query SlotQuery) (*response.AvailableSlotsResponse, error) {
	storeID, err := uuid.Parse(query.StoreID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store ID %q", ErrValidation, query.StoreID)
	}

	serviceID, err := uuid.Parse(query.StoreServiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store service ID %q", ErrValidation, query.StoreServiceID)
	}

	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, query.Date)
	}

	var employeeID *uuid.UUID
	if query.EmployeeID != nil {
		id, err := uuid.Parse(*query.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid employee ID %q", ErrValidation, *query.EmployeeID)
		}
		employeeID = &id
	}

	// Resolve service (duration comes from here)
	storeService, err := s.repo.StoreService.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get store service: %w", err)
	}
	if storeService == nil || !storeService.IsActive {
		return nil, fmt.Errorf("%w: store service %s", ErrNotFound, query.StoreServiceID)
	}
	if storeService.StoreID != storeID {
		return nil, fmt.Errorf("%w: service %s does not belong to store %s", ErrValidation, query.StoreServiceID, query.StoreID)
	}

	if employeeID != nil {
		employee, err := s.repo.Employee.FindByID(ctx, *employeeID)
		if err != nil {
			return nil, fmt.Errorf("get employee: %w", err)
		}
		if employee == nil || !employee.IsActive || employee.StoreID != storeID {
			return nil, fmt.Errorf("%w: employee %s", ErrNotFound, *query.EmployeeID)
		}
	}

	windows, err := s.repo.Availability.FindActiveWindows(ctx, storeID, employeeID, int(date.Weekday()))
	if err != nil {
		s.log.Error("Failed to load availability windows",
			zap.Error(err),
			zap.String("store_id", query.StoreID),
		)
		return nil, fmt.Errorf("load availability windows: %w", err)
	}

	bookings, err := s.repo.Booking.FindActiveByStoreDate(ctx, storeID, date, employeeID)
	if err != nil {
		s.log.Error("Failed to load bookings for date",
			zap.Error(err),
			zap.String("store_id", query.StoreID),
			zap.String("date", query.Date),
		)
		return nil, fmt.Errorf("load bookings for date: %w", err)
	}

	slots, err := computeSlots(windows, storeService.DurationMinutes, bookings)
	if err != nil {
		return nil, err
	}

	s.log.Info("Available slots computed",
		zap.String("store_id", query.StoreID),
		zap.String("date", query.Date),
		zap.Int("windows", len(windows)),
		zap.Int("slots", len(slots)),
	)

	return &response.AvailableSlotsResponse{
		StoreID:    query.StoreID,
		EmployeeID: query.EmployeeID,
		Date:       query.Date,
		Duration:   storeService.DurationMinutes,
		Slots:      slots,
	}, nil
}

func (s *availabilityService) GetStoreServices(ctx context.Context, storeIDStr string) ([]response.StoreServiceResponse, error) {
	storeID, err := uuid.Parse(storeIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid store ID %q", ErrValidation, storeIDStr)
	}

	store, err := s.repo.Store.FindByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil || !store.IsActive {
		return nil, fmt.Errorf("%w: store %s", ErrNotFound, storeIDStr)
	}

	services, err := s.repo.StoreService.FindByStoreID(ctx, storeID)
	if err != nil {
		s.log.Error("Failed to load store services",
			zap.Error(err),
			zap.String("store_id", storeIDStr),
		)
		return nil, fmt.Errorf("load store services: %w", err)
	}

	out := make([]response.StoreServiceResponse, len(services))
	for i, service := range services {
		out[i] = response.StoreServiceToResponse(service)
	}
	return out, nil
}

// computeSlots expands the working-hour windows into candidate slots of the
// requested duration at a fixed stride and drops those overlapping an active
// booking. Empty result means closed or fully booked, not an error.
func computeSlots(windows []*entity.AvailabilityWindow, durationMinutes int, bookings []*entity.Booking) ([]response.SlotResponse, error) {
	type interval struct{ start, end int }

	busy := make([]interval, 0, len(bookings))
	for _, booking := range bookings {
		if !booking.Status.BlocksSlot() {
			continue
		}
		start, err := utils.TimeToMinutes(booking.StartTime)
		if err != nil {
			return nil, fmt.Errorf("booking %s start time: %w", booking.ID.String(), err)
		}
		end, err := utils.TimeToMinutes(booking.EndTime)
		if err != nil {
			return nil, fmt.Errorf("booking %s end time: %w", booking.ID.String(), err)
		}
		busy = append(busy, interval{start, end})
	}

	slots := make([]response.SlotResponse, 0)
	seen := make(map[int]bool)

	for _, window := range windows {
		windowStart, err := utils.TimeToMinutes(window.StartTime)
		if err != nil {
			return nil, fmt.Errorf("window %s start time: %w", window.ID.String(), err)
		}
		windowEnd, err := utils.TimeToMinutes(window.EndTime)
		if err != nil {
			return nil, fmt.Errorf("window %s end time: %w", window.ID.String(), err)
		}

		for start := windowStart; start+durationMinutes <= windowEnd; start += utils.SlotStrideMinutes {
			end := start + durationMinutes

			// Windows sharing a weekday expand independently; keep the first
			// occurrence of a start time.
			if seen[start] {
				continue
			}

			blocked := false
			for _, b := range busy {
				if utils.IntervalsOverlap(start, end, b.start, b.end) {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}

			seen[start] = true
			slots = append(slots, response.SlotResponse{
				StartTime: utils.MinutesToTime(start),
				EndTime:   utils.MinutesToTime(end),
			})
		}
	}

	return slots, nil
}

func (s *availabilityService) ReplaceWindows(ctx context.Context, actorID uuid.UUID, actorRole string, storeIDStr string, req *request.ReplaceAvailabilityRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Replace windows validation failed", zap.Any("errors", errs))
		return fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	storeID, err := uuid.Parse(storeIDStr)
	if err != nil {
		return fmt.Errorf("%w: invalid store ID %q", ErrValidation, storeIDStr)
	}

	store, err := s.repo.Store.FindByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("%w: store %s", ErrNotFound, storeIDStr)
	}
	if store.OwnerID != actorID && actorRole != string(entity.RoleAdmin) {
		return fmt.Errorf("%w: store %s is not owned by actor", ErrForbidden, storeIDStr)
	}

	var employeeID *uuid.UUID
	if req.EmployeeID != nil {
		id, err := uuid.Parse(*req.EmployeeID)
		if err != nil {
			return fmt.Errorf("%w: invalid employee ID %q", ErrValidation, *req.EmployeeID)
		}

		employee, err := s.repo.Employee.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}
		if employee == nil || employee.StoreID != storeID {
			return fmt.Errorf("%w: employee %s", ErrNotFound, *req.EmployeeID)
		}
		employeeID = &id
	}

	now := time.Now()
	windows := make([]*entity.AvailabilityWindow, len(req.Windows))
	for i, input := range req.Windows {
		start, err := utils.TimeToMinutes(input.StartTime)
		if err != nil {
			return fmt.Errorf("%w: window %d start time: %v", ErrValidation, i, err)
		}
		end, err := utils.TimeToMinutes(input.EndTime)
		if err != nil {
			return fmt.Errorf("%w: window %d end time: %v", ErrValidation, i, err)
		}
		if start >= end {
			return fmt.Errorf("%w: window %d start must be before end", ErrValidation, i)
		}

		windows[i] = &entity.AvailabilityWindow{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: now,
			},
			StoreID:    storeID,
			EmployeeID: employeeID,
			DayOfWeek:  input.DayOfWeek,
			StartTime:  utils.MinutesToTime(start),
			EndTime:    utils.MinutesToTime(end),
			IsActive:   input.IsActive,
		}
	}

	if err := s.repo.Availability.ReplaceWindows(ctx, storeID, employeeID, windows); err != nil {
		s.log.Error("Failed to replace availability windows",
			zap.Error(err),
			zap.String("store_id", storeIDStr),
		)
		return fmt.Errorf("replace availability windows: %w", err)
	}

	s.log.Info("Availability windows replaced",
		zap.String("store_id", storeIDStr),
		zap.Int("windows", len(windows)),
	)

	return nil
}
