package usecase

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/internal/dto/request"
	"salon-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bookingFixture struct {
	repo       *repository.Repository
	mem        *memStore
	service    BookingService
	ownerID    uuid.UUID
	customerID uuid.UUID
	storeID    uuid.UUID
	serviceID  uuid.UUID
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	repo, mem := newFakeRepository()

	ownerID := uuid.New()
	customerID := uuid.New()
	storeID := uuid.New()
	serviceID := uuid.New()

	mem.stores[storeID] = &entity.Store{
		Base:     entity.Base{ID: storeID},
		OwnerID:  ownerID,
		Name:     "Salon Melati",
		IsActive: true,
	}
	mem.services[serviceID] = &entity.StoreService{
		Base:            entity.Base{ID: serviceID},
		StoreID:         storeID,
		Name:            "Haircut",
		DurationMinutes: 60,
		Price:           100,
		IsActive:        true,
	}

	svc := NewBookingService(repo, zap.NewNop()).(*bookingService)
	// Pin the clock the day before the booking date
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	return &bookingFixture{
		repo:       repo,
		mem:        mem,
		service:    svc,
		ownerID:    ownerID,
		customerID: customerID,
		storeID:    storeID,
		serviceID:  serviceID,
	}
}

func (f *bookingFixture) createRequest() *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		StoreID:           f.storeID.String(),
		StoreServiceID:    f.serviceID.String(),
		BookingDate:       testMonday,
		StartTime:         "10:00",
		PaymentPercentage: 50,
	}
}

func TestCreateBooking_PartialDeposit(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, float64(100), booking.TotalPrice)
	assert.Equal(t, float64(50), booking.PaidAmount)
	assert.Equal(t, entity.PaymentStatusPartial, booking.PaymentStatus)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
	assert.Equal(t, "10:00", booking.StartTime)
	assert.Equal(t, "11:00", booking.EndTime)
	assert.NotEmpty(t, booking.OrderID)
}

func TestCreateBooking_FullPayment(t *testing.T) {
	f := newBookingFixture(t)

	req := f.createRequest()
	req.PaymentPercentage = 100

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, req)
	require.NoError(t, err)

	assert.Equal(t, float64(100), booking.PaidAmount)
	assert.Equal(t, entity.PaymentStatusFull, booking.PaymentStatus)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
}

func TestCreateBooking_InvalidPercentage(t *testing.T) {
	f := newBookingFixture(t)

	req := f.createRequest()
	req.PaymentPercentage = 75

	_, err := f.service.CreateBooking(context.Background(), f.customerID, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateBooking_PastDate(t *testing.T) {
	f := newBookingFixture(t)

	req := f.createRequest()
	req.BookingDate = "2026-02-01"

	_, err := f.service.CreateBooking(context.Background(), f.customerID, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateBooking_UnknownService(t *testing.T) {
	f := newBookingFixture(t)

	req := f.createRequest()
	req.StoreServiceID = uuid.New().String()

	_, err := f.service.CreateBooking(context.Background(), f.customerID, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	// Half-overlapping start on the same store and date
	req := f.createRequest()
	req.StartTime = "10:30"

	_, err = f.service.CreateBooking(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateBooking_BackToBackAllowed(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	// 11:00 starts exactly where the first booking ends
	req := f.createRequest()
	req.StartTime = "11:00"

	_, err = f.service.CreateBooking(context.Background(), uuid.New(), req)
	assert.NoError(t, err)
}

func TestCreateBooking_ConcurrentSameSlot(t *testing.T) {
	f := newBookingFixture(t)

	const attempts = 10

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.CreateBooking(context.Background(), uuid.New(), f.createRequest())
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, ErrSlotUnavailable):
			lost++
		}
	}

	assert.Equal(t, 1, won, "exactly one attempt should win the slot")
	assert.Equal(t, attempts-1, lost)
}

func TestCreateBooking_RandomizedNoOverlaps(t *testing.T) {
	f := newBookingFixture(t)

	rng := rand.New(rand.NewSource(42))

	type accepted struct{ start, end int }
	var kept []accepted

	const attempts = 40
	for i := 0; i < attempts; i++ {
		// Random start somewhere in 00:00-22:00, 5-minute granularity
		start := rng.Intn(22*60/5) * 5

		req := f.createRequest()
		req.StartTime = utils.MinutesToTime(start)

		_, err := f.service.CreateBooking(context.Background(), uuid.New(), req)
		if err == nil {
			kept = append(kept, accepted{start, start + 60})
			continue
		}
		require.ErrorIs(t, err, ErrSlotUnavailable, "start %s", req.StartTime)

		// A rejection must be explained by an accepted booking; the accepted
		// set only grows, so checking against the running set is exact.
		overlapped := false
		for _, a := range kept {
			if utils.IntervalsOverlap(start, start+60, a.start, a.end) {
				overlapped = true
				break
			}
		}
		assert.True(t, overlapped, "rejected %s without a conflicting booking", req.StartTime)
	}

	require.NotEmpty(t, kept)
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			assert.False(t, utils.IntervalsOverlap(kept[i].start, kept[i].end, kept[j].start, kept[j].end),
				"accepted bookings %02d:%02d and %02d:%02d overlap",
				kept[i].start/60, kept[i].start%60, kept[j].start/60, kept[j].start%60)
		}
	}
}

func TestUpdateBookingStatus_Transitions(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	ownerRole := string(entity.RoleOwner)

	// pending -> completed is not reachable directly
	_, err = f.service.UpdateBookingStatus(context.Background(), f.ownerID, ownerRole, booking.ID,
		&request.UpdateBookingStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// pending -> confirmed -> completed
	updated, err := f.service.UpdateBookingStatus(context.Background(), f.ownerID, ownerRole, booking.ID,
		&request.UpdateBookingStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, updated.Status)

	updated, err = f.service.UpdateBookingStatus(context.Background(), f.ownerID, ownerRole, booking.ID,
		&request.UpdateBookingStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, updated.Status)

	// completed is terminal
	_, err = f.service.UpdateBookingStatus(context.Background(), f.ownerID, ownerRole, booking.ID,
		&request.UpdateBookingStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateBookingStatus_NotOwner(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	_, err = f.service.UpdateBookingStatus(context.Background(), uuid.New(), string(entity.RoleOwner), booking.ID,
		&request.UpdateBookingStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetUserBookings_Pagination(t *testing.T) {
	f := newBookingFixture(t)

	starts := []string{"09:00", "11:00", "13:00"}
	for _, start := range starts {
		req := f.createRequest()
		req.StartTime = start
		_, err := f.service.CreateBooking(context.Background(), f.customerID, req)
		require.NoError(t, err)
	}

	page, err := f.service.GetUserBookings(context.Background(), f.customerID, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)

	page, err = f.service.GetUserBookings(context.Background(), f.customerID, &request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}

func TestGetStoreBookings_StatusFilter(t *testing.T) {
	f := newBookingFixture(t)

	first, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	req := f.createRequest()
	req.StartTime = "13:00"
	_, err = f.service.CreateBooking(context.Background(), f.customerID, req)
	require.NoError(t, err)

	_, err = f.service.UpdateBookingStatus(context.Background(), f.ownerID, string(entity.RoleOwner), first.ID,
		&request.UpdateBookingStatusRequest{Status: "confirmed"})
	require.NoError(t, err)

	confirmed := entity.BookingStatusConfirmed
	page, err := f.service.GetStoreBookings(context.Background(), f.ownerID, string(entity.RoleOwner), f.storeID.String(),
		repository.BookingListFilter{Status: &confirmed}, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)

	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)
}

func TestGetBookingByOrderID(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	detail, err := f.service.GetBookingByOrderID(context.Background(), f.customerID, string(entity.RoleCustomer), booking.OrderID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, detail.ID)
	assert.Equal(t, booking.OrderID, detail.OrderID)

	// Same access rules as the ID lookup
	_, err = f.service.GetBookingByOrderID(context.Background(), uuid.New(), string(entity.RoleCustomer), booking.OrderID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.GetBookingByOrderID(context.Background(), f.customerID, string(entity.RoleCustomer), "BK-UNKNOWN")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingByID_Access(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.customerID, f.createRequest())
	require.NoError(t, err)

	// Customer sees their own booking
	detail, err := f.service.GetBookingByID(context.Background(), f.customerID, string(entity.RoleCustomer), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, detail.ID)

	// Store owner sees it too
	_, err = f.service.GetBookingByID(context.Background(), f.ownerID, string(entity.RoleOwner), booking.ID)
	assert.NoError(t, err)

	// A stranger does not
	_, err = f.service.GetBookingByID(context.Background(), uuid.New(), string(entity.RoleCustomer), booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
