package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"salon-booking/internal/data/entity"
	"salon-booking/internal/data/repository"
	"salon-booking/internal/integrations/paygate"
	"salon-booking/pkg/utils"

	"github.com/google/uuid"
)

// memStore is the shared backing state for the in-memory repository fakes.
// One mutex serializes everything, which is exactly the serialization the
// real repositories get from transactions and row locks.
type memStore struct {
	mu sync.Mutex

	users     map[uuid.UUID]*entity.User
	stores    map[uuid.UUID]*entity.Store
	services  map[uuid.UUID]*entity.StoreService
	employees map[uuid.UUID]*entity.Employee
	sessions  map[string]*entity.Session // keyed by token
	windows   []*entity.AvailabilityWindow

	bookings     map[uuid.UUID]*entity.Booking
	bookingOrder []uuid.UUID

	events map[string]*entity.PaymentEvent // keyed by gateway event id
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]*entity.User),
		stores:    make(map[uuid.UUID]*entity.Store),
		services:  make(map[uuid.UUID]*entity.StoreService),
		employees: make(map[uuid.UUID]*entity.Employee),
		sessions:  make(map[string]*entity.Session),
		bookings:  make(map[uuid.UUID]*entity.Booking),
		events:    make(map[string]*entity.PaymentEvent),
	}
}

func newFakeRepository() (*repository.Repository, *memStore) {
	store := newMemStore()
	return &repository.Repository{
		User:         &fakeUserRepo{store},
		Session:      &fakeSessionRepo{store},
		Store:        &fakeStoreRepo{store},
		StoreService: &fakeStoreServiceRepo{store},
		Employee:     &fakeEmployeeRepo{store},
		Availability: &fakeAvailabilityRepo{store},
		Booking:      &fakeBookingRepo{store},
		PaymentEvent: &fakePaymentEventRepo{store},
	}, store
}

func cloneBooking(b *entity.Booking) *entity.Booking {
	clone := *b
	return &clone
}

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.users[id], nil
}

type fakeSessionRepo struct{ s *memStore }

func (r *fakeSessionRepo) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[token]
	if !ok || session.RevokedAt != nil || !session.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	clone := *session
	return &clone, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[token]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	session.RevokedAt = &now
	return nil
}

type fakeStoreRepo struct{ s *memStore }

func (r *fakeStoreRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Store, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.stores[id], nil
}

type fakeStoreServiceRepo struct{ s *memStore }

func (r *fakeStoreServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.StoreService, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.services[id], nil
}

func (r *fakeStoreServiceRepo) FindByStoreID(_ context.Context, storeID uuid.UUID) ([]*entity.StoreService, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.StoreService
	for _, svc := range r.s.services {
		if svc.StoreID == storeID && svc.IsActive {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeEmployeeRepo struct{ s *memStore }

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.employees[id], nil
}

type fakeAvailabilityRepo struct{ s *memStore }

func (r *fakeAvailabilityRepo) FindActiveWindows(_ context.Context, storeID uuid.UUID, employeeID *uuid.UUID, dayOfWeek int) ([]*entity.AvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.AvailabilityWindow
	for _, w := range r.s.windows {
		if w.StoreID != storeID || w.DayOfWeek != dayOfWeek || !w.IsActive {
			continue
		}
		if employeeID == nil {
			if w.EmployeeID != nil {
				continue
			}
		} else if w.EmployeeID == nil || *w.EmployeeID != *employeeID {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ReplaceWindows(_ context.Context, storeID uuid.UUID, employeeID *uuid.UUID, windows []*entity.AvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.windows[:0]
	for _, w := range r.s.windows {
		sameScope := w.StoreID == storeID &&
			((employeeID == nil && w.EmployeeID == nil) ||
				(employeeID != nil && w.EmployeeID != nil && *w.EmployeeID == *employeeID))
		if !sameScope {
			kept = append(kept, w)
		}
	}
	r.s.windows = append(kept, windows...)
	return nil
}

type fakeBookingRepo struct{ s *memStore }

func (r *fakeBookingRepo) CreateIfAvailable(_ context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	newStart, err := utils.TimeToMinutes(booking.StartTime)
	if err != nil {
		return err
	}
	newEnd, err := utils.TimeToMinutes(booking.EndTime)
	if err != nil {
		return err
	}

	for _, existing := range r.s.bookings {
		if existing.StoreID != booking.StoreID || !existing.BookingDate.Equal(booking.BookingDate) {
			continue
		}
		if !existing.Status.BlocksSlot() {
			continue
		}
		start, _ := utils.TimeToMinutes(existing.StartTime)
		end, _ := utils.TimeToMinutes(existing.EndTime)
		if utils.IntervalsOverlap(newStart, newEnd, start, end) {
			return repository.ErrSlotTaken
		}
	}

	r.s.bookings[booking.ID] = cloneBooking(booking)
	r.s.bookingOrder = append(r.s.bookingOrder, booking.ID)
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(booking), nil
}

func (r *fakeBookingRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.OrderID == orderID {
			return cloneBooking(b), nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, id := range r.s.bookingOrder {
		b := r.s.bookings[id]
		if b.CustomerID == customerID {
			out = append(out, cloneBooking(b))
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeBookingRepo) CountByCustomerID(_ context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) FindByStoreID(_ context.Context, storeID uuid.UUID, filter repository.BookingListFilter, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, id := range r.s.bookingOrder {
		b := r.s.bookings[id]
		if b.StoreID == storeID && matchesFilter(b, filter) {
			out = append(out, cloneBooking(b))
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeBookingRepo) CountByStoreID(_ context.Context, storeID uuid.UUID, filter repository.BookingListFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for _, b := range r.s.bookings {
		if b.StoreID == storeID && matchesFilter(b, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) FindActiveByStoreDate(_ context.Context, storeID uuid.UUID, date time.Time, employeeID *uuid.UUID) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, id := range r.s.bookingOrder {
		b := r.s.bookings[id]
		if b.StoreID != storeID || !b.BookingDate.Equal(date) || !b.Status.BlocksSlot() {
			continue
		}
		if employeeID != nil && b.EmployeeID != nil && *b.EmployeeID != *employeeID {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID)
	}
	booking.Status = status
	return nil
}

func (r *fakeBookingRepo) SetGatewayOrder(_ context.Context, bookingID uuid.UUID, gatewayOrderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID)
	}
	booking.GatewayOrderID = &gatewayOrderID
	return nil
}

func (r *fakeBookingRepo) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.GatewayOrderID != nil && *b.GatewayOrderID == gatewayOrderID {
			return cloneBooking(b), nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) ApplyPaymentEvent(_ context.Context, event *entity.PaymentEvent, apply func(*entity.Booking) error) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.events[event.EventID]; exists {
		return nil, repository.ErrDuplicateEvent
	}

	booking, ok := r.s.bookings[event.BookingID]
	if !ok {
		return nil, fmt.Errorf("lock booking %s: booking not found", event.BookingID)
	}

	working := cloneBooking(booking)
	if err := apply(working); err != nil {
		return nil, err
	}

	stored := *event
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	r.s.events[event.EventID] = &stored

	r.s.bookings[event.BookingID] = working
	return cloneBooking(working), nil
}

func matchesFilter(b *entity.Booking, filter repository.BookingListFilter) bool {
	if filter.Status != nil && b.Status != *filter.Status {
		return false
	}
	if filter.DateFrom != nil && b.BookingDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && b.BookingDate.After(*filter.DateTo) {
		return false
	}
	return true
}

func paginate(bookings []*entity.Booking, limit, offset int) []*entity.Booking {
	if offset >= len(bookings) {
		return nil
	}
	end := offset + limit
	if end > len(bookings) {
		end = len(bookings)
	}
	return bookings[offset:end]
}

type fakePaymentEventRepo struct{ s *memStore }

func (r *fakePaymentEventRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.PaymentEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.PaymentEvent
	for _, e := range r.s.events {
		if e.BookingID == bookingID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePaymentEventRepo) FindByEventID(_ context.Context, eventID string) (*entity.PaymentEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventID]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

// fakeGateway is a canned payment gateway for the payment service tests.
type fakeGateway struct {
	mu sync.Mutex

	orders     map[string]*paygate.Order
	payments   map[string]*paygate.Payment
	orderSeq   int
	goodSig    string
	webhookSig string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   make(map[string]*paygate.Order),
		payments: make(map[string]*paygate.Payment),
		goodSig:  "valid-signature",
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, receipt string) (*paygate.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.orderSeq++
	order := &paygate.Order{
		ID:       fmt.Sprintf("order_%d", g.orderSeq),
		Amount:   amount,
		Currency: g.Currency(),
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*paygate.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	payment, ok := g.payments[paymentID]
	if !ok {
		return nil, paygate.ErrPaymentNotFound
	}
	return payment, nil
}

func (g *fakeGateway) VerifyPaymentSignature(_, _, signature string) bool {
	return signature == g.goodSig
}

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, signature string) bool {
	return signature == g.webhookSig
}

func (g *fakeGateway) Currency() string { return "INR" }
