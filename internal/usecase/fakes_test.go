package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/data/repository"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres repositories. RunInTx
// serializes callers with a mutex the way row locks serialize transactions,
// and restores a snapshot when the callback errors so rollback semantics hold.
type memStore struct {
	mu       sync.Mutex
	trips    map[uuid.UUID]*entity.Trip
	bookings map[uuid.UUID]*entity.Booking
	payments map[uuid.UUID]*entity.Payment
	audits   []*entity.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		trips:    make(map[uuid.UUID]*entity.Trip),
		bookings: make(map[uuid.UUID]*entity.Booking),
		payments: make(map[uuid.UUID]*entity.Payment),
	}
}

func (s *memStore) repo() *repository.Repository {
	return &repository.Repository{
		Trip:    (*memTrips)(s),
		Booking: (*memBookings)(s),
		Payment: (*memPayments)(s),
		Audit:   (*memAudits)(s),
	}
}

type txMarker struct{}

func (s *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapBookings := make(map[uuid.UUID]*entity.Booking, len(s.bookings))
	for k, v := range s.bookings {
		snapBookings[k] = v
	}
	snapPayments := make(map[uuid.UUID]*entity.Payment, len(s.payments))
	for k, v := range s.payments {
		snapPayments[k] = v
	}
	snapAudits := len(s.audits)

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.bookings = snapBookings
		s.payments = snapPayments
		s.audits = s.audits[:snapAudits]
		return err
	}
	return nil
}

// lock takes the store mutex unless the context already runs inside RunInTx.
func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) addTrip(capacity int, price int64, status entity.TripStatus) *entity.Trip {
	trip := &entity.Trip{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Title:    "Test Trip",
		Price:    price,
		Capacity: capacity,
		Status:   status,
	}
	s.trips[trip.ID] = trip
	return trip
}

func (s *memStore) addBooking(tripID uuid.UUID, status entity.BookingStatus, total int64) *entity.Booking {
	booking := &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		TripID:        tripID,
		UserID:        uuid.New(),
		Guests:        1,
		TotalPrice:    total,
		Status:        status,
		PaymentStatus: entity.BookingPaymentPending,
	}
	s.bookings[booking.ID] = booking
	return booking
}

func (s *memStore) addPayment(bookingID uuid.UUID, status entity.PaymentStatus, amount int64, orderID string) *entity.Payment {
	payment := &entity.Payment{
		Base:            entity.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		BookingID:       bookingID,
		Provider:        "razorpay",
		ProviderOrderID: orderID,
		Amount:          amount,
		Status:          status,
	}
	s.payments[payment.ID] = payment
	return payment
}

func cloneBooking(b *entity.Booking) *entity.Booking {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func clonePayment(p *entity.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.ProviderRefundIDs = append([]string(nil), p.ProviderRefundIDs...)
	return &c
}

// ---- trips ----

type memTrips memStore

func (s *memTrips) FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	defer (*memStore)(s).lock(ctx)()
	trip, ok := s.trips[id]
	if !ok {
		return nil, nil
	}
	c := *trip
	return &c, nil
}

func (s *memTrips) LockByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	return s.FindByID(ctx, id)
}

// ---- bookings ----

type memBookings memStore

func (s *memBookings) Create(ctx context.Context, booking *entity.Booking) error {
	defer (*memStore)(s).lock(ctx)()
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (s *memBookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer (*memStore)(s).lock(ctx)()
	return cloneBooking(s.bookings[id]), nil
}

func (s *memBookings) LockByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return s.FindByID(ctx, id)
}

func (s *memBookings) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	defer (*memStore)(s).lock(ctx)()
	var out []*entity.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (s *memBookings) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer (*memStore)(s).lock(ctx)()
	var n int64
	for _, b := range s.bookings {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memBookings) CountConfirmedByTrip(ctx context.Context, tripID uuid.UUID, exclude *uuid.UUID) (int64, error) {
	defer (*memStore)(s).lock(ctx)()
	var n int64
	for _, b := range s.bookings {
		if b.TripID != tripID || b.Status != entity.BookingStatusConfirmed {
			continue
		}
		if exclude != nil && b.ID == *exclude {
			continue
		}
		n++
	}
	return n, nil
}

func (s *memBookings) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	defer (*memStore)(s).lock(ctx)()
	b, ok := s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	c := cloneBooking(b)
	c.Status = status
	s.bookings[bookingID] = c
	return nil
}

func (s *memBookings) UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingPaymentStatus) error {
	defer (*memStore)(s).lock(ctx)()
	b, ok := s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	c := cloneBooking(b)
	c.PaymentStatus = status
	s.bookings[bookingID] = c
	return nil
}

func (s *memBookings) UpdateStatusAndPayment(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, payment entity.BookingPaymentStatus, notes *string) error {
	defer (*memStore)(s).lock(ctx)()
	b, ok := s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	c := cloneBooking(b)
	c.Status = status
	c.PaymentStatus = payment
	if notes != nil {
		c.Notes = notes
	}
	s.bookings[bookingID] = c
	return nil
}

// ---- payments ----

type memPayments memStore

func (s *memPayments) Create(ctx context.Context, payment *entity.Payment) error {
	defer (*memStore)(s).lock(ctx)()
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (s *memPayments) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	defer (*memStore)(s).lock(ctx)()
	return clonePayment(s.payments[id]), nil
}

func (s *memPayments) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	defer (*memStore)(s).lock(ctx)()
	var latest *entity.Payment
	for _, p := range s.payments {
		if p.BookingID != bookingID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	return clonePayment(latest), nil
}

func (s *memPayments) FindByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	defer (*memStore)(s).lock(ctx)()
	for _, p := range s.payments {
		if p.ProviderOrderID == orderID {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (s *memPayments) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error) {
	return s.LockByProviderPaymentID(ctx, providerPaymentID)
}

func (s *memPayments) Update(ctx context.Context, payment *entity.Payment) error {
	defer (*memStore)(s).lock(ctx)()
	if _, ok := s.payments[payment.ID]; !ok {
		return fmt.Errorf("payment %s not found", payment.ID.String())
	}
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (s *memPayments) LockByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return s.FindByID(ctx, id)
}

func (s *memPayments) LockByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	return s.FindByProviderOrderID(ctx, orderID)
}

func (s *memPayments) LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error) {
	defer (*memStore)(s).lock(ctx)()
	for _, p := range s.payments {
		if p.ProviderPaymentID != nil && *p.ProviderPaymentID == providerPaymentID {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

// ---- audit logs ----

type memAudits memStore

func (s *memAudits) Create(ctx context.Context, log *entity.AuditLog) error {
	defer (*memStore)(s).lock(ctx)()
	s.audits = append(s.audits, log)
	return nil
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.audits))
	for i, a := range s.audits {
		out[i] = a.Action
	}
	return out
}

// ---- gateway ----

type fakeGateway struct {
	mu           sync.Mutex
	orders       int
	refunds      []gateway.Refund
	createErr    error
	refundErr    error
	fetchResult  *gateway.RemotePayment
	fetchErr     error
	fetchCalls   int
	refundIDNext string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   gateway.RemoteStatusCreated,
	}, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, providerPaymentID string) (*gateway.RemotePayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.fetchResult, nil
}

func (g *fakeGateway) Refund(ctx context.Context, providerPaymentID string, amount int64, notes map[string]string) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	id := g.refundIDNext
	if id == "" {
		id = fmt.Sprintf("rfnd_%d", len(g.refunds)+1)
	}
	refund := gateway.Refund{ID: id, PaymentID: providerPaymentID, Amount: amount, Status: "processed"}
	g.refunds = append(g.refunds, refund)
	return &refund, nil
}

// ---- job queue ----

type enqueued struct {
	Type    jobs.Type
	Key     string
	Payload map[string]any
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobType jobs.Type, key string, payload map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueued{Type: jobType, Key: key, Payload: payload})
	return nil
}

func (q *fakeQueue) byType(t jobs.Type) []enqueued {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []enqueued
	for _, j := range q.jobs {
		if j.Type == t {
			out = append(out, j)
		}
	}
	return out
}
