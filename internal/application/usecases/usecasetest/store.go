// Package usecasetest provides an in-memory persistence layer with transactional
// semantics for usecase tests.
package usecasetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"

	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/domain/payments"
	"courtbooking/internal/entities"
)

type txKey struct{}

type state struct {
	bookings map[int64]bookings.Booking
	payments map[int64]payments.Payment // by booking id
	venues   map[int64]courts.Venue
	courts   map[int64]courts.Court
	events   []entities.Event
	nextID   int64
}

func (s state) clone() state {
	c := state{
		bookings: make(map[int64]bookings.Booking, len(s.bookings)),
		payments: make(map[int64]payments.Payment, len(s.payments)),
		venues:   make(map[int64]courts.Venue, len(s.venues)),
		courts:   make(map[int64]courts.Court, len(s.courts)),
		events:   append([]entities.Event(nil), s.events...),
		nextID:   s.nextID,
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.venues {
		c.venues[k] = v
	}
	for k, v := range s.courts {
		c.courts[k] = v
	}
	return c
}

// Store serializes transactions and rolls back every change made by a failed one.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state

	injected map[string]error
}

func NewStore() *Store {
	return &Store{
		st: state{
			bookings: map[int64]bookings.Booking{},
			payments: map[int64]payments.Payment{},
			venues:   map[int64]courts.Venue{},
			courts:   map[int64]courts.Court{},
		},
		injected: map[string]error{},
	}
}

// InjectError makes the next call of op (e.g. "bookings.Create") fail with err.
func (s *Store) InjectError(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected[op] = err
}

func (s *Store) takeInjected(op string) error {
	err := s.injected[op]
	delete(s.injected, op)
	return err
}

func (s *Store) Bookings() *BookingsRepo { return &BookingsRepo{s: s} }
func (s *Store) Payments() *PaymentsRepo { return &PaymentsRepo{s: s} }
func (s *Store) Courts() *CourtsRepo     { return &CourtsRepo{s: s} }
func (s *Store) Events() *EventPublisher { return &EventPublisher{s: s} }
func (s *Store) Manager() *TxManager     { return &TxManager{s: s} }

// PublishedEvents returns committed events.
func (s *Store) PublishedEvents() []entities.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Event(nil), s.st.events...)
}

func (s *Store) AllBookings() []bookings.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bookings.Booking, 0, len(s.st.bookings))
	for _, b := range s.st.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllPayments() []payments.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payments.Payment, 0, len(s.st.payments))
	for _, p := range s.st.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out
}

// AddCourt seeds a venue and a court, returning the court.
func (s *Store) AddCourt(court courts.Court) courts.Court {
	s.mu.Lock()
	defer s.mu.Unlock()
	if court.VenueID == 0 {
		s.st.nextID++
		court.VenueID = s.st.nextID
		s.st.venues[court.VenueID] = courts.Venue{ID: court.VenueID, OwnerID: "owner", Name: "Venue"}
	}
	s.st.nextID++
	court.ID = s.st.nextID
	s.st.courts[court.ID] = court
	return court
}

// AddBooking seeds a booking together with its payment.
func (s *Store) AddBooking(b bookings.Booking, p payments.Payment) bookings.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextID++
	b.ID = s.st.nextID
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.UpdatedAt = b.CreatedAt
	s.st.bookings[b.ID] = b

	s.st.nextID++
	p.ID = s.st.nextID
	p.BookingID = b.ID
	s.st.payments[b.ID] = p
	return b
}

type TxManager struct {
	s *Store
}

var _ trm.Manager = (*TxManager)(nil)

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	snapshot := m.s.st.clone()
	m.s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, true))
	if err != nil {
		m.s.mu.Lock()
		m.s.st = snapshot
		m.s.mu.Unlock()
	}
	return err
}

func (m *TxManager) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}

type EventPublisher struct {
	s *Store
}

func (p *EventPublisher) Publish(ctx context.Context, event entities.Event) error {
	if ctx.Value(txKey{}) == nil {
		return errors.New("publish outside of a transaction")
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.takeInjected("events.Publish"); err != nil {
		return err
	}
	p.s.st.events = append(p.s.st.events, event)
	return nil
}

type BookingsRepo struct {
	s *Store
}

func (r *BookingsRepo) Create(ctx context.Context, b *bookings.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeInjected("bookings.Create"); err != nil {
		return err
	}

	for _, existing := range r.s.st.bookings {
		if existing.IdempotencyKey == b.IdempotencyKey {
			return fmt.Errorf("insert booking: %w", bookings.ErrDuplicateIdempotencyKey)
		}
		if existing.CourtID == b.CourtID && existing.Status.Blocking() && existing.Interval().Overlaps(b.Interval()) {
			return fmt.Errorf("insert booking: %w", bookings.ErrSlotConflict)
		}
	}

	r.s.st.nextID++
	b.ID = r.s.st.nextID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.s.st.bookings[b.ID] = *b
	return nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id int64) (*bookings.Booking, error) {
	return r.find(func(b bookings.Booking) bool { return b.ID == id })
}

func (r *BookingsRepo) GetByIdempotencyKey(ctx context.Context, key string) (*bookings.Booking, error) {
	return r.find(func(b bookings.Booking) bool { return b.IdempotencyKey == key })
}

func (r *BookingsRepo) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*bookings.Booking, error) {
	return r.find(func(b bookings.Booking) bool { return b.CheckoutSessionID == sessionID })
}

func (r *BookingsRepo) find(match func(bookings.Booking) bool) (*bookings.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.st.bookings {
		if match(b) {
			found := b
			return &found, nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (r *BookingsRepo) FindConflicting(ctx context.Context, courtID int64, interval bookings.Interval) ([]bookings.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []bookings.Booking
	for _, b := range r.s.st.bookings {
		if b.CourtID == courtID && b.Status.Blocking() && b.Interval().Overlaps(interval) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BookingsRepo) ListByUser(ctx context.Context, userID string) ([]bookings.Booking, error) {
	var out []bookings.Booking
	for _, b := range r.s.AllBookings() {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BookingsRepo) ListBlocking(ctx context.Context, courtID int64, interval bookings.Interval) ([]bookings.Slot, error) {
	conflicting, err := r.FindConflicting(ctx, courtID, interval)
	if err != nil {
		return nil, err
	}
	sort.Slice(conflicting, func(i, j int) bool { return conflicting[i].StartTime.Before(conflicting[j].StartTime) })

	slots := make([]bookings.Slot, 0, len(conflicting))
	for _, b := range conflicting {
		slots = append(slots, bookings.Slot{BookingID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime, Status: b.Status})
	}
	return slots, nil
}

func (r *BookingsRepo) ListEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]bookings.Booking, error) {
	var out []bookings.Booking
	for _, b := range r.s.AllBookings() {
		if b.Status == bookings.StatusConfirmed && !b.EndTime.After(now) && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BookingsRepo) UpdateByID(ctx context.Context, id int64, updateFn func(*bookings.Booking) error) (*bookings.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeInjected("bookings.UpdateByID"); err != nil {
		return nil, err
	}

	current, ok := r.s.st.bookings[id]
	if !ok {
		return nil, bookings.ErrNotFound
	}

	b := current
	err := updateFn(&b)
	if errors.Is(err, bookings.ErrNoChange) {
		return &b, err
	}
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	b.UpdatedAt = time.Now()
	r.s.st.bookings[id] = b
	return &b, nil
}

type PaymentsRepo struct {
	s *Store
}

func (r *PaymentsRepo) Create(ctx context.Context, p *payments.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeInjected("payments.Create"); err != nil {
		return err
	}
	if _, exists := r.s.st.payments[p.BookingID]; exists {
		return fmt.Errorf("payment for booking %d already exists", p.BookingID)
	}

	r.s.st.nextID++
	p.ID = r.s.st.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.s.st.payments[p.BookingID] = *p
	return nil
}

func (r *PaymentsRepo) GetByBookingID(ctx context.Context, bookingID int64) (*payments.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.payments[bookingID]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return &p, nil
}

func (r *PaymentsRepo) UpdateByBookingID(ctx context.Context, bookingID int64, updateFn func(*payments.Payment) error) (*payments.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.st.payments[bookingID]
	if !ok {
		return nil, payments.ErrNotFound
	}

	p := current
	err := updateFn(&p)
	if errors.Is(err, payments.ErrNoChange) {
		return &p, err
	}
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	p.UpdatedAt = time.Now()
	r.s.st.payments[bookingID] = p
	return &p, nil
}

type CourtsRepo struct {
	s *Store
}

func (r *CourtsRepo) GetForUpdate(ctx context.Context, id int64) (*courts.Court, error) {
	return r.GetCourt(ctx, id)
}

func (r *CourtsRepo) GetCourt(ctx context.Context, id int64) (*courts.Court, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.courts[id]
	if !ok {
		return nil, courts.ErrNotFound
	}
	return &c, nil
}

func (r *CourtsRepo) GetVenue(ctx context.Context, id int64) (*courts.Venue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.venues[id]
	if !ok {
		return nil, courts.ErrVenueNotFound
	}
	return &v, nil
}

func (r *CourtsRepo) CreateVenue(ctx context.Context, venue courts.Venue) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.nextID++
	venue.ID = r.s.st.nextID
	r.s.st.venues[venue.ID] = venue
	return venue.ID, nil
}

func (r *CourtsRepo) CreateCourt(ctx context.Context, court courts.Court) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.venues[court.VenueID]; !ok {
		return 0, courts.ErrVenueNotFound
	}
	r.s.st.nextID++
	court.ID = r.s.st.nextID
	r.s.st.courts[court.ID] = court
	return court.ID, nil
}
