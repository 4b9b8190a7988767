package bookings

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound                 = errors.New("booking not found")
	ErrSlotConflict             = errors.New("slot already booked")
	ErrIncompleteBooking        = errors.New("booking already in an incomplete state")
	ErrDuplicateIdempotencyKey  = errors.New("booking with this idempotency key already exists")
	ErrIllegalTransition        = errors.New("illegal booking status transition")
	ErrNotOwner                 = errors.New("booking belongs to another user")
	ErrCancellationWindowClosed = errors.New("booking can only be cancelled before it starts")

	// ErrNoChange is returned by update functions that decided to leave the row untouched.
	ErrNoChange = errors.New("booking left unchanged")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// BlockingStatuses occupy their court slot.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s Status) Blocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID                int64     `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	CourtID           int64     `db:"court_id" json:"court_id"`
	StartTime         time.Time `db:"start_time" json:"start_time"`
	EndTime           time.Time `db:"end_time" json:"end_time"`
	Status            Status    `db:"status" json:"status"`
	IdempotencyKey    string    `db:"idempotency_key" json:"idempotency_key"`
	Notes             *string   `db:"notes" json:"notes,omitempty"`
	CheckoutSessionID string    `db:"checkout_session_id" json:"checkout_session_id"`
	CheckoutURL       string    `db:"checkout_url" json:"checkout_url"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// Transition is the only way booking status changes.
func (b *Booking) Transition(to Status) error {
	if !b.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

// Cancel applies a user-initiated cancellation at the given moment.
func (b *Booking) Cancel(userID string, now time.Time) error {
	if b.UserID != userID {
		return ErrNotOwner
	}
	if !b.Status.Cancellable() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, b.Status, StatusCancelled)
	}
	if !now.Before(b.StartTime) {
		return ErrCancellationWindowClosed
	}
	return b.Transition(StatusCancelled)
}
