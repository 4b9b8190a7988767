package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/domain/payments"
)

type BookingsReader interface {
	GetByID(ctx context.Context, id int64) (*bookings.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]bookings.Booking, error)
	ListBlocking(ctx context.Context, courtID int64, interval bookings.Interval) ([]bookings.Slot, error)
}

type CourtsReader interface {
	GetCourt(ctx context.Context, id int64) (*courts.Court, error)
}

type PaymentsReader interface {
	GetByBookingID(ctx context.Context, bookingID int64) (*payments.Payment, error)
}

type BookingsService struct {
	bookingsRepo BookingsReader
	courtsRepo   CourtsReader
	paymentsRepo PaymentsReader
}

func NewBookingsService(bookingsRepo BookingsReader, courtsRepo CourtsReader, paymentsRepo PaymentsReader) *BookingsService {
	return &BookingsService{
		bookingsRepo: bookingsRepo,
		courtsRepo:   courtsRepo,
		paymentsRepo: paymentsRepo,
	}
}

type BookingDetails struct {
	bookings.Booking
	Payment *payments.Payment `json:"payment,omitempty"`
}

func (s *BookingsService) ListForUser(ctx context.Context, userID string) ([]bookings.Booking, error) {
	return s.bookingsRepo.ListByUser(ctx, userID)
}

func (s *BookingsService) GetForUser(ctx context.Context, id int64, userID string) (*BookingDetails, error) {
	b, err := s.bookingsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, bookings.ErrNotOwner
	}

	payment, err := s.paymentsRepo.GetByBookingID(ctx, id)
	if err != nil && !errors.Is(err, payments.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &BookingDetails{Booking: *b, Payment: payment}, nil
}

type Availability struct {
	Court courts.Court    `json:"court"`
	Date  string          `json:"date"`
	Busy  []bookings.Slot `json:"busy"`
}

// CourtAvailability lists the occupied slots of a court on the UTC day containing day.
func (s *BookingsService) CourtAvailability(ctx context.Context, courtID int64, day time.Time) (*Availability, error) {
	court, err := s.courtsRepo.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	interval, err := bookings.NewInterval(start, start.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	busy, err := s.bookingsRepo.ListBlocking(ctx, courtID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to list busy slots: %w", err)
	}

	return &Availability{
		Court: *court,
		Date:  start.Format(time.DateOnly),
		Busy:  busy,
	}, nil
}
