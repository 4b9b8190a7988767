package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"

	"courtbooking/internal/application/usecases/tx"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/domain/payments"
	"courtbooking/internal/entities"
	"courtbooking/internal/observability"
)

var ErrMalformedInput = errors.New("malformed input")

//go:generate mockgen -destination=mocks/mock_payment_gateway.go -package=mocks courtbooking/internal/application/usecases/reservation PaymentGateway
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

type BookingsRepo interface {
	Create(ctx context.Context, booking *bookings.Booking) error
	GetByIdempotencyKey(ctx context.Context, key string) (*bookings.Booking, error)
	FindConflicting(ctx context.Context, courtID int64, interval bookings.Interval) ([]bookings.Booking, error)
}

type PaymentsRepo interface {
	Create(ctx context.Context, payment *payments.Payment) error
}

type CourtsRepo interface {
	GetForUpdate(ctx context.Context, id int64) (*courts.Court, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

type ReserveRequest struct {
	UserID         string
	CourtID        int64
	StartTime      time.Time
	EndTime        time.Time
	Notes          *string
	IdempotencyKey string
}

type ReserveResult struct {
	BookingID int64
	URL       string
	// Replayed is set when the URL comes from an earlier attempt with the same key.
	Replayed bool
}

type Usecase struct {
	bookingsRepo   BookingsRepo
	paymentsRepo   PaymentsRepo
	courtsRepo     CourtsRepo
	gateway        PaymentGateway
	events         EventPublisher
	trManager      trm.Manager
	gatewayTimeout time.Duration
}

func NewUsecase(
	bookingsRepo BookingsRepo,
	paymentsRepo PaymentsRepo,
	courtsRepo CourtsRepo,
	gateway PaymentGateway,
	events EventPublisher,
	trManager trm.Manager,
	gatewayTimeout time.Duration,
) *Usecase {
	return &Usecase{
		bookingsRepo:   bookingsRepo,
		paymentsRepo:   paymentsRepo,
		courtsRepo:     courtsRepo,
		gateway:        gateway,
		events:         events,
		trManager:      trManager,
		gatewayTimeout: gatewayTimeout,
	}
}

func (u *Usecase) Reserve(ctx context.Context, req ReserveRequest) (ReserveResult, error) {
	res, err := u.reserve(ctx, req)
	observability.ReservationsTotal.WithLabelValues(outcome(res, err)).Inc()
	return res, err
}

func (u *Usecase) reserve(ctx context.Context, req ReserveRequest) (ReserveResult, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		return ReserveResult{}, fmt.Errorf("%w: idempotency key is required", ErrMalformedInput)
	}
	if req.CourtID <= 0 {
		return ReserveResult{}, fmt.Errorf("%w: court id is required", ErrMalformedInput)
	}
	interval, err := bookings.NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	logger := log.FromContext(ctx).
		WithField("court_id", req.CourtID).
		WithField("idempotency_key", req.IdempotencyKey)

	if res, found, err := u.replay(ctx, req.IdempotencyKey); found || err != nil {
		logger.WithField("replayed", found).Info("reservation short-circuited by idempotency key")
		return res, err
	}

	var booking *bookings.Booking
	err = tx.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		var err error
		booking, err = u.reserveInTx(ctx, req, interval)
		return err
	})
	if errors.Is(err, bookings.ErrDuplicateIdempotencyKey) || errors.Is(err, bookings.ErrSlotConflict) {
		// a concurrent attempt with the same key may have committed first,
		// in which case the slot it holds is this request's own
		res, found, replayErr := u.replay(ctx, req.IdempotencyKey)
		if replayErr != nil {
			return ReserveResult{}, replayErr
		}
		if found {
			logger.WithField("booking_id", res.BookingID).Info("reservation replayed after concurrent attempt")
			return res, nil
		}
		if errors.Is(err, bookings.ErrDuplicateIdempotencyKey) {
			return ReserveResult{}, bookings.ErrIncompleteBooking
		}
	}
	if err != nil {
		return ReserveResult{}, fmt.Errorf("reserve court %d: %w", req.CourtID, err)
	}

	logger.WithField("booking_id", booking.ID).Info("booking reserved")

	return ReserveResult{BookingID: booking.ID, URL: booking.CheckoutURL}, nil
}

func (u *Usecase) replay(ctx context.Context, key string) (ReserveResult, bool, error) {
	existing, err := u.bookingsRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, bookings.ErrNotFound) {
		return ReserveResult{}, false, nil
	}
	if err != nil {
		return ReserveResult{}, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if existing.CheckoutURL == "" {
		return ReserveResult{}, false, bookings.ErrIncompleteBooking
	}

	return ReserveResult{BookingID: existing.ID, URL: existing.CheckoutURL, Replayed: true}, true, nil
}

func (u *Usecase) reserveInTx(ctx context.Context, req ReserveRequest, interval bookings.Interval) (*bookings.Booking, error) {
	court, err := u.courtsRepo.GetForUpdate(ctx, req.CourtID)
	if err != nil {
		return nil, fmt.Errorf("failed to get court: %w", err)
	}

	// an attempt with the same key may have committed while this one waited for the court lock
	existing, err := u.bookingsRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, bookings.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("booking %d: %w", existing.ID, bookings.ErrDuplicateIdempotencyKey)
	}

	conflicting, err := u.bookingsRepo.FindConflicting(ctx, court.ID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if len(conflicting) > 0 {
		return nil, fmt.Errorf("booking %d overlaps: %w", conflicting[0].ID, bookings.ErrSlotConflict)
	}

	amount := court.AmountFor(interval.Duration())

	session, err := u.createCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Amount:      amount,
		Currency:    court.Currency,
		Description: fmt.Sprintf("%s, %s - %s", court.Name, interval.Start.Format(time.RFC3339), interval.End.Format(time.RFC3339)),
		Metadata: payments.CheckoutMetadata{
			CourtID:        court.ID,
			StartTime:      interval.Start,
			EndTime:        interval.End,
			UserID:         req.UserID,
			IdempotencyKey: req.IdempotencyKey,
		},
	})
	if err != nil {
		return nil, err
	}

	booking := &bookings.Booking{
		UserID:            req.UserID,
		CourtID:           court.ID,
		StartTime:         interval.Start,
		EndTime:           interval.End,
		Status:            bookings.StatusPending,
		IdempotencyKey:    req.IdempotencyKey,
		Notes:             req.Notes,
		CheckoutSessionID: session.ID,
		CheckoutURL:       session.URL,
	}
	if err := u.bookingsRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	payment := &payments.Payment{
		BookingID:         booking.ID,
		Gateway:           payments.GatewayStripe,
		CheckoutSessionID: session.ID,
		Amount:            amount,
		Currency:          court.Currency,
		Status:            payments.StatusPending,
		IdempotencyKey:    req.IdempotencyKey,
	}
	if err := u.paymentsRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	err = u.events.Publish(ctx, entities.BookingReserved_v1{
		Header:            entities.NewEventHeaderWithIdempotencyKey(req.IdempotencyKey),
		BookingID:         booking.ID,
		CourtID:           booking.CourtID,
		UserID:            booking.UserID,
		StartTime:         booking.StartTime,
		EndTime:           booking.EndTime,
		Amount:            amount,
		Currency:          court.Currency,
		CheckoutSessionID: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish booking reserved: %w", err)
	}

	return booking, nil
}

func (u *Usecase) createCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if u.gatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.gatewayTimeout)
		defer cancel()
	}

	session, err := u.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return payments.CheckoutSession{}, fmt.Errorf("%w: %w", payments.ErrGatewaySession, err)
	}
	if !session.Usable() {
		return payments.CheckoutSession{}, fmt.Errorf("%w: empty session reference", payments.ErrGatewaySession)
	}

	return session, nil
}

func outcome(res ReserveResult, err error) string {
	switch {
	case err == nil && res.Replayed:
		return "replayed"
	case err == nil:
		return "reserved"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, bookings.ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, bookings.ErrIncompleteBooking):
		return "incomplete"
	case errors.Is(err, courts.ErrNotFound):
		return "court_not_found"
	case errors.Is(err, payments.ErrGatewaySession):
		return "gateway_failure"
	default:
		return "error"
	}
}
