package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"

	"courtbooking/internal/application/usecases/tx"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/payments"
	"courtbooking/internal/entities"
)

type BookingsRepo interface {
	UpdateByID(ctx context.Context, id int64, updateFn func(*bookings.Booking) error) (*bookings.Booking, error)
}

type PaymentsRepo interface {
	UpdateByBookingID(ctx context.Context, bookingID int64, updateFn func(*payments.Payment) error) (*payments.Payment, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

type Usecase struct {
	bookingsRepo BookingsRepo
	paymentsRepo PaymentsRepo
	events       EventPublisher
	trManager    trm.Manager
	now          func() time.Time
}

func NewUsecase(
	bookingsRepo BookingsRepo,
	paymentsRepo PaymentsRepo,
	events EventPublisher,
	trManager trm.Manager,
	now func() time.Time,
) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		bookingsRepo: bookingsRepo,
		paymentsRepo: paymentsRepo,
		events:       events,
		trManager:    trManager,
		now:          now,
	}
}

// Cancel cancels a booking on behalf of its owner. A settled payment is marked refunded
// and the refund itself is requested asynchronously from the BookingCancelled_v1 event.
func (u *Usecase) Cancel(ctx context.Context, bookingID int64, userID string) (*bookings.Booking, error) {
	var cancelled *bookings.Booking

	err := u.trManager.DoWithSettings(ctx, tx.ReadCommitted(), func(ctx context.Context) error {
		var err error
		cancelled, err = u.bookingsRepo.UpdateByID(ctx, bookingID, func(b *bookings.Booking) error {
			return b.Cancel(userID, u.now())
		})
		if err != nil {
			return err
		}

		var refundRequired bool
		payment, err := u.paymentsRepo.UpdateByBookingID(ctx, bookingID, func(p *payments.Payment) error {
			switch p.Status {
			case payments.StatusSucceeded:
				refundRequired = true
				return p.Transition(payments.StatusRefunded)
			case payments.StatusPending:
				return p.Transition(payments.StatusFailed)
			default:
				return payments.ErrNoChange
			}
		})
		if err != nil && !errors.Is(err, payments.ErrNoChange) {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		return u.events.Publish(ctx, entities.BookingCancelled_v1{
			Header:            entities.NewEventHeaderWithIdempotencyKey(fmt.Sprintf("cancel-%d", bookingID)),
			BookingID:         cancelled.ID,
			CourtID:           cancelled.CourtID,
			UserID:            cancelled.UserID,
			Reason:            bookings.ReasonUserCancelled,
			RefundRequired:    refundRequired,
			CheckoutSessionID: cancelled.CheckoutSessionID,
			PaymentIntentID:   pointer.GetString(payment.PaymentIntentID),
			Amount:            payment.Amount,
			Currency:          payment.Currency,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	log.FromContext(ctx).WithField("booking_id", bookingID).Info("booking cancelled by user")

	return cancelled, nil
}
