package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"

	"courtbooking/internal/application/usecases/tx"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/entities"
)

const batchSize = 100

type BookingsRepo interface {
	ListEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]bookings.Booking, error)
	UpdateByID(ctx context.Context, id int64, updateFn func(*bookings.Booking) error) (*bookings.Booking, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

// Usecase moves confirmed bookings whose slot has ended to COMPLETED.
type Usecase struct {
	bookingsRepo BookingsRepo
	events       EventPublisher
	trManager    trm.Manager
}

func NewUsecase(bookingsRepo BookingsRepo, events EventPublisher, trManager trm.Manager) *Usecase {
	return &Usecase{
		bookingsRepo: bookingsRepo,
		events:       events,
		trManager:    trManager,
	}
}

func (u *Usecase) CompleteEnded(ctx context.Context, now time.Time) (int, error) {
	ended, err := u.bookingsRepo.ListEndedConfirmed(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list ended bookings: %w", err)
	}

	completed := 0
	for _, b := range ended {
		changed, err := u.complete(ctx, b.ID)
		if err != nil {
			return completed, err
		}
		if changed {
			completed++
		}
	}

	return completed, nil
}

func (u *Usecase) complete(ctx context.Context, bookingID int64) (bool, error) {
	changed := false

	err := u.trManager.DoWithSettings(ctx, tx.ReadCommitted(), func(ctx context.Context) error {
		b, err := u.bookingsRepo.UpdateByID(ctx, bookingID, func(b *bookings.Booking) error {
			if b.Status != bookings.StatusConfirmed {
				return bookings.ErrNoChange
			}
			return b.Transition(bookings.StatusCompleted)
		})
		if errors.Is(err, bookings.ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}
		changed = true

		return u.events.Publish(ctx, entities.BookingCompleted_v1{
			Header:    entities.NewEventHeaderWithIdempotencyKey(fmt.Sprintf("complete-%d", b.ID)),
			BookingID: b.ID,
			CourtID:   b.CourtID,
		})
	})
	if err != nil {
		return false, fmt.Errorf("complete booking %d: %w", bookingID, err)
	}

	return changed, nil
}

// Run sweeps every interval until ctx is done.
func (u *Usecase) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("completion interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := u.CompleteEnded(ctx, time.Now())
			if err != nil {
				log.FromContext(ctx).WithError(err).Error("completion sweep failed")
				continue
			}
			if n > 0 {
				log.FromContext(ctx).WithField("completed", n).Info("completed ended bookings")
			}
		}
	}
}
