package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/sirupsen/logrus"

	"courtbooking/internal/application/usecases/tx"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/payments"
	"courtbooking/internal/entities"
	"courtbooking/internal/observability"
)

//go:generate mockgen -destination=mocks/mock_payment_gateway.go -package=mocks courtbooking/internal/application/usecases/reconciliation PaymentGateway
type PaymentGateway interface {
	ParseWebhook(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
	RetrievePaymentIntentReceipt(ctx context.Context, paymentIntentID string) (string, error)
}

type BookingsRepo interface {
	GetByIdempotencyKey(ctx context.Context, key string) (*bookings.Booking, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*bookings.Booking, error)
	UpdateByID(ctx context.Context, id int64, updateFn func(*bookings.Booking) error) (*bookings.Booking, error)
}

type PaymentsRepo interface {
	UpdateByBookingID(ctx context.Context, bookingID int64, updateFn func(*payments.Payment) error) (*payments.Payment, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

type Usecase struct {
	bookingsRepo   BookingsRepo
	paymentsRepo   PaymentsRepo
	gateway        PaymentGateway
	events         EventPublisher
	trManager      trm.Manager
	gatewayTimeout time.Duration
}

func NewUsecase(
	bookingsRepo BookingsRepo,
	paymentsRepo PaymentsRepo,
	gateway PaymentGateway,
	events EventPublisher,
	trManager trm.Manager,
	gatewayTimeout time.Duration,
) *Usecase {
	return &Usecase{
		bookingsRepo:   bookingsRepo,
		paymentsRepo:   paymentsRepo,
		gateway:        gateway,
		events:         events,
		trManager:      trManager,
		gatewayTimeout: gatewayTimeout,
	}
}

// HandleEvent verifies a gateway notification and converges booking and payment state to it.
// Stale and duplicate deliveries are no-ops.
func (u *Usecase) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := u.gateway.ParseWebhook(payload, signatureHeader)
	if errors.Is(err, payments.ErrWebhookPayload) {
		// signed by the gateway, so a redelivery carries the same body
		log.FromContext(ctx).WithError(err).Error("acknowledging undecodable webhook")
		observability.WebhookEventsTotal.WithLabelValues("unknown", "undecodable").Inc()
		return nil
	}
	if err != nil {
		log.FromContext(ctx).
			WithField("security", errors.Is(err, payments.ErrWebhookSignature)).
			WithError(err).
			Warn("rejected webhook")
		observability.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	ctx = log.ToContext(ctx, logger)

	err = u.dispatch(ctx, event)
	observability.WebhookEventsTotal.WithLabelValues(event.Kind.String(), webhookOutcome(err)).Inc()
	return err
}

func (u *Usecase) dispatch(ctx context.Context, event payments.WebhookEvent) error {
	switch event.Kind {
	case payments.EventCheckoutCompleted:
		if !event.Paid {
			log.FromContext(ctx).Info("checkout completed without a settled payment, waiting for a follow-up event")
			return nil
		}
		if event.IdempotencyKey == "" {
			return payments.ErrWebhookCorrelationMissing
		}
		return u.confirm(ctx, event)

	case payments.EventCheckoutExpired:
		if event.IdempotencyKey == "" {
			return payments.ErrWebhookCorrelationMissing
		}
		return u.fail(ctx, event, bookings.ReasonPaymentExpired)

	case payments.EventPaymentFailed:
		if event.IdempotencyKey == "" {
			return payments.ErrWebhookCorrelationMissing
		}
		return u.fail(ctx, event, bookings.ReasonPaymentFailed)

	default:
		log.FromContext(ctx).Debug("ignoring unhandled webhook event")
		return nil
	}
}

func (u *Usecase) confirm(ctx context.Context, event payments.WebhookEvent) error {
	logger := log.FromContext(ctx).WithField("idempotency_key", event.IdempotencyKey)

	booking, err := u.bookingsRepo.GetByIdempotencyKey(ctx, event.IdempotencyKey)
	if errors.Is(err, bookings.ErrNotFound) {
		logger.Warn("no booking for completed checkout")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking.Status != bookings.StatusPending {
		logger.WithField("status", booking.Status).Info("booking already resolved, skipping completed checkout")
		return nil
	}

	receiptURL := u.fetchReceipt(ctx, event.PaymentIntentID)

	return u.trManager.DoWithSettings(ctx, tx.ReadCommitted(), func(ctx context.Context) error {
		confirmed, err := u.bookingsRepo.UpdateByID(ctx, booking.ID, func(b *bookings.Booking) error {
			if b.Status != bookings.StatusPending {
				return bookings.ErrNoChange
			}
			return b.Transition(bookings.StatusConfirmed)
		})
		if errors.Is(err, bookings.ErrNoChange) {
			logger.Info("booking resolved concurrently, skipping completed checkout")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		payment, err := u.paymentsRepo.UpdateByBookingID(ctx, booking.ID, func(p *payments.Payment) error {
			if p.Status != payments.StatusPending {
				return payments.ErrNoChange
			}
			return p.Succeed(event.PaymentIntentID, receiptURL)
		})
		if err != nil && !errors.Is(err, payments.ErrNoChange) {
			return fmt.Errorf("failed to mark payment succeeded: %w", err)
		}

		err = u.events.Publish(ctx, entities.BookingConfirmed_v1{
			Header:          entities.NewEventHeaderWithIdempotencyKey(event.ID),
			BookingID:       confirmed.ID,
			CourtID:         confirmed.CourtID,
			UserID:          confirmed.UserID,
			PaymentIntentID: event.PaymentIntentID,
			ReceiptURL:      receiptURL,
			Amount:          payment.Amount,
			Currency:        payment.Currency,
		})
		if err != nil {
			return fmt.Errorf("failed to publish booking confirmed: %w", err)
		}

		logger.WithField("booking_id", confirmed.ID).Info("booking confirmed")
		return nil
	})
}

// fetchReceipt is best effort: a confirmed payment must not wait on the receipt.
func (u *Usecase) fetchReceipt(ctx context.Context, paymentIntentID string) string {
	if paymentIntentID == "" {
		return ""
	}

	if u.gatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.gatewayTimeout)
		defer cancel()
	}

	receiptURL, err := u.gateway.RetrievePaymentIntentReceipt(ctx, paymentIntentID)
	if err != nil {
		log.FromContext(ctx).
			WithError(err).
			WithField("payment_intent_id", paymentIntentID).
			Warn("failed to retrieve receipt")
		return ""
	}

	return receiptURL
}

func (u *Usecase) fail(ctx context.Context, event payments.WebhookEvent, reason bookings.CancellationReason) error {
	logger := log.FromContext(ctx).WithField("idempotency_key", event.IdempotencyKey)

	booking, err := u.lookup(ctx, event)
	if errors.Is(err, bookings.ErrNotFound) {
		logger.Warn("no booking for failed checkout")
		return nil
	}
	if err != nil {
		return err
	}
	if booking.Status != bookings.StatusPending {
		logger.WithField("status", booking.Status).Info("booking already resolved, skipping failed checkout")
		return nil
	}

	return u.trManager.DoWithSettings(ctx, tx.ReadCommitted(), func(ctx context.Context) error {
		payment, err := u.paymentsRepo.UpdateByBookingID(ctx, booking.ID, func(p *payments.Payment) error {
			if p.Status != payments.StatusPending {
				return payments.ErrNoChange
			}
			return p.Transition(payments.StatusFailed)
		})
		if err != nil && !errors.Is(err, payments.ErrNoChange) {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}

		cancelled, err := u.bookingsRepo.UpdateByID(ctx, booking.ID, func(b *bookings.Booking) error {
			if b.Status != bookings.StatusPending {
				return bookings.ErrNoChange
			}
			return b.Transition(bookings.StatusCancelled)
		})
		if errors.Is(err, bookings.ErrNoChange) {
			logger.Info("booking resolved concurrently, skipping failed checkout")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		err = u.events.Publish(ctx, entities.BookingCancelled_v1{
			Header:            entities.NewEventHeaderWithIdempotencyKey(event.ID),
			BookingID:         cancelled.ID,
			CourtID:           cancelled.CourtID,
			UserID:            cancelled.UserID,
			Reason:            reason,
			CheckoutSessionID: cancelled.CheckoutSessionID,
			PaymentIntentID:   pointer.GetString(payment.PaymentIntentID),
			Amount:            payment.Amount,
			Currency:          payment.Currency,
		})
		if err != nil {
			return fmt.Errorf("failed to publish booking cancelled: %w", err)
		}

		logger.WithField("booking_id", cancelled.ID).WithField("reason", reason).Info("booking cancelled")
		return nil
	})
}

// lookup matches by idempotency key first and falls back to the stored checkout session.
func (u *Usecase) lookup(ctx context.Context, event payments.WebhookEvent) (*bookings.Booking, error) {
	booking, err := u.bookingsRepo.GetByIdempotencyKey(ctx, event.IdempotencyKey)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, bookings.ErrNotFound) {
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", err)
	}
	if event.CheckoutSessionID == "" {
		return nil, err
	}

	booking, err = u.bookingsRepo.GetByCheckoutSessionID(ctx, event.CheckoutSessionID)
	if err != nil && !errors.Is(err, bookings.ErrNotFound) {
		return nil, fmt.Errorf("failed to get booking by checkout session: %w", err)
	}
	return booking, err
}

func webhookOutcome(err error) string {
	switch {
	case err == nil:
		return "processed"
	case errors.Is(err, payments.ErrWebhookCorrelationMissing):
		return "correlation_missing"
	default:
		return "error"
	}
}
