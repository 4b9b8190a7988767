package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/entities"
)

func (h *Handler) RefundOnBookingCancelledHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"refund_on_booking_cancelled",
		func(ctx context.Context, event *entities.BookingCancelled_v1) error {
			if !event.RefundRequired {
				return nil
			}

			logger := log.FromContext(ctx).WithField("booking_id", event.BookingID)
			if event.PaymentIntentID == "" {
				logger.Warn("refund required but payment intent is unknown")
				return nil
			}

			logger.Info("requesting refund")

			return h.commandBus.Send(ctx, &entities.RefundPayment{
				Header:          entities.NewEventHeaderWithIdempotencyKey(fmt.Sprintf("refund-%d", event.BookingID)),
				BookingID:       event.BookingID,
				PaymentIntentID: event.PaymentIntentID,
			})
		},
	)
}

// ExpireCheckoutOnBookingCancelledHandler closes the checkout of a booking cancelled before
// it was paid, so a late payment can't land on a cancelled booking. A failed payment leaves
// the session open for another attempt, so it is closed too.
func (h *Handler) ExpireCheckoutOnBookingCancelledHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"expire_checkout_on_booking_cancelled",
		func(ctx context.Context, event *entities.BookingCancelled_v1) error {
			if !closesCheckout(event.Reason) || event.RefundRequired || event.CheckoutSessionID == "" {
				return nil
			}

			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("expiring checkout session")

			return h.commandBus.Send(ctx, &entities.ExpireCheckoutSession{
				Header:            entities.NewEventHeaderWithIdempotencyKey(fmt.Sprintf("expire-%d", event.BookingID)),
				BookingID:         event.BookingID,
				CheckoutSessionID: event.CheckoutSessionID,
			})
		},
	)
}

func closesCheckout(reason bookings.CancellationReason) bool {
	return reason == bookings.ReasonUserCancelled || reason == bookings.ReasonPaymentFailed
}
