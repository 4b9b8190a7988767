package commands

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"courtbooking/internal/entities"
)

func (h *Handler) RefundPaymentHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"refund_payment",
		func(ctx context.Context, command *entities.RefundPayment) error {
			log.FromContext(ctx).
				WithField("booking_id", command.BookingID).
				Info("Refunding payment")

			err := h.paymentService.Refund(ctx, command.PaymentIntentID, command.Header.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("error refunding payment: %w", err)
			}

			err = h.eb.Publish(ctx, &entities.PaymentRefunded_v1{
				Header:          entities.NewEventHeaderWithIdempotencyKey(command.Header.IdempotencyKey),
				BookingID:       command.BookingID,
				PaymentIntentID: command.PaymentIntentID,
			})
			if err != nil {
				return fmt.Errorf("error publishing PaymentRefunded_v1 event: %w", err)
			}

			return nil
		},
	)
}

func (h *Handler) ExpireCheckoutSessionHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"expire_checkout_session",
		func(ctx context.Context, command *entities.ExpireCheckoutSession) error {
			log.FromContext(ctx).
				WithField("booking_id", command.BookingID).
				Info("Expiring checkout session")

			return h.paymentService.ExpireCheckoutSession(ctx, command.CheckoutSessionID)
		},
	)
}
