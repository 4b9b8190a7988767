package clients

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"courtbooking/internal/domain/payments"
)

// ParseWebhook verifies the Stripe-Signature header and reduces the event to a payments.WebhookEvent.
func (c PaymentsClient) ParseWebhook(payload []byte, signatureHeader string) (payments.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return payments.WebhookEvent{}, fmt.Errorf("%w: %w", payments.ErrWebhookSignature, err)
	}

	parsed := payments.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return payments.WebhookEvent{}, fmt.Errorf("%w: checkout session: %w", payments.ErrWebhookPayload, err)
		}

		parsed.Kind = payments.EventCheckoutExpired
		if event.Type == stripe.EventTypeCheckoutSessionCompleted {
			parsed.Kind = payments.EventCheckoutCompleted
		}
		parsed.CheckoutSessionID = session.ID
		parsed.IdempotencyKey = session.Metadata[payments.MetadataIdempotencyKey]
		parsed.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
		if session.PaymentIntent != nil {
			parsed.PaymentIntentID = session.PaymentIntent.ID
		}

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return payments.WebhookEvent{}, fmt.Errorf("%w: payment intent: %w", payments.ErrWebhookPayload, err)
		}

		parsed.Kind = payments.EventPaymentFailed
		parsed.PaymentIntentID = pi.ID
		parsed.IdempotencyKey = pi.Metadata[payments.MetadataIdempotencyKey]

	default:
		parsed.Kind = payments.EventUnhandled
	}

	return parsed, nil
}
