package app

import (
	"context"

	"courtbooking/internal/domain/payments"
)

// PaymentGateway is everything the service needs from the payment provider.
//
//go:generate mockgen -destination=mocks/payment_gateway_mock.go -package=mocks . PaymentGateway
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	RetrievePaymentIntentReceipt(ctx context.Context, paymentIntentID string) (string, error)
	ParseWebhook(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}
