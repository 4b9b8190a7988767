package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"courtbooking/internal/domain/payments"
	"courtbooking/internal/observability"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// PaymentsClient talks to Stripe hosted checkout.
type PaymentsClient struct {
	api    *client.API
	config StripeConfig
}

func NewPaymentsClient(config StripeConfig, backends *stripe.Backends) PaymentsClient {
	return PaymentsClient{
		api:    client.New(config.SecretKey, backends),
		config: config,
	}
}

func (c PaymentsClient) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	defer observeGateway("create_checkout_session", time.Now())

	metadata := req.Metadata.Map()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.config.SuccessURL),
		CancelURL:  stripe.String(c.config.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.Metadata.IdempotencyKey)

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return payments.CheckoutSession{}, fmt.Errorf("error creating checkout session: %w", err)
	}

	log.FromContext(ctx).WithField("checkout_session_id", session.ID).Info("checkout session created")

	return payments.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c PaymentsClient) RetrievePaymentIntentReceipt(ctx context.Context, paymentIntentID string) (string, error) {
	defer observeGateway("retrieve_payment_intent", time.Now())

	params := &stripe.PaymentIntentParams{}
	params.AddExpand("latest_charge")
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("error retrieving payment intent %s: %w", paymentIntentID, err)
	}
	if pi.LatestCharge == nil {
		return "", nil
	}

	return pi.LatestCharge.ReceiptURL, nil
}

func (c PaymentsClient) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	defer observeGateway("refund", time.Now())

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	_, err := c.api.Refunds.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			log.FromContext(ctx).Infof("payment intent %s already refunded", paymentIntentID)
			return nil
		}
		return fmt.Errorf("error refunding payment intent %s: %w", paymentIntentID, err)
	}

	return nil
}

// ExpireCheckoutSession closes an open session so it can no longer be paid.
func (c PaymentsClient) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	defer observeGateway("expire_checkout_session", time.Now())

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	params.SetIdempotencyKey("expire-" + sessionID)

	_, err := c.api.CheckoutSessions.Expire(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 400 {
			// session is already complete or expired
			log.FromContext(ctx).Infof("checkout session %s is not open: %s", sessionID, stripeErr.Msg)
			return nil
		}
		return fmt.Errorf("error expiring checkout session %s: %w", sessionID, err)
	}

	return nil
}

func observeGateway(operation string, start time.Time) {
	observability.GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
