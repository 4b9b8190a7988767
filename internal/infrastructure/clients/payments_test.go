package clients_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"courtbooking/internal/domain/payments"
	"courtbooking/internal/infrastructure/clients"
)

const webhookSecret = "whsec_test"

func newClient(t *testing.T, handler http.HandlerFunc) clients.PaymentsClient {
	t.Helper()

	var backends *stripe.Backends
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(srv.URL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	return clients.NewPaymentsClient(clients.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		SuccessURL:    "https://courts.example.com/success",
		CancelURL:     "https://courts.example.com/cancel",
	}, backends)
}

func signedEvent(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":          "evt_123",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	c := newClient(t, nil)

	payload, header := signedEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_123",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"metadata":       map[string]string{payments.MetadataIdempotencyKey: "key-a"},
	})

	event, err := c.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payments.WebhookEvent{
		ID:                "evt_123",
		Type:              "checkout.session.completed",
		Kind:              payments.EventCheckoutCompleted,
		IdempotencyKey:    "key-a",
		CheckoutSessionID: "cs_123",
		PaymentIntentID:   "pi_123",
		Paid:              true,
	}, event)
}

func TestParseWebhook_CheckoutExpired(t *testing.T) {
	c := newClient(t, nil)

	payload, header := signedEvent(t, "checkout.session.expired", map[string]any{
		"id":             "cs_123",
		"object":         "checkout.session",
		"payment_status": "unpaid",
		"metadata":       map[string]string{payments.MetadataIdempotencyKey: "key-a"},
	})

	event, err := c.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payments.EventCheckoutExpired, event.Kind)
	assert.False(t, event.Paid)
	assert.Equal(t, "key-a", event.IdempotencyKey)
	assert.Empty(t, event.PaymentIntentID)
}

func TestParseWebhook_PaymentFailed(t *testing.T) {
	c := newClient(t, nil)

	payload, header := signedEvent(t, "payment_intent.payment_failed", map[string]any{
		"id":       "pi_123",
		"object":   "payment_intent",
		"metadata": map[string]string{payments.MetadataIdempotencyKey: "key-a"},
	})

	event, err := c.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payments.EventPaymentFailed, event.Kind)
	assert.Equal(t, "pi_123", event.PaymentIntentID)
	assert.Equal(t, "key-a", event.IdempotencyKey)
}

func TestParseWebhook_Unhandled(t *testing.T) {
	c := newClient(t, nil)

	payload, header := signedEvent(t, "customer.created", map[string]any{"id": "cus_123", "object": "customer"})

	event, err := c.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payments.EventUnhandled, event.Kind)
}

func TestParseWebhook_UndecodableObject(t *testing.T) {
	c := newClient(t, nil)

	testCases := []struct {
		eventType string
		object    map[string]any
	}{
		{"checkout.session.completed", map[string]any{"id": "cs_123", "object": "checkout.session", "amount_total": "lots"}},
		{"payment_intent.payment_failed", map[string]any{"id": "pi_123", "object": "payment_intent", "amount": "lots"}},
	}

	for _, tc := range testCases {
		t.Run(tc.eventType, func(t *testing.T) {
			payload, header := signedEvent(t, tc.eventType, tc.object)

			_, err := c.ParseWebhook(payload, header)
			assert.ErrorIs(t, err, payments.ErrWebhookPayload)
			assert.NotErrorIs(t, err, payments.ErrWebhookSignature)
		})
	}
}

func TestParseWebhook_InvalidSignature(t *testing.T) {
	c := newClient(t, nil)

	payload, _ := signedEvent(t, "checkout.session.completed", map[string]any{"id": "cs_123"})
	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})

	_, err := c.ParseWebhook(payload, forged.Header)
	assert.ErrorIs(t, err, payments.ErrWebhookSignature)

	_, err = c.ParseWebhook(payload, "")
	assert.ErrorIs(t, err, payments.ErrWebhookSignature)
}

func TestCreateCheckoutSession(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "checkout-key-a", r.Header.Get("Idempotency-Key"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "75000", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "inr", r.Form.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "key-a", r.Form.Get("metadata[idempotencyKey]"))
		assert.Equal(t, "key-a", r.Form.Get("payment_intent_data[metadata][idempotencyKey]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"cs_123","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_123"}`)
	})

	session, err := c.CreateCheckoutSession(context.Background(), payments.CheckoutSessionRequest{
		Amount:      75000,
		Currency:    "INR",
		Description: "Court 1",
		Metadata: payments.CheckoutMetadata{
			CourtID:        1,
			StartTime:      time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
			EndTime:        time.Date(2025, 1, 1, 11, 30, 0, 0, time.UTC),
			UserID:         "user-1",
			IdempotencyKey: "key-a",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, payments.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/c/pay/cs_123"}, session)
}

func TestRetrievePaymentIntentReceipt(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		assert.Equal(t, "latest_charge", r.URL.Query().Get("expand[0]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","latest_charge":{"id":"ch_1","object":"charge","receipt_url":"https://pay.stripe.com/receipts/1"}}`)
	})

	receipt, err := c.RetrievePaymentIntentReceipt(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.stripe.com/receipts/1", receipt)
}

func TestRefund_AlreadyRefunded(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refund-1", r.Header.Get("Idempotency-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"charge_already_refunded","message":"Charge has already been refunded."}}`)
	})

	assert.NoError(t, c.Refund(context.Background(), "pi_123", "refund-1"))
}

func TestRefund_Failure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = fmt.Fprint(w, `{"error":{"type":"card_error","code":"card_declined","message":"declined"}}`)
	})

	assert.Error(t, c.Refund(context.Background(), "pi_123", "refund-1"))
}

func TestExpireCheckoutSession_AlreadyClosed(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_123/expire", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Only Checkout Sessions with a status in [\"open\"] can be expired."}}`)
	})

	assert.NoError(t, c.ExpireCheckoutSession(context.Background(), "cs_123"))
}
