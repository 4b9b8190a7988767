package payments

import (
	"errors"
	"strconv"
	"time"
)

var (
	ErrGatewaySession            = errors.New("payment gateway did not return a checkout session")
	ErrWebhookSignature          = errors.New("webhook signature verification failed")
	ErrWebhookCorrelationMissing = errors.New("webhook event has no idempotency key")
	ErrWebhookPayload            = errors.New("webhook event object could not be decoded")
)

// Metadata keys attached to every checkout session and its payment intent.
const (
	MetadataCourtID        = "courtId"
	MetadataStartTime      = "startTime"
	MetadataEndTime        = "endTime"
	MetadataUserID         = "userId"
	MetadataIdempotencyKey = "idempotencyKey"
)

type CheckoutMetadata struct {
	CourtID        int64
	StartTime      time.Time
	EndTime        time.Time
	UserID         string
	IdempotencyKey string
}

func (m CheckoutMetadata) Map() map[string]string {
	return map[string]string{
		MetadataCourtID:        strconv.FormatInt(m.CourtID, 10),
		MetadataStartTime:      m.StartTime.UTC().Format(time.RFC3339),
		MetadataEndTime:        m.EndTime.UTC().Format(time.RFC3339),
		MetadataUserID:         m.UserID,
		MetadataIdempotencyKey: m.IdempotencyKey,
	}
}

type CheckoutSessionRequest struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    CheckoutMetadata
}

type CheckoutSession struct {
	ID  string
	URL string
}

func (s CheckoutSession) Usable() bool {
	return s.ID != "" && s.URL != ""
}

type EventKind int

const (
	EventUnhandled EventKind = iota
	EventCheckoutCompleted
	EventCheckoutExpired
	EventPaymentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventCheckoutExpired:
		return "checkout_expired"
	case EventPaymentFailed:
		return "payment_failed"
	default:
		return "unhandled"
	}
}

// WebhookEvent is a verified gateway notification reduced to what reconciliation needs.
type WebhookEvent struct {
	ID                string
	Type              string
	Kind              EventKind
	IdempotencyKey    string
	CheckoutSessionID string
	PaymentIntentID   string
	Paid              bool
}
