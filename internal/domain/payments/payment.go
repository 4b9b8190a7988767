package payments

import (
	"errors"
	"fmt"
	"time"
)

const GatewayStripe = "stripe"

var (
	ErrNotFound          = errors.New("payment not found")
	ErrIllegalTransition = errors.New("illegal payment status transition")
	ErrNoChange          = errors.New("payment left unchanged")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusSucceeded, StatusFailed},
	StatusSucceeded: {StatusRefunded},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID                int64     `db:"id" json:"id"`
	BookingID         int64     `db:"booking_id" json:"booking_id"`
	Gateway           string    `db:"gateway" json:"gateway"`
	CheckoutSessionID string    `db:"checkout_session_id" json:"checkout_session_id"`
	PaymentIntentID   *string   `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	ReceiptURL        *string   `db:"receipt_url" json:"receipt_url,omitempty"`
	Amount            int64     `db:"amount" json:"amount"`
	Currency          string    `db:"currency" json:"currency"`
	Status            Status    `db:"status" json:"status"`
	IdempotencyKey    string    `db:"idempotency_key" json:"idempotency_key"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Payment) Transition(to Status) error {
	if !p.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, to)
	}
	p.Status = to
	return nil
}

// Succeed records the captured charge.
func (p *Payment) Succeed(paymentIntentID, receiptURL string) error {
	if err := p.Transition(StatusSucceeded); err != nil {
		return err
	}
	if paymentIntentID != "" {
		p.PaymentIntentID = &paymentIntentID
	}
	if receiptURL != "" {
		p.ReceiptURL = &receiptURL
	}
	return nil
}
