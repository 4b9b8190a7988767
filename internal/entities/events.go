package entities

import (
	"time"

	"courtbooking/internal/domain/bookings"
)

type Event interface {
	IsInternal() bool
}

type BookingReserved_v1 struct {
	Header EventHeader `json:"header"`

	BookingID         int64     `json:"booking_id"`
	CourtID           int64     `json:"court_id"`
	UserID            string    `json:"user_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	CheckoutSessionID string    `json:"checkout_session_id"`
}

func (e BookingReserved_v1) IsInternal() bool {
	return false
}

type BookingConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID       int64  `json:"booking_id"`
	CourtID         int64  `json:"court_id"`
	UserID          string `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ReceiptURL      string `json:"receipt_url"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

func (e BookingConfirmed_v1) IsInternal() bool {
	return false
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID         int64                       `json:"booking_id"`
	CourtID           int64                       `json:"court_id"`
	UserID            string                      `json:"user_id"`
	Reason            bookings.CancellationReason `json:"reason"`
	RefundRequired    bool                        `json:"refund_required"`
	CheckoutSessionID string                      `json:"checkout_session_id"`
	PaymentIntentID   string                      `json:"payment_intent_id,omitempty"`
	Amount            int64                       `json:"amount"`
	Currency          string                      `json:"currency"`
}

func (e BookingCancelled_v1) IsInternal() bool {
	return false
}

type BookingCompleted_v1 struct {
	Header EventHeader `json:"header"`

	BookingID int64 `json:"booking_id"`
	CourtID   int64 `json:"court_id"`
}

func (e BookingCompleted_v1) IsInternal() bool {
	return false
}

type PaymentRefunded_v1 struct {
	Header EventHeader `json:"header"`

	BookingID       int64  `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (e PaymentRefunded_v1) IsInternal() bool {
	return false
}
