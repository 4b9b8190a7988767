package entities

type RefundPayment struct {
	Header EventHeader `json:"header"`

	BookingID       int64  `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type ExpireCheckoutSession struct {
	Header EventHeader `json:"header"`

	BookingID         int64  `json:"booking_id"`
	CheckoutSessionID string `json:"checkout_session_id"`
}
