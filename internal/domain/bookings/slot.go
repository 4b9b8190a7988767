package bookings

import "time"

type CancellationReason string

const (
	ReasonPaymentExpired CancellationReason = "payment_expired"
	ReasonPaymentFailed  CancellationReason = "payment_failed"
	ReasonUserCancelled  CancellationReason = "user_cancelled"
)

type Slot struct {
	BookingID int64     `json:"booking_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`
}
