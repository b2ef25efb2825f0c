package model

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
	StatusNoShow    ReservationStatus = "no_show"
)

// Blocking reports whether a reservation in this status occupies its time
// slot for conflict purposes.
func (s ReservationStatus) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Cancellable reports whether a reservation in this status may still be
// cancelled. Cancelled and completed are terminal.
func (s ReservationStatus) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentProcessing    PaymentStatus = "processing"
	PaymentPaid          PaymentStatus = "paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentPartialRefund PaymentStatus = "partial_refund"
)

// Payable reports whether a new payment attempt may start from this status.
// Processing is held only while an attempt owns the payment lock.
func (s PaymentStatus) Payable() bool {
	return s == PaymentPending || s == PaymentFailed
}

type Reservation struct {
	ID              string            `json:"id,omitempty" bson:"_id,omitempty"`
	ResourceID      string            `json:"resource_id" bson:"resource_id"`
	Date            string            `json:"date" bson:"date"`
	StartTime       time.Time         `json:"start_time" bson:"start_time"`
	EndTime         time.Time         `json:"end_time" bson:"end_time"`
	DurationMinutes int               `json:"duration_minutes" bson:"duration_minutes"`
	Status          ReservationStatus `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus     `json:"payment_status" bson:"payment_status"`
	Amount          float64           `json:"amount" bson:"amount"`
	RefundAmount    float64           `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`

	RequesterID  string `json:"requester_id" bson:"requester_id"`
	ContactPhone string `json:"contact_phone,omitempty" bson:"contact_phone,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// CancelUpdate carries the fields written when a reservation is cancelled.
type CancelUpdate struct {
	CancelledAt  time.Time
	CancelledBy  string
	Reason       string
	RefundAmount float64
}
