package notify

import (
	"time"

	"courtside/pkg/model"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventPaymentSettled       = "payment.settled"
)

// Event is the payload published to the reservation-events topic.
type Event struct {
	Type          string                  `json:"type"`
	ReservationID string                  `json:"reservation_id"`
	ResourceID    string                  `json:"resource_id"`
	Date          string                  `json:"date"`
	Status        model.ReservationStatus `json:"status"`
	PaymentStatus model.PaymentStatus     `json:"payment_status,omitempty"`
	Amount        float64                 `json:"amount,omitempty"`
	RefundAmount  float64                 `json:"refund_amount,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}
