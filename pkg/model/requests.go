package model

import "time"

// CreateReservationRequest is the typed input to the reservation workflow.
// Date is a calendar day (2006-01-02); StartTime/EndTime are wall-clock
// slots (15:04) within that day, interpreted as a half-open interval.
type CreateReservationRequest struct {
	ResourceID   string  `json:"resource_id" validate:"required,min=1,max=64"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string  `json:"end_time" validate:"required,datetime=15:04"`
	RequesterID  string  `json:"requester_id" validate:"required,min=1,max=64"`
	ContactPhone string  `json:"contact_phone,omitempty" validate:"omitempty,max=32"`
	PricePerHour float64 `json:"price_per_hour" validate:"required,gt=0"`
}

// CancelReservationRequest cancels a reservation. Staff may cancel any
// reservation; a regular requester only their own.
type CancelReservationRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	RequesterID   string `json:"requester_id" validate:"required"`
	Staff         bool   `json:"staff,omitempty"`
	Reason        string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// PaymentRequest is the typed input to a payment attempt.
type PaymentRequest struct {
	ReservationID string  `json:"reservation_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Method        string  `json:"method" validate:"required"`
	PayerID       string  `json:"payer_id" validate:"required"`
}

// PaymentResult reports the settled outcome of a payment attempt.
type PaymentResult struct {
	ReservationID string        `json:"reservation_id"`
	AttemptID     string        `json:"attempt_id"`
	Amount        float64       `json:"amount"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ProcessedAt   time.Time     `json:"processed_at"`
}
