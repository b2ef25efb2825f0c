package notify

import (
	"context"
	"fmt"

	"courtside/internal/breaker"
	"courtside/pkg/clock"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

// Dispatcher fans out non-critical side effects (event stream, email) after
// a workflow commits. Every call is best-effort: failures and open breakers
// are logged and swallowed, never propagated to the primary workflow.
type Dispatcher struct {
	events        Publisher
	email         EmailSender
	eventsBreaker *breaker.Breaker
	emailBreaker  *breaker.Breaker
	clk           clock.Clock
	log           *logger.Logger
}

func NewDispatcher(
	events Publisher,
	email EmailSender,
	eventsBreaker *breaker.Breaker,
	emailBreaker *breaker.Breaker,
	clk clock.Clock,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		events:        events,
		email:         email,
		eventsBreaker: eventsBreaker,
		emailBreaker:  emailBreaker,
		clk:           clk,
		log:           log,
	}
}

func (d *Dispatcher) ReservationCreated(ctx context.Context, r *model.Reservation) {
	d.publish(ctx, Event{
		Type:          EventReservationCreated,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		Date:          r.Date,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Amount:        r.Amount,
		OccurredAt:    d.clk.Now(),
	})
	d.send(ctx, EmailMessage{
		To:      r.RequesterID,
		Subject: "Reservation received",
		Text: fmt.Sprintf("Your reservation for %s on %s (%s-%s) is pending payment.",
			r.ResourceID, r.Date, r.StartTime.Format("15:04"), r.EndTime.Format("15:04")),
	})
}

func (d *Dispatcher) ReservationCancelled(ctx context.Context, r *model.Reservation) {
	d.publish(ctx, Event{
		Type:          EventReservationCancelled,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		Date:          r.Date,
		Status:        r.Status,
		RefundAmount:  r.RefundAmount,
		OccurredAt:    d.clk.Now(),
	})
	d.send(ctx, EmailMessage{
		To:      r.RequesterID,
		Subject: "Reservation cancelled",
		Text: fmt.Sprintf("Your reservation for %s on %s was cancelled. Refund amount: %.2f.",
			r.ResourceID, r.Date, r.RefundAmount),
	})
}

func (d *Dispatcher) PaymentSettled(ctx context.Context, r *model.Reservation, result *model.PaymentResult) {
	d.publish(ctx, Event{
		Type:          EventPaymentSettled,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		Date:          r.Date,
		Status:        r.Status,
		PaymentStatus: result.Status,
		Amount:        result.Amount,
		OccurredAt:    d.clk.Now(),
	})
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	if d.events == nil {
		return
	}
	err := d.protect(ctx, d.eventsBreaker, func(ctx context.Context) error {
		return d.events.Publish(ctx, event)
	})
	if err != nil {
		d.log.Warn("Failed to publish event",
			"event_type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg EmailMessage) {
	if d.email == nil || msg.To == "" {
		return
	}
	err := d.protect(ctx, d.emailBreaker, func(ctx context.Context) error {
		return d.email.Send(ctx, msg)
	})
	if err != nil {
		d.log.Warn("Failed to send email", "subject", msg.Subject, "error", err)
	}
}

// protect runs fn under b when a breaker was wired, directly otherwise.
func (d *Dispatcher) protect(ctx context.Context, b *breaker.Breaker, fn func(ctx context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	return b.Execute(ctx, fn)
}
