package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"courtside/internal/conflict"
	"courtside/internal/locking"
	"courtside/internal/notify"
	reserrors "courtside/internal/reservations/errors"
	"courtside/internal/reservations/repository"
	"courtside/internal/reservations/validator"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/model"
	"courtside/pkg/sanitizer"

	"github.com/google/uuid"
)

type ReservationService interface {
	Create(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, req *model.CancelReservationRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
}

type reservationService struct {
	repo       repository.ReservationRepository
	locks      *locking.Manager
	validator  *validator.ReservationValidator
	dispatcher *notify.Dispatcher
	clk        clock.Clock
	cfg        *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	locks *locking.Manager,
	resValidator *validator.ReservationValidator,
	dispatcher *notify.Dispatcher,
	clk clock.Clock,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:       repo,
		locks:      locks,
		validator:  resValidator,
		dispatcher: dispatcher,
		clk:        clk,
		cfg:        cfg,
	}
}

// Create books a slot. The conflict check runs twice: once optimistically and
// once authoritatively under the per-resource-day lock, so for any number of
// concurrent overlapping requests exactly one reservation is persisted.
func (s *reservationService) Create(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	req.ContactPhone = sanitizer.SanitizePhone(req.ContactPhone)

	start, end, err := s.validator.ValidateCreate(req)
	if err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "resource_id", req.ResourceID, "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	candidate := s.buildReservation(req, start, end)

	// Optimistic pre-check; cheap rejection before contending for the lock.
	existing, err := s.repo.FindByResourceAndDate(ctx, req.ResourceID, req.Date)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing reservations", err)
	}
	if conflict.HasConflict(candidate, existing) {
		return nil, s.conflictError(candidate)
	}

	lockKey := slotLockKey(req.ResourceID, req.Date)
	lockOwner := fmt.Sprintf("%s:%s", req.RequesterID, uuid.NewString())

	err = s.locks.WithLock(ctx, lockKey, lockOwner, s.cfg.LockTTL, func(ctx context.Context) error {
		// Authoritative re-check: the read happens while the lock is held.
		existing, err := s.repo.FindByResourceAndDate(ctx, req.ResourceID, req.Date)
		if err != nil {
			return apperrors.Internal("Failed to check existing reservations", err)
		}
		if conflict.HasConflict(candidate, existing) {
			return s.conflictError(candidate)
		}
		if err := s.repo.Create(ctx, candidate); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, locking.ErrLockTimeout) {
			return nil, apperrors.LockTimeout(lockKey)
		}
		s.cfg.Log.Error("Failed to create reservation",
			"resource_id", req.ResourceID,
			"date", req.Date,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", candidate.ID,
		"resource_id", candidate.ResourceID,
		"date", candidate.Date,
		"start_time", candidate.StartTime,
		"amount", candidate.Amount,
	)

	// Side effects stay outside the critical section.
	s.dispatcher.ReservationCreated(ctx, candidate)

	return candidate, nil
}

// Cancel transitions a reservation to cancelled. No lock is needed: the
// conditional update in the repository serializes racing cancellations of
// the same record, and capacity is only ever freed, never claimed.
func (s *reservationService) Cancel(ctx context.Context, req *model.CancelReservationRequest) (*model.Reservation, error) {
	req.Reason = sanitizer.SanitizeText(req.Reason)
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, apperrors.Validation("Cancellation validation failed", map[string]any{"error": err.Error()})
	}

	reservation, err := s.GetByID(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}

	if !req.Staff && reservation.RequesterID != req.RequesterID {
		return nil, apperrors.Forbidden("Only the reservation holder or staff may cancel")
	}

	if !reservation.Status.Cancellable() {
		return nil, apperrors.Policy(fmt.Sprintf("Reservation is already %s", reservation.Status))
	}

	now := s.clk.Now()
	lead := reservation.StartTime.Sub(now)
	policyWindow := time.Duration(s.cfg.CancelPolicyWindowHours) * time.Hour
	if lead < policyWindow {
		return nil, apperrors.Policy(fmt.Sprintf(
			"Cancellation is not allowed less than %dh before the start time",
			s.cfg.CancelPolicyWindowHours,
		))
	}

	refund := reservation.Amount
	if lead < time.Duration(s.cfg.FullRefundLeadHours)*time.Hour {
		refund = round2(reservation.Amount * s.cfg.PartialRefundRate)
	}

	updated, err := s.repo.CancelIfActive(ctx, req.ReservationID, model.CancelUpdate{
		CancelledAt:  now,
		CancelledBy:  req.RequesterID,
		Reason:       req.Reason,
		RefundAmount: refund,
	})
	if err != nil {
		if errors.Is(err, reserrors.ErrNoMatch) {
			// Another actor reached the terminal state first; rejecting here
			// is what keeps the refund from being issued twice.
			return nil, apperrors.Policy("Reservation is no longer cancellable")
		}
		return nil, apperrors.Internal("Failed to cancel reservation", err)
	}

	s.cfg.Log.Info("Reservation cancelled",
		"id", updated.ID,
		"cancelled_by", req.RequesterID,
		"refund_amount", updated.RefundAmount,
	)

	s.dispatcher.ReservationCancelled(ctx, updated)

	return updated, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}
	return reservation, nil
}

// --- Helpers ---

func (s *reservationService) buildReservation(req *model.CreateReservationRequest, start, end time.Time) *model.Reservation {
	minutes := int(end.Sub(start) / time.Minute)
	return &model.Reservation{
		ResourceID:      req.ResourceID,
		Date:            req.Date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: minutes,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentPending,
		Amount:          round2(req.PricePerHour * float64(minutes) / 60),
		RequesterID:     req.RequesterID,
		ContactPhone:    req.ContactPhone,
	}
}

func (s *reservationService) conflictError(candidate *model.Reservation) error {
	return apperrors.Conflict(fmt.Sprintf(
		"Time slot %s-%s on %s is no longer available",
		candidate.StartTime.Format("15:04"),
		candidate.EndTime.Format("15:04"),
		candidate.Date,
	))
}

// slotLockKey covers the whole resource-day. Coarser than one per interval,
// but two requests with distinct overlapping ranges must contend for the
// same key or the under-lock re-check cannot see them both.
func slotLockKey(resourceID, date string) string {
	return fmt.Sprintf("reservation:%s:%s", resourceID, date)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
