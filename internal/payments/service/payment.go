package service

import (
	"context"
	"errors"
	"fmt"

	"courtside/internal/breaker"
	"courtside/internal/locking"
	"courtside/internal/notify"
	"courtside/internal/payments/gateway"
	reserrors "courtside/internal/reservations/errors"
	"courtside/internal/reservations/repository"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/model"

	"github.com/google/uuid"
)

type PaymentService interface {
	Attempt(ctx context.Context, req *model.PaymentRequest) (*model.PaymentResult, error)
}

type paymentService struct {
	repo           repository.ReservationRepository
	locks          *locking.Manager
	gateway        gateway.Gateway
	gatewayBreaker *breaker.Breaker
	dispatcher     *notify.Dispatcher
	clk            clock.Clock
	cfg            *config.Config
}

func NewPaymentService(
	repo repository.ReservationRepository,
	locks *locking.Manager,
	gw gateway.Gateway,
	gatewayBreaker *breaker.Breaker,
	dispatcher *notify.Dispatcher,
	clk clock.Clock,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:           repo,
		locks:          locks,
		gateway:        gw,
		gatewayBreaker: gatewayBreaker,
		dispatcher:     dispatcher,
		clk:            clk,
		cfg:            cfg,
	}
}

// Attempt serializes payment attempts per reservation. The lock only guards
// the status transition to processing; once the reservation is marked
// processing, later attempts are rejected by the status re-read with no
// gateway interaction, so the gateway can never be charged twice.
func (s *paymentService) Attempt(ctx context.Context, req *model.PaymentRequest) (*model.PaymentResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	lockKey := "payment:" + req.ReservationID
	lockOwner := fmt.Sprintf("%s:%s", req.PayerID, uuid.NewString())

	// A busy payment lock means an attempt is mid-transition; fail fast
	// instead of queueing behind it.
	outcome := s.locks.AcquireWithRetry(ctx, lockKey, lockOwner, s.cfg.LockTTL, s.cfg.PaymentLockRetries, s.cfg.LockBaseDelay)
	switch outcome.Status {
	case locking.StatusBusy:
		return nil, apperrors.Conflict("Payment already in progress for this reservation")
	case locking.StatusError:
		return nil, apperrors.Internal("Failed to acquire payment lock", outcome.Err)
	}

	reservation, err := func() (*model.Reservation, error) {
		defer func() {
			if !s.locks.Release(ctx, lockKey, lockOwner) {
				s.cfg.Log.Warn("Payment lock was not released cleanly", "key", lockKey)
			}
		}()

		reservation, err := s.fetch(ctx, req.ReservationID)
		if err != nil {
			return nil, err
		}
		if !reservation.PaymentStatus.Payable() {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"Reservation is not payable in payment status %q", reservation.PaymentStatus,
			))
		}

		err = s.repo.TransitionPayment(ctx, req.ReservationID,
			[]model.PaymentStatus{model.PaymentPending, model.PaymentFailed},
			model.PaymentProcessing,
		)
		if err != nil {
			if errors.Is(err, reserrors.ErrNoMatch) {
				return nil, apperrors.Conflict("Reservation is no longer payable")
			}
			return nil, apperrors.Internal("Failed to mark payment as processing", err)
		}
		return reservation, nil
	}()
	if err != nil {
		return nil, err
	}

	// The gateway call runs outside the lock: the processing status already
	// blocks concurrent attempts.
	attemptID := uuid.NewString()
	var charge *gateway.ChargeResult
	gwErr := s.gatewayBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		charge, err = s.gateway.Charge(ctx, gateway.ChargeRequest{
			ReservationID: req.ReservationID,
			AttemptID:     attemptID,
			Amount:        req.Amount,
			Method:        req.Method,
			PayerID:       req.PayerID,
		})
		return err
	})

	if gwErr != nil {
		s.settle(ctx, req.ReservationID, model.PaymentFailed)
		s.cfg.Log.Error("Payment attempt failed",
			"reservation_id", req.ReservationID,
			"attempt_id", attemptID,
			"error", gwErr,
		)
		if errors.Is(gwErr, breaker.ErrOpen) {
			return nil, apperrors.CircuitOpen("payment gateway")
		}
		return nil, apperrors.PaymentFailed("Payment attempt failed", gwErr)
	}

	s.settle(ctx, req.ReservationID, model.PaymentPaid)

	result := &model.PaymentResult{
		ReservationID: req.ReservationID,
		AttemptID:     attemptID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        model.PaymentPaid,
		TransactionID: charge.TransactionID,
		ProcessedAt:   s.clk.Now(),
	}

	s.cfg.Log.Info("Payment settled",
		"reservation_id", req.ReservationID,
		"attempt_id", attemptID,
		"transaction_id", charge.TransactionID,
		"amount", req.Amount,
	)

	s.dispatcher.PaymentSettled(ctx, reservation, result)

	return result, nil
}

func (s *paymentService) validate(req *model.PaymentRequest) error {
	if req.ReservationID == "" || req.PayerID == "" {
		return apperrors.Validation("Payment validation failed", map[string]any{
			"error": "reservation_id and payer_id are required",
		})
	}
	if req.Amount <= 0 {
		return apperrors.Validation("Payment validation failed", map[string]any{
			"error": "amount must be positive",
		})
	}
	for _, method := range s.cfg.PaymentMethods {
		if req.Method == method {
			return nil
		}
	}
	return apperrors.Validation("Payment validation failed", map[string]any{
		"error":   fmt.Sprintf("unsupported payment method %q", req.Method),
		"allowed": s.cfg.PaymentMethods,
	})
}

func (s *paymentService) fetch(ctx context.Context, id string) (*model.Reservation, error) {
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

// settle moves processing to a terminal payment status. A failure here
// leaves the record in processing until the next attempt's re-read, so it is
// logged loudly but cannot corrupt state.
func (s *paymentService) settle(ctx context.Context, id string, to model.PaymentStatus) {
	err := s.repo.TransitionPayment(ctx, id,
		[]model.PaymentStatus{model.PaymentProcessing},
		to,
	)
	if err != nil {
		s.cfg.Log.Error("Failed to settle payment status",
			"reservation_id", id,
			"target_status", to,
			"error", err,
		)
	}
}
