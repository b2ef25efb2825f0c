package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"courtside/internal/breaker"
	"courtside/internal/locking"
	"courtside/internal/notify"
	"courtside/internal/payments/gateway"
	reserrors "courtside/internal/reservations/errors"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

type mockRepository struct {
	mu     sync.Mutex
	status model.PaymentStatus

	findByIDFn func(ctx context.Context, id string) (*model.Reservation, error)
}

func newMockRepository(status model.PaymentStatus) *mockRepository {
	return &mockRepository{status: status}
}

func (m *mockRepository) Create(ctx context.Context, r *model.Reservation) error { return nil }

func (m *mockRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.Reservation{
		ID:            id,
		ResourceID:    "court-7",
		Date:          "2026-09-12",
		Status:        model.StatusPending,
		PaymentStatus: m.status,
		Amount:        60,
		RequesterID:   "user-1",
	}, nil
}

func (m *mockRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Reservation, error) {
	return nil, nil
}

func (m *mockRepository) CancelIfActive(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
	return nil, reserrors.ErrNoMatch
}

func (m *mockRepository) TransitionPayment(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range from {
		if m.status == allowed {
			m.status = to
			return nil
		}
	}
	return reserrors.ErrNoMatch
}

func (m *mockRepository) paymentStatus() model.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

type mockGateway struct {
	mu       sync.Mutex
	calls    int
	chargeFn func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error)
}

func (m *mockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.chargeFn != nil {
		return m.chargeFn(ctx, req)
	}
	return &gateway.ChargeResult{TransactionID: "txn-1"}, nil
}

func (m *mockGateway) chargeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testConfig() *config.Config {
	return &config.Config{
		LockTTL:            time.Hour,
		LockMaxRetries:     3,
		LockBaseDelay:      100 * time.Millisecond,
		PaymentLockRetries: 0,
		PaymentMethods:     []string{"card", "wallet", "bank_transfer"},
		Log:                logger.NewNop(),
	}
}

func newTestService(repo *mockRepository, gw *mockGateway, fake *clock.Fake) PaymentService {
	cfg := testConfig()
	locks := locking.NewManager(locking.NewMemoryStore(fake), fake, fake, cfg.Log, cfg.LockMaxRetries, cfg.LockBaseDelay)
	gatewayBreaker := breaker.New("payment-gateway", breaker.Settings{
		Timeout:      2 * time.Second,
		ThresholdPct: 50,
		MinRequests:  4,
		Window:       time.Minute,
		ResetTimeout: 30 * time.Second,
	}, fake, cfg.Log)
	dispatcher := notify.NewDispatcher(nil, nil, nil, nil, fake, cfg.Log)
	return NewPaymentService(repo, locks, gw, gatewayBreaker, dispatcher, fake, cfg)
}

func testClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 9, 12, 8, 0, 0, 0, time.UTC))
}

func paymentRequest() *model.PaymentRequest {
	return &model.PaymentRequest{
		ReservationID: "res-1",
		Amount:        60,
		Method:        "card",
		PayerID:       "user-1",
	}
}

func TestAttempt_Success(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)
	gw := &mockGateway{}
	svc := newTestService(repo, gw, fake)

	result, err := svc.Attempt(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != model.PaymentPaid {
		t.Errorf("result status = %s, want paid", result.Status)
	}
	if result.TransactionID != "txn-1" {
		t.Errorf("transaction_id = %q, want txn-1", result.TransactionID)
	}
	if got := repo.paymentStatus(); got != model.PaymentPaid {
		t.Errorf("persisted status = %s, want paid", got)
	}
	if gw.chargeCalls() != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.chargeCalls())
	}
}

func TestAttempt_ValidationFailures(t *testing.T) {
	fake := testClock()
	svc := newTestService(newMockRepository(model.PaymentPending), &mockGateway{}, fake)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.PaymentRequest)
	}{
		{"missing reservation id", func(r *model.PaymentRequest) { r.ReservationID = "" }},
		{"missing payer id", func(r *model.PaymentRequest) { r.PayerID = "" }},
		{"zero amount", func(r *model.PaymentRequest) { r.Amount = 0 }},
		{"negative amount", func(r *model.PaymentRequest) { r.Amount = -10 }},
		{"unsupported method", func(r *model.PaymentRequest) { r.Method = "crypto" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := paymentRequest()
			tt.mutate(req)
			_, err := svc.Attempt(ctx, req)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestAttempt_RejectsNonPayableStatus(t *testing.T) {
	fake := testClock()

	for _, status := range []model.PaymentStatus{
		model.PaymentProcessing,
		model.PaymentPaid,
		model.PaymentRefunded,
		model.PaymentPartialRefund,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := newMockRepository(status)
			gw := &mockGateway{}
			svc := newTestService(repo, gw, fake)

			_, err := svc.Attempt(context.Background(), paymentRequest())
			if !apperrors.HasCode(err, apperrors.CodeConflict) {
				t.Fatalf("expected CONFLICT for status %s, got %v", status, err)
			}
			if gw.chargeCalls() != 0 {
				t.Errorf("gateway must not be called for status %s", status)
			}
		})
	}
}

func TestAttempt_RetryAfterFailureIsAllowed(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)
	gw := &mockGateway{}
	gw.chargeFn = func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		if gw.chargeCalls() == 1 {
			return nil, errors.New("card declined")
		}
		return &gateway.ChargeResult{TransactionID: "txn-2"}, nil
	}
	svc := newTestService(repo, gw, fake)
	ctx := context.Background()

	_, err := svc.Attempt(ctx, paymentRequest())
	if !apperrors.HasCode(err, apperrors.CodePaymentFailed) {
		t.Fatalf("expected PAYMENT_FAILED, got %v", err)
	}
	if got := repo.paymentStatus(); got != model.PaymentFailed {
		t.Fatalf("status after decline = %s, want failed", got)
	}

	// A failed payment is retryable.
	result, err := svc.Attempt(ctx, paymentRequest())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.TransactionID != "txn-2" {
		t.Errorf("transaction_id = %q, want txn-2", result.TransactionID)
	}
}

func TestAttempt_ConcurrentAttemptsChargeOnce(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)

	gw := &mockGateway{}
	inGateway := make(chan struct{})
	release := make(chan struct{})
	gw.chargeFn = func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		close(inGateway)
		<-release
		return &gateway.ChargeResult{TransactionID: "txn-1"}, nil
	}
	svc := newTestService(repo, gw, fake)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Attempt(context.Background(), paymentRequest())
		firstDone <- err
	}()

	// Wait until the first attempt reached the gateway; the reservation is
	// marked processing by then.
	<-inGateway

	_, err := svc.Attempt(context.Background(), paymentRequest())
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("second attempt: expected CONFLICT, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}

	if gw.chargeCalls() != 1 {
		t.Fatalf("gateway calls = %d, want exactly 1", gw.chargeCalls())
	}
	if got := repo.paymentStatus(); got != model.PaymentPaid {
		t.Fatalf("final status = %s, want paid", got)
	}
}

func TestAttempt_BusyLockFailsFast(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)
	gw := &mockGateway{}
	cfg := testConfig()

	store := locking.NewMemoryStore(fake)
	locks := locking.NewManager(store, fake, fake, cfg.Log, cfg.LockMaxRetries, cfg.LockBaseDelay)
	gatewayBreaker := breaker.New("payment-gateway", breaker.Settings{
		Timeout:      2 * time.Second,
		ThresholdPct: 50,
		MinRequests:  4,
		Window:       time.Minute,
		ResetTimeout: 30 * time.Second,
	}, fake, cfg.Log)
	dispatcher := notify.NewDispatcher(nil, nil, nil, nil, fake, cfg.Log)
	svc := NewPaymentService(repo, locks, gw, gatewayBreaker, dispatcher, fake, cfg)

	// Another attempt holds the payment lock.
	outcome := locks.Acquire(context.Background(), "payment:res-1", "other", time.Hour)
	if outcome.Status != locking.StatusAcquired {
		t.Fatalf("setup acquire failed: %+v", outcome)
	}

	_, err := svc.Attempt(context.Background(), paymentRequest())
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT while the lock is held, got %v", err)
	}
	if sleeps := fake.Slept(); len(sleeps) != 0 {
		t.Fatalf("payment attempts must not back off, got sleeps %v", sleeps)
	}
	if gw.chargeCalls() != 0 {
		t.Fatal("gateway must not be called when the lock is busy")
	}
}

func TestAttempt_OpenBreakerShortCircuits(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)
	gw := &mockGateway{}
	gw.chargeFn = func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return nil, errors.New("gateway 503")
	}
	svc := newTestService(repo, gw, fake)
	ctx := context.Background()

	// Trip the breaker: 4 failing attempts (each retried from failed status).
	for i := 0; i < 4; i++ {
		_, err := svc.Attempt(ctx, paymentRequest())
		if !apperrors.HasCode(err, apperrors.CodePaymentFailed) {
			t.Fatalf("attempt %d: expected PAYMENT_FAILED, got %v", i, err)
		}
	}

	callsBefore := gw.chargeCalls()
	_, err := svc.Attempt(ctx, paymentRequest())
	if !apperrors.HasCode(err, apperrors.CodeCircuitOpen) {
		t.Fatalf("expected CIRCUIT_OPEN, got %v", err)
	}
	if gw.chargeCalls() != callsBefore {
		t.Fatal("gateway must not be called while the breaker is open")
	}
	// The short-circuited attempt still settles the record back to failed,
	// so it stays retryable once the breaker recovers.
	if got := repo.paymentStatus(); got != model.PaymentFailed {
		t.Fatalf("status = %s, want failed", got)
	}
}

func TestAttempt_UsesDistinctAttemptIDs(t *testing.T) {
	fake := testClock()
	repo := newMockRepository(model.PaymentPending)

	var mu sync.Mutex
	seen := map[string]bool{}
	gw := &mockGateway{}
	gw.chargeFn = func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if req.AttemptID == "" {
			return nil, errors.New("missing attempt id")
		}
		if seen[req.AttemptID] {
			return nil, fmt.Errorf("attempt id %s reused", req.AttemptID)
		}
		seen[req.AttemptID] = true
		return nil, errors.New("declined")
	}
	svc := newTestService(repo, gw, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Attempt(ctx, paymentRequest())
		if !apperrors.HasCode(err, apperrors.CodePaymentFailed) {
			t.Fatalf("attempt %d: expected PAYMENT_FAILED, got %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct attempt IDs, got %d", len(seen))
	}
}
