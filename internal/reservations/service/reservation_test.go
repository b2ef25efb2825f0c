package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"courtside/internal/locking"
	"courtside/internal/notify"
	reserrors "courtside/internal/reservations/errors"
	"courtside/internal/reservations/validator"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

type mockRepository struct {
	createFn                func(ctx context.Context, r *model.Reservation) error
	findByIDFn              func(ctx context.Context, id string) (*model.Reservation, error)
	findByResourceAndDateFn func(ctx context.Context, resourceID, date string) ([]*model.Reservation, error)
	cancelIfActiveFn        func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error)
	transitionPaymentFn     func(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) error
}

func (m *mockRepository) Create(ctx context.Context, r *model.Reservation) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, reserrors.ErrNotFound
}

func (m *mockRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Reservation, error) {
	if m.findByResourceAndDateFn != nil {
		return m.findByResourceAndDateFn(ctx, resourceID, date)
	}
	return nil, nil
}

func (m *mockRepository) CancelIfActive(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
	if m.cancelIfActiveFn != nil {
		return m.cancelIfActiveFn(ctx, id, update)
	}
	return nil, reserrors.ErrNoMatch
}

func (m *mockRepository) TransitionPayment(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) error {
	if m.transitionPaymentFn != nil {
		return m.transitionPaymentFn(ctx, id, from, to)
	}
	return nil
}

// memoryRepository backs the concurrency tests with a shared mutable state.
type memoryRepository struct {
	mockRepository

	mu   sync.Mutex
	rows []*model.Reservation
	seq  int
}

func newMemoryRepository() *memoryRepository {
	repo := &memoryRepository{}
	repo.createFn = func(ctx context.Context, r *model.Reservation) error {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.seq++
		r.ID = fmt.Sprintf("res-%d", repo.seq)
		copied := *r
		repo.rows = append(repo.rows, &copied)
		return nil
	}
	repo.findByResourceAndDateFn = func(ctx context.Context, resourceID, date string) ([]*model.Reservation, error) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		var out []*model.Reservation
		for _, r := range repo.rows {
			if r.ResourceID == resourceID && r.Date == date {
				copied := *r
				out = append(out, &copied)
			}
		}
		return out, nil
	}
	return repo
}

func testConfig() *config.Config {
	return &config.Config{
		LockTTL:                 time.Hour,
		LockMaxRetries:          3,
		LockBaseDelay:           100 * time.Millisecond,
		MinReservationMinutes:   30,
		BookingHorizonDays:      90,
		CancelPolicyWindowHours: 2,
		FullRefundLeadHours:     24,
		PartialRefundRate:       0.8,
		PaymentMethods:          []string{"card", "wallet", "bank_transfer"},
		Log:                     logger.NewNop(),
	}
}

func newTestService(repo *mockRepository, fake *clock.Fake, cfg *config.Config) ReservationService {
	locks := locking.NewManager(locking.NewMemoryStore(fake), fake, fake, cfg.Log, cfg.LockMaxRetries, cfg.LockBaseDelay)
	resValidator := validator.NewReservationValidator(cfg.Log, fake, cfg.MinReservationMinutes, cfg.BookingHorizonDays)
	dispatcher := notify.NewDispatcher(nil, nil, nil, nil, fake, cfg.Log)
	return NewReservationService(repo, locks, resValidator, dispatcher, fake, cfg)
}

func testClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 9, 12, 8, 0, 0, 0, time.UTC))
}

func createRequest(start, end string) *model.CreateReservationRequest {
	return &model.CreateReservationRequest{
		ResourceID:   "court-7",
		Date:         "2026-09-12",
		StartTime:    start,
		EndTime:      end,
		RequesterID:  "user-1",
		PricePerHour: 40,
	}
}

func TestCreate_Success(t *testing.T) {
	fake := testClock()
	repo := newMemoryRepository()
	svc := newTestService(&repo.mockRepository, fake, testConfig())

	got, err := svc.Create(context.Background(), createRequest("10:00", "11:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ID == "" {
		t.Error("expected a persisted ID")
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.PaymentStatus != model.PaymentPending {
		t.Errorf("payment status = %s, want pending", got.PaymentStatus)
	}
	if got.DurationMinutes != 90 {
		t.Errorf("duration = %d, want 90", got.DurationMinutes)
	}
	if got.Amount != 60 {
		t.Errorf("amount = %.2f, want 60.00 (40/h for 90m)", got.Amount)
	}
}

func TestCreate_RejectsOverlap(t *testing.T) {
	fake := testClock()
	repo := newMemoryRepository()
	svc := newTestService(&repo.mockRepository, fake, testConfig())
	ctx := context.Background()

	if _, err := svc.Create(ctx, createRequest("10:00", "11:00")); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	_, err := svc.Create(ctx, createRequest("10:30", "11:30"))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for overlapping slot, got %v", err)
	}

	// The adjacent slot is free.
	if _, err := svc.Create(ctx, createRequest("11:00", "12:00")); err != nil {
		t.Fatalf("adjacent reservation failed: %v", err)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	fake := testClock()
	repo := newMemoryRepository()
	svc := newTestService(&repo.mockRepository, fake, testConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.CreateReservationRequest
	}{
		{"end before start", createRequest("11:00", "10:00")},
		{"zero-length slot", createRequest("10:00", "10:00")},
		{"below minimum duration", createRequest("10:00", "10:15")},
		{"slot in the past", createRequest("06:00", "07:00")},
		{
			"beyond booking horizon",
			&model.CreateReservationRequest{
				ResourceID: "court-7", Date: "2027-03-01",
				StartTime: "10:00", EndTime: "11:00",
				RequesterID: "user-1", PricePerHour: 40,
			},
		},
		{
			"missing price",
			&model.CreateReservationRequest{
				ResourceID: "court-7", Date: "2026-09-12",
				StartTime: "10:00", EndTime: "11:00",
				RequesterID: "user-1",
			},
		},
		{
			"malformed date",
			&model.CreateReservationRequest{
				ResourceID: "court-7", Date: "12/09/2026",
				StartTime: "10:00", EndTime: "11:00",
				RequesterID: "user-1", PricePerHour: 40,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestCreate_ConcurrentRequestsOneWinner(t *testing.T) {
	fake := testClock()
	repo := newMemoryRepository()
	svc := newTestService(&repo.mockRepository, fake, testConfig())

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	rejected := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := createRequest("10:00", "11:00")
			req.RequesterID = fmt.Sprintf("user-%d", n)

			_, err := svc.Create(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.HasCode(err, apperrors.CodeConflict),
				apperrors.HasCode(err, apperrors.CodeLockTimeout):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly 1 created reservation, got %d", created)
	}
	if rejected != workers-1 {
		t.Fatalf("expected %d rejections, got %d", workers-1, rejected)
	}

	repo.mu.Lock()
	persisted := len(repo.rows)
	repo.mu.Unlock()
	if persisted != 1 {
		t.Fatalf("expected 1 persisted row, got %d", persisted)
	}
}

func existingReservation(start time.Time) *model.Reservation {
	return &model.Reservation{
		ID:          "res-1",
		ResourceID:  "court-7",
		Date:        start.Format("2006-01-02"),
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      model.StatusConfirmed,
		Amount:      60,
		RequesterID: "user-1",
	}
}

func cancelRequest() *model.CancelReservationRequest {
	return &model.CancelReservationRequest{
		ReservationID: "res-1",
		RequesterID:   "user-1",
		Reason:        "change of plans",
	}
}

func TestCancel_FullRefundOutsideLeadWindow(t *testing.T) {
	fake := testClock()
	// 26h before start: full refund.
	start := fake.Now().Add(26 * time.Hour)

	var gotUpdate model.CancelUpdate
	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			return existingReservation(start), nil
		},
		cancelIfActiveFn: func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
			gotUpdate = update
			r := existingReservation(start)
			r.Status = model.StatusCancelled
			r.RefundAmount = update.RefundAmount
			return r, nil
		},
	}
	svc := newTestService(repo, fake, testConfig())

	updated, err := svc.Cancel(context.Background(), cancelRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RefundAmount != 60 {
		t.Errorf("refund = %.2f, want full 60.00", updated.RefundAmount)
	}
	if gotUpdate.CancelledBy != "user-1" {
		t.Errorf("cancelled_by = %q, want user-1", gotUpdate.CancelledBy)
	}
}

func TestCancel_PartialRefundInsideLeadWindow(t *testing.T) {
	fake := testClock()
	// 10h before start: inside the 24h lead, outside the 2h policy window.
	start := fake.Now().Add(10 * time.Hour)

	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			return existingReservation(start), nil
		},
		cancelIfActiveFn: func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
			r := existingReservation(start)
			r.Status = model.StatusCancelled
			r.RefundAmount = update.RefundAmount
			return r, nil
		},
	}
	svc := newTestService(repo, fake, testConfig())

	updated, err := svc.Cancel(context.Background(), cancelRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RefundAmount != 48 {
		t.Errorf("refund = %.2f, want 48.00 (80%% of 60)", updated.RefundAmount)
	}
}

func TestCancel_RejectedInsidePolicyWindow(t *testing.T) {
	fake := testClock()
	// 1h before start: inside the 2h policy window.
	start := fake.Now().Add(time.Hour)

	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			return existingReservation(start), nil
		},
		cancelIfActiveFn: func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
			t.Fatal("CancelIfActive must not be reached inside the policy window")
			return nil, nil
		},
	}
	svc := newTestService(repo, fake, testConfig())

	_, err := svc.Cancel(context.Background(), cancelRequest())
	if !apperrors.HasCode(err, apperrors.CodePolicy) {
		t.Fatalf("expected POLICY_VIOLATION, got %v", err)
	}
}

func TestCancel_RejectsTerminalStatus(t *testing.T) {
	fake := testClock()
	start := fake.Now().Add(48 * time.Hour)

	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			r := existingReservation(start)
			r.Status = model.StatusCancelled
			return r, nil
		},
	}
	svc := newTestService(repo, fake, testConfig())

	_, err := svc.Cancel(context.Background(), cancelRequest())
	if !apperrors.HasCode(err, apperrors.CodePolicy) {
		t.Fatalf("expected POLICY_VIOLATION for already cancelled, got %v", err)
	}
}

func TestCancel_LostRaceDoesNotRefundTwice(t *testing.T) {
	fake := testClock()
	start := fake.Now().Add(48 * time.Hour)

	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			return existingReservation(start), nil
		},
		cancelIfActiveFn: func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
			// A concurrent cancellation reached the terminal state first.
			return nil, reserrors.ErrNoMatch
		},
	}
	svc := newTestService(repo, fake, testConfig())

	_, err := svc.Cancel(context.Background(), cancelRequest())
	if !apperrors.HasCode(err, apperrors.CodePolicy) {
		t.Fatalf("expected POLICY_VIOLATION when losing the cancel race, got %v", err)
	}
}

func TestCancel_Authorization(t *testing.T) {
	fake := testClock()
	start := fake.Now().Add(48 * time.Hour)

	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			return existingReservation(start), nil
		},
		cancelIfActiveFn: func(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
			r := existingReservation(start)
			r.Status = model.StatusCancelled
			return r, nil
		},
	}
	svc := newTestService(repo, fake, testConfig())
	ctx := context.Background()

	stranger := &model.CancelReservationRequest{ReservationID: "res-1", RequesterID: "user-2"}
	if _, err := svc.Cancel(ctx, stranger); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-holder, got %v", err)
	}

	staff := &model.CancelReservationRequest{ReservationID: "res-1", RequesterID: "admin-1", Staff: true}
	if _, err := svc.Cancel(ctx, staff); err != nil {
		t.Fatalf("staff cancellation failed: %v", err)
	}
}

func TestGetByID(t *testing.T) {
	fake := testClock()
	repo := &mockRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Reservation, error) {
			if id == "missing" {
				return nil, reserrors.ErrNotFound
			}
			if id == "garbage" {
				return nil, reserrors.ErrInvalidID
			}
			return existingReservation(fake.Now().Add(time.Hour)), nil
		},
	}
	svc := newTestService(repo, fake, testConfig())
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("empty ID: expected INVALID_INPUT, got %v", err)
	}
	if _, err := svc.GetByID(ctx, "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing: expected NOT_FOUND, got %v", err)
	}
	if _, err := svc.GetByID(ctx, "garbage"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("garbage: expected INVALID_INPUT, got %v", err)
	}
	if got, err := svc.GetByID(ctx, "res-1"); err != nil || got.ID != "res-1" {
		t.Errorf("GetByID(res-1) = (%v, %v)", got, err)
	}
}
