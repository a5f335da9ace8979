package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu          sync.Mutex
	nextID      int64
	pos         map[int64]POSnapshot
	settlements map[int64]*Settlement
	numbers     map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		pos:         make(map[int64]POSnapshot),
		settlements: make(map[int64]*Settlement),
		numbers:     make(map[string]bool),
	}
}

func (m *memRepo) WithTx(_ context.Context, fn func(tx TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{repo: m})
}

func (m *memRepo) Get(_ context.Context, id int64) (Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[id]
	if !ok {
		return Settlement{}, ErrNotFound
	}
	return *s, nil
}

func (m *memRepo) ListByHospital(_ context.Context, hospitalID int64) ([]Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Settlement
	for _, s := range m.settlements {
		if s.HospitalID == hospitalID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) ListBySupplier(_ context.Context, supplierID int64) ([]Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Settlement
	for _, s := range m.settlements {
		if s.SupplierID == supplierID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) ListByPurchaseOrder(_ context.Context, poID int64) ([]Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Settlement
	for _, s := range m.settlements {
		if s.PurchaseOrderID == poID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) Balance(_ context.Context, poID int64) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, ok := m.pos[poID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	b := Balance{PurchaseOrderID: poID, TotalAmount: po.TotalAmount}
	for _, s := range m.settlements {
		if s.PurchaseOrderID == poID && s.Status != StatusFailed {
			b.SettledAmount += s.Amount
		}
	}
	b.Outstanding = b.TotalAmount - b.SettledAmount
	return b, nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) LockPurchaseOrder(_ context.Context, poID int64) (POSnapshot, error) {
	po, ok := t.repo.pos[poID]
	if !ok {
		return POSnapshot{}, ErrNotFound
	}
	return po, nil
}

func (t *memTx) SettledAmount(_ context.Context, poID int64) (float64, error) {
	var sum float64
	for _, s := range t.repo.settlements {
		if s.PurchaseOrderID == poID && s.Status != StatusFailed {
			sum += s.Amount
		}
	}
	return sum, nil
}

func (t *memTx) Insert(_ context.Context, s *Settlement) error {
	if t.repo.numbers[s.Number] {
		return errDuplicateNumber
	}
	t.repo.numbers[s.Number] = true
	t.repo.nextID++
	s.ID = t.repo.nextID
	cp := *s
	t.repo.settlements[s.ID] = &cp
	return nil
}

func (t *memTx) CASStatus(_ context.Context, id int64, from, to Status, settledAt *time.Time) (bool, error) {
	s, ok := t.repo.settlements[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	if settledAt != nil {
		s.SettledAt = settledAt
	}
	return true, nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	repo.pos[1] = POSnapshot{ID: 1, HospitalID: 10, SupplierID: 20, Status: "delivered", TotalAmount: 1000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo), repo
}

func record(amount float64) RecordInput {
	return RecordInput{PurchaseOrderID: 1, Amount: amount, SettlementType: TypePartial, PaymentMethod: "neft"}
}

func TestRecordSettlement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stl, err := svc.Record(ctx, 10, record(400))
	require.NoError(t, err)
	require.Equal(t, StatusPending, stl.Status)
	require.Regexp(t, regexp.MustCompile(`^STL-\d{4}-\d{6}$`), stl.Number)
	require.Equal(t, int64(20), stl.SupplierID)
	require.Equal(t, TypePartial, stl.SettlementType)

	_, balance, err := svc.ForPurchaseOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 400.0, balance.SettledAmount)
	require.Equal(t, 600.0, balance.Outstanding)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, 10, record(0))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Record(ctx, 10, record(-5))
	require.ErrorIs(t, err, ErrValidation)

	in := record(100)
	in.PurchaseOrderID = 0
	_, err = svc.Record(ctx, 10, in)
	require.ErrorIs(t, err, ErrValidation)

	in = record(100)
	in.SettlementType = "installment"
	_, err = svc.Record(ctx, 10, in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordRejectsOverpayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, 10, record(1000.01))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Record(ctx, 10, record(600))
	require.NoError(t, err)
	_, err = svc.Record(ctx, 10, record(400.01))
	require.ErrorIs(t, err, ErrValidation)

	// Paying out exactly the remainder is fine.
	_, err = svc.Record(ctx, 10, record(400))
	require.NoError(t, err)

	_, balance, err := svc.ForPurchaseOrder(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, balance.Outstanding)
}

func TestConcurrentPaymentsCannotOverpay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(ctx, 10, record(1000))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// The purchase order row lock serializes the two payments; whichever
	// runs second sees the first one's amount and fails the outstanding check.
	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrValidation):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)

	_, balance, err := svc.ForPurchaseOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1000.0, balance.SettledAmount)
	require.Zero(t, balance.Outstanding)
}

func TestFailedSettlementReleasesBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stl, err := svc.Record(ctx, 10, record(1000))
	require.NoError(t, err)

	// The full amount is committed, so nothing further fits.
	_, err = svc.Record(ctx, 10, record(100))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, 20, stl.ID, StatusFailed)
	require.NoError(t, err)

	// A failed payment frees its slice of the total.
	_, err = svc.Record(ctx, 10, record(1000))
	require.NoError(t, err)
}

func TestRecordScopingAndState(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Another hospital cannot pay against this purchase order.
	_, err := svc.Record(ctx, 11, record(100))
	require.ErrorIs(t, err, ErrNotFound)

	in := record(100)
	in.PurchaseOrderID = 99
	_, err = svc.Record(ctx, 10, in)
	require.ErrorIs(t, err, ErrNotFound)

	repo.pos[2] = POSnapshot{ID: 2, HospitalID: 10, SupplierID: 20, Status: "cancelled", TotalAmount: 500}
	in = record(100)
	in.PurchaseOrderID = 2
	_, err = svc.Record(ctx, 10, in)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStatusProgression(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stl, err := svc.Record(ctx, 10, record(250))
	require.NoError(t, err)

	// Only the supplier on the purchase order may move the status.
	_, err = svc.UpdateStatus(ctx, 21, stl.ID, StatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)

	processing, err := svc.UpdateStatus(ctx, 20, stl.ID, StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, processing.Status)
	require.Nil(t, processing.SettledAt)

	completed, err := svc.UpdateStatus(ctx, 20, stl.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.SettledAt)

	// Re-requesting the current terminal status is a no-op.
	again, err := svc.UpdateStatus(ctx, 20, stl.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, again.Status)

	// A terminal settlement accepts no other move.
	_, err = svc.UpdateStatus(ctx, 20, stl.ID, StatusFailed)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, 20, stl.ID, StatusPending)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusTransitionRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stl, err := svc.Record(ctx, 10, record(250))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 20, stl.ID, Status("settled"))
	require.ErrorIs(t, err, ErrValidation)

	// Pending may complete directly, skipping processing.
	completed, err := svc.UpdateStatus(ctx, 20, stl.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
}
