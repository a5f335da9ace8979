package settlement

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const numberAttempts = 3

func settlementNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("settlement: generate number: %w", err)
	}
	return fmt.Sprintf("STL-%d-%06d", now.Year(), n.Int64()), nil
}

// Service keeps the payment ledger consistent with purchase order totals.
// Recording runs inside a transaction that locks the purchase order row, so
// two racing payments cannot jointly exceed the total.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	now    func() time.Time
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// Record registers a payment by the hospital against one of its purchase
// orders. The sum of all non-failed settlements never exceeds the purchase
// order total.
func (s *Service) Record(ctx context.Context, hospitalID int64, in RecordInput) (Settlement, error) {
	if in.PurchaseOrderID == 0 {
		return Settlement{}, fmt.Errorf("%w: purchase order required", ErrValidation)
	}
	if in.Amount <= 0 {
		return Settlement{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !in.SettlementType.Known() {
		return Settlement{}, fmt.Errorf("%w: unknown settlement type %q", ErrValidation, in.SettlementType)
	}

	now := s.now().UTC()
	stl := Settlement{
		PurchaseOrderID:      in.PurchaseOrderID,
		HospitalID:           hospitalID,
		Amount:               in.Amount,
		SettlementType:       in.SettlementType,
		PaymentMethod:        in.PaymentMethod,
		TransactionReference: in.TransactionReference,
		DueDate:              in.DueDate,
		Notes:                in.Notes,
		Status:               StatusPending,
		CreatedAt:            now,
	}

	record := func(number string) error {
		stl.Number = number
		return s.repo.WithTx(ctx, func(tx TxRepository) error {
			po, err := tx.LockPurchaseOrder(ctx, in.PurchaseOrderID)
			if err != nil {
				return err
			}
			if po.HospitalID != hospitalID {
				return ErrNotFound
			}
			if po.Status == "cancelled" {
				return fmt.Errorf("%w: purchase order is cancelled", ErrInvalidState)
			}
			settled, err := tx.SettledAmount(ctx, in.PurchaseOrderID)
			if err != nil {
				return err
			}
			outstanding := decimal.NewFromFloat(po.TotalAmount).
				Sub(decimal.NewFromFloat(settled)).Round(2)
			if decimal.NewFromFloat(in.Amount).GreaterThan(outstanding) {
				return fmt.Errorf("%w: amount %.2f exceeds outstanding %s",
					ErrValidation, in.Amount, outstanding.StringFixed(2))
			}
			stl.SupplierID = po.SupplierID
			return tx.Insert(ctx, &stl)
		})
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := settlementNumber(now)
		if err != nil {
			return Settlement{}, err
		}
		err = record(number)
		if errors.Is(err, errDuplicateNumber) {
			continue
		}
		if err != nil {
			return Settlement{}, err
		}
		s.logger.Info("settlement recorded",
			slog.String("settlement", stl.Number),
			slog.Int64("purchase_order_id", stl.PurchaseOrderID),
			slog.Float64("amount", stl.Amount))
		return stl, nil
	}
	return Settlement{}, errDuplicateNumber
}

// UpdateStatus moves a settlement along pending -> processing -> completed,
// or to failed from any non-terminal status, on behalf of the supplier.
// Re-requesting the current terminal status is a no-op so retried bank
// callbacks do not surface errors. Completion stamps settledAt; a failed
// settlement stops counting against the purchase order balance.
func (s *Service) UpdateStatus(ctx context.Context, supplierID, settlementID int64, next Status) (Settlement, error) {
	if !next.Known() {
		return Settlement{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	stl, err := s.repo.Get(ctx, settlementID)
	if err != nil {
		return Settlement{}, err
	}
	if stl.SupplierID != supplierID {
		return Settlement{}, ErrNotFound
	}
	if stl.Status == next && stl.Status.Terminal() {
		return stl, nil
	}
	if !stl.Status.CanAdvance(next) {
		return Settlement{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, stl.Status, next)
	}

	var settledAt *time.Time
	if next == StatusCompleted {
		now := s.now().UTC()
		settledAt = &now
	}
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		swapped, err := tx.CASStatus(ctx, settlementID, stl.Status, next, settledAt)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("%w: settlement %s changed concurrently", ErrConflict, stl.Number)
		}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}
	stl.Status = next
	stl.SettledAt = settledAt
	return stl, nil
}

// ForHospital lists a hospital's settlements.
func (s *Service) ForHospital(ctx context.Context, hospitalID int64) ([]Settlement, error) {
	return s.repo.ListByHospital(ctx, hospitalID)
}

// ForSupplier lists a supplier's settlements.
func (s *Service) ForSupplier(ctx context.Context, supplierID int64) ([]Settlement, error) {
	return s.repo.ListBySupplier(ctx, supplierID)
}

// ForPurchaseOrder lists settlements against one purchase order, with the
// running balance. Callers must already be scoped to the purchase order.
func (s *Service) ForPurchaseOrder(ctx context.Context, poID int64) ([]Settlement, Balance, error) {
	balance, err := s.repo.Balance(ctx, poID)
	if err != nil {
		return nil, Balance{}, err
	}
	entries, err := s.repo.ListByPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, Balance{}, err
	}
	return entries, balance, nil
}
