package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilink/medilink/internal/platform/db"
)

var errDuplicateNumber = errors.New("settlement: duplicate settlement number")

// POSnapshot is the purchase order view the ledger needs: identity for
// ownership checks, total for the overpayment guard, status for the
// cancelled guard.
type POSnapshot struct {
	ID          int64
	HospitalID  int64
	SupplierID  int64
	Status      string
	TotalAmount float64
}

// TxRepository exposes the writes available inside a settlement transaction.
type TxRepository interface {
	// LockPurchaseOrder loads and row-locks the purchase order so racing
	// settlements against the same order serialize.
	LockPurchaseOrder(ctx context.Context, poID int64) (POSnapshot, error)
	// SettledAmount sums the purchase order's non-failed settlements.
	SettledAmount(ctx context.Context, poID int64) (float64, error)
	Insert(ctx context.Context, s *Settlement) error
	CASStatus(ctx context.Context, id int64, from, to Status, settledAt *time.Time) (bool, error)
}

// RepositoryPort abstracts ledger storage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
	Get(ctx context.Context, id int64) (Settlement, error)
	ListByHospital(ctx context.Context, hospitalID int64) ([]Settlement, error)
	ListBySupplier(ctx context.Context, supplierID int64) ([]Settlement, error)
	ListByPurchaseOrder(ctx context.Context, poID int64) ([]Settlement, error)
	Balance(ctx context.Context, poID int64) (Balance, error)
}

// Repository provides PostgreSQL backed settlement persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction. The overpayment guard
// locks the purchase order row FOR UPDATE and then sums sibling settlements;
// the sum must see rows committed while waiting on that lock, which a
// RepeatableRead snapshot taken before the lock would hide.
func (r *Repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

const settlementColumns = `id, settlement_number, purchase_order_id, hospital_id, supplier_id,
	amount, settlement_type, COALESCE(payment_method, ''), COALESCE(transaction_reference, ''),
	due_date, COALESCE(notes, ''), status, created_at, settled_at`

func scanSettlement(row pgx.Row) (Settlement, error) {
	var s Settlement
	err := row.Scan(&s.ID, &s.Number, &s.PurchaseOrderID, &s.HospitalID, &s.SupplierID,
		&s.Amount, &s.SettlementType, &s.PaymentMethod, &s.TransactionReference,
		&s.DueDate, &s.Notes, &s.Status, &s.CreatedAt, &s.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settlement{}, ErrNotFound
	}
	return s, err
}

// Get loads a single settlement.
func (r *Repository) Get(ctx context.Context, id int64) (Settlement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
	return scanSettlement(row)
}

// ListByHospital returns a hospital's settlements, newest first.
func (r *Repository) ListByHospital(ctx context.Context, hospitalID int64) ([]Settlement, error) {
	return r.query(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE hospital_id = $1 ORDER BY created_at DESC`,
		hospitalID)
}

// ListBySupplier returns a supplier's settlements, newest first.
func (r *Repository) ListBySupplier(ctx context.Context, supplierID int64) ([]Settlement, error) {
	return r.query(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE supplier_id = $1 ORDER BY created_at DESC`,
		supplierID)
}

// ListByPurchaseOrder returns every settlement against a purchase order.
func (r *Repository) ListByPurchaseOrder(ctx context.Context, poID int64) ([]Settlement, error) {
	return r.query(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE purchase_order_id = $1 ORDER BY created_at`,
		poID)
}

// Balance sums non-failed settlements against the purchase order total.
func (r *Repository) Balance(ctx context.Context, poID int64) (Balance, error) {
	var b Balance
	err := r.pool.QueryRow(ctx, `SELECT po.id, po.total_amount,
		COALESCE((SELECT SUM(s.amount) FROM settlements s
			WHERE s.purchase_order_id = po.id AND s.status <> 'failed'), 0)
	FROM purchase_orders po WHERE po.id = $1`, poID).Scan(&b.PurchaseOrderID, &b.TotalAmount, &b.SettledAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	b.Outstanding = b.TotalAmount - b.SettledAmount
	return b, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Settlement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// A serialization failure on a CAS update is a lost race: the winner
// committed the row while this transaction was blocked on it. Reported as a
// failed swap so callers raise their conflict error instead of a raw pg error.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func (t *txRepository) LockPurchaseOrder(ctx context.Context, poID int64) (POSnapshot, error) {
	var snap POSnapshot
	err := t.tx.QueryRow(ctx,
		`SELECT id, hospital_id, supplier_id, status, total_amount
		FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID,
	).Scan(&snap.ID, &snap.HospitalID, &snap.SupplierID, &snap.Status, &snap.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return POSnapshot{}, ErrNotFound
	}
	return snap, err
}

func (t *txRepository) SettledAmount(ctx context.Context, poID int64) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM settlements
		WHERE purchase_order_id = $1 AND status <> 'failed'`, poID,
	).Scan(&sum)
	return sum, err
}

func (t *txRepository) Insert(ctx context.Context, s *Settlement) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO settlements
		(settlement_number, purchase_order_id, hospital_id, supplier_id, amount,
		 settlement_type, payment_method, transaction_reference, due_date, notes,
		 status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id`,
		s.Number, s.PurchaseOrderID, s.HospitalID, s.SupplierID, s.Amount,
		s.SettlementType, s.PaymentMethod, s.TransactionReference, s.DueDate, s.Notes,
		s.Status, s.CreatedAt,
	).Scan(&s.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errDuplicateNumber
	}
	return err
}

func (t *txRepository) CASStatus(ctx context.Context, id int64, from, to Status, settledAt *time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE settlements SET status = $1, settled_at = COALESCE($2, settled_at)
		WHERE id = $3 AND status = $4`,
		to, settledAt, id, from)
	if isSerializationFailure(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
