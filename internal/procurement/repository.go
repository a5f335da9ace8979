package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilink/medilink/internal/platform/db"
)

// errDuplicateNumber signals a document number collision; callers regenerate
// and retry.
var errDuplicateNumber = errors.New("procurement: duplicate document number")

// TxRepository exposes the writes available inside a lifecycle transaction.
// Every status change is a compare-and-swap on the expected current status;
// a false return means another writer got there first.
type TxRepository interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	CASOrderStatus(ctx context.Context, id int64, from, to OrderStatus) (bool, error)
	SetOrderAward(ctx context.Context, id, supplierID int64, total float64) error

	InsertQuotation(ctx context.Context, q *Quotation) error
	InsertQuotationItems(ctx context.Context, quotationID int64, items []QuotationItem) error
	CASQuotationStatus(ctx context.Context, id int64, from, to QuotationStatus, respondedAt time.Time) (bool, error)

	InsertPurchaseOrder(ctx context.Context, po *PurchaseOrder) error
	CASPurchaseOrderStatus(ctx context.Context, id int64, from, to POStatus, deliveredAt *time.Time) (bool, error)
}

// RepositoryPort abstracts lifecycle storage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetOrder(ctx context.Context, id int64) (Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	ListOrdersByHospital(ctx context.Context, hospitalID int64) ([]Order, error)
	ListOpenOrders(ctx context.Context) ([]Order, error)

	GetQuotation(ctx context.Context, id int64) (Quotation, error)
	GetQuotationItems(ctx context.Context, quotationID int64) ([]QuotationItem, error)
	ListQuotationsByHospital(ctx context.Context, hospitalID int64) ([]Quotation, error)
	ListQuotationsBySupplier(ctx context.Context, supplierID int64) ([]Quotation, error)

	GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPurchaseOrdersByHospital(ctx context.Context, hospitalID int64) ([]PurchaseOrder, error)
	ListPurchaseOrdersBySupplier(ctx context.Context, supplierID int64) ([]PurchaseOrder, error)

	ExpireQuotations(ctx context.Context, now time.Time) (int64, error)
}

// Repository provides PostgreSQL backed lifecycle persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

const orderColumns = `id, order_number, hospital_id, supplier_id, status, priority,
	total_amount, requested_by, required_date, COALESCE(notes, ''), created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.HospitalID, &o.SupplierID, &o.Status, &o.Priority,
		&o.TotalAmount, &o.RequestedBy, &o.RequiredDate, &o.Notes, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// GetOrder loads a single order.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderItems loads an order's lines.
func (r *Repository) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, medicine_id, quantity, status FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MedicineID, &it.Quantity, &it.Status); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrdersByHospital returns a hospital's orders, newest first.
func (r *Repository) ListOrdersByHospital(ctx context.Context, hospitalID int64) ([]Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE hospital_id = $1 ORDER BY created_at DESC`, hospitalID)
}

// ListOpenOrders returns all pending orders for the supplier marketplace view.
func (r *Repository) ListOpenOrders(ctx context.Context) ([]Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`, OrderStatusPending)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const quotationColumns = `q.id, q.quotation_number, q.order_id, o.order_number, q.supplier_id,
	q.hospital_id, q.status, q.valid_until, q.total_amount, COALESCE(q.delivery_terms, ''),
	COALESCE(q.payment_terms, ''), COALESCE(q.notes, ''), q.submitted_at, q.responded_at, q.created_at`

const quotationSelect = `SELECT ` + quotationColumns + ` FROM quotations q JOIN orders o ON o.id = q.order_id`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Number, &q.OrderID, &q.OrderNumber, &q.SupplierID,
		&q.HospitalID, &q.Status, &q.ValidUntil, &q.TotalAmount, &q.DeliveryTerms,
		&q.PaymentTerms, &q.Notes, &q.SubmittedAt, &q.RespondedAt, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrNotFound
	}
	return q, err
}

// GetQuotation loads a single quotation.
func (r *Repository) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, quotationSelect+` WHERE q.id = $1`, id))
}

// GetQuotationItems loads a quotation's priced lines.
func (r *Repository) GetQuotationItems(ctx context.Context, quotationID int64) ([]QuotationItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quotation_id, medicine_id, quantity, unit_price, total_price, lead_time_days
		FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuotationItem
	for rows.Next() {
		var it QuotationItem
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.MedicineID, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.LeadTimeDays); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListQuotationsByHospital returns quotations against a hospital's orders.
func (r *Repository) ListQuotationsByHospital(ctx context.Context, hospitalID int64) ([]Quotation, error) {
	return r.queryQuotations(ctx,
		quotationSelect+` WHERE q.hospital_id = $1 ORDER BY q.created_at DESC`, hospitalID)
}

// ListQuotationsBySupplier returns a supplier's submitted quotations.
func (r *Repository) ListQuotationsBySupplier(ctx context.Context, supplierID int64) ([]Quotation, error) {
	return r.queryQuotations(ctx,
		quotationSelect+` WHERE q.supplier_id = $1 ORDER BY q.created_at DESC`, supplierID)
}

func (r *Repository) queryQuotations(ctx context.Context, query string, args ...any) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

const poColumns = `id, po_number, order_id, quotation_id, hospital_id, supplier_id, status,
	total_amount, COALESCE(delivery_address, ''), expected_delivery_date, actual_delivery_date,
	created_by, created_at`

func scanPurchaseOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.OrderID, &po.QuotationID, &po.HospitalID,
		&po.SupplierID, &po.Status, &po.TotalAmount, &po.DeliveryAddress,
		&po.ExpectedDeliveryDate, &po.ActualDeliveryDate, &po.CreatedBy, &po.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, err
}

// GetPurchaseOrder loads a single purchase order.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
	return scanPurchaseOrder(row)
}

// ListPurchaseOrdersByHospital returns a hospital's purchase orders.
func (r *Repository) ListPurchaseOrdersByHospital(ctx context.Context, hospitalID int64) ([]PurchaseOrder, error) {
	return r.queryPurchaseOrders(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE hospital_id = $1 ORDER BY created_at DESC`, hospitalID)
}

// ListPurchaseOrdersBySupplier returns a supplier's purchase orders.
func (r *Repository) ListPurchaseOrdersBySupplier(ctx context.Context, supplierID int64) ([]PurchaseOrder, error) {
	return r.queryPurchaseOrders(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE supplier_id = $1 ORDER BY created_at DESC`, supplierID)
}

func (r *Repository) queryPurchaseOrders(ctx context.Context, query string, args ...any) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// ExpireQuotations flips submitted quotations past their validity to expired.
// The acceptance path also checks validity inline; this sweep is the backstop
// that keeps listings honest.
func (r *Repository) ExpireQuotations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quotations SET status = $1, responded_at = $2 WHERE status = $3 AND valid_until < $2`,
		QuotationStatusExpired, now, QuotationStatusSubmitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type txRepository struct {
	tx pgx.Tx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// A serialization failure on a CAS update is a lost race: the winner
// committed the row while this transaction was blocked on it. Reported as a
// failed swap so callers raise their conflict error instead of a raw pg error.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func (t *txRepository) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO orders
		(order_number, hospital_id, status, priority, requested_by, required_date, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`,
		o.Number, o.HospitalID, o.Status, o.Priority, o.RequestedBy,
		o.RequiredDate, o.Notes, o.CreatedAt,
	).Scan(&o.ID)
	if isUniqueViolation(err) {
		return errDuplicateNumber
	}
	return err
}

func (t *txRepository) InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
		err := t.tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, medicine_id, quantity, status) VALUES ($1, $2, $3, $4) RETURNING id`,
			orderID, items[i].MedicineID, items[i].Quantity, items[i].Status,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) CASOrderStatus(ctx context.Context, id int64, from, to OrderStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if isSerializationFailure(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepository) SetOrderAward(ctx context.Context, id, supplierID int64, total float64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET supplier_id = $1, total_amount = $2 WHERE id = $3`, supplierID, total, id)
	return err
}

func (t *txRepository) InsertQuotation(ctx context.Context, q *Quotation) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO quotations
		(quotation_number, order_id, supplier_id, hospital_id, status, valid_until, total_amount,
		 delivery_terms, payment_terms, notes, submitted_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id`,
		q.Number, q.OrderID, q.SupplierID, q.HospitalID, q.Status, q.ValidUntil,
		q.TotalAmount, q.DeliveryTerms, q.PaymentTerms, q.Notes, q.SubmittedAt, q.CreatedAt,
	).Scan(&q.ID)
	if isUniqueViolation(err) {
		return errDuplicateNumber
	}
	return err
}

func (t *txRepository) InsertQuotationItems(ctx context.Context, quotationID int64, items []QuotationItem) error {
	for i := range items {
		items[i].QuotationID = quotationID
		err := t.tx.QueryRow(ctx, `INSERT INTO quotation_items
			(quotation_id, medicine_id, quantity, unit_price, total_price, lead_time_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
			quotationID, items[i].MedicineID, items[i].Quantity,
			items[i].UnitPrice, items[i].TotalPrice, items[i].LeadTimeDays,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) CASQuotationStatus(ctx context.Context, id int64, from, to QuotationStatus, respondedAt time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE quotations SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4`,
		to, respondedAt, id, from)
	if isSerializationFailure(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepository) InsertPurchaseOrder(ctx context.Context, po *PurchaseOrder) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
		(po_number, order_id, quotation_id, hospital_id, supplier_id, status, total_amount,
		 delivery_address, expected_delivery_date, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`,
		po.Number, po.OrderID, po.QuotationID, po.HospitalID, po.SupplierID, po.Status,
		po.TotalAmount, po.DeliveryAddress, po.ExpectedDeliveryDate, po.CreatedBy, po.CreatedAt,
	).Scan(&po.ID)
	if isUniqueViolation(err) {
		return errDuplicateNumber
	}
	return err
}

func (t *txRepository) CASPurchaseOrderStatus(ctx context.Context, id int64, from, to POStatus, deliveredAt *time.Time) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if deliveredAt != nil {
		tag, err = t.tx.Exec(ctx,
			`UPDATE purchase_orders SET status = $1, actual_delivery_date = $2 WHERE id = $3 AND status = $4`,
			to, *deliveredAt, id, from)
	} else {
		tag, err = t.tx.Exec(ctx,
			`UPDATE purchase_orders SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	}
	if isSerializationFailure(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
