package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for both ledgers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const hospitalItemSelect = `SELECT hi.id, hi.hospital_id, hi.medicine_id,
	m.name, m.generic_name, hi.current_stock, hi.reorder_point, hi.max_stock,
	COALESCE(hi.unit_cost, 0), COALESCE(hi.batch_number, ''), hi.expiry_date,
	COALESCE(hi.storage_location, ''), hi.last_updated
FROM hospital_inventory hi
JOIN medicines m ON m.id = hi.medicine_id`

// ListHospital returns the hospital ledger joined with catalog fields.
func (r *Repository) ListHospital(ctx context.Context, hospitalID int64) ([]HospitalItem, error) {
	query := hospitalItemSelect + ` WHERE hi.hospital_id = $1 ORDER BY m.name`
	return r.queryHospitalItems(ctx, query, hospitalID)
}

// LowStock returns hospital rows at or under their reorder point.
func (r *Repository) LowStock(ctx context.Context, hospitalID int64) ([]HospitalItem, error) {
	query := hospitalItemSelect + ` WHERE hi.hospital_id = $1 AND hi.current_stock <= hi.reorder_point
	ORDER BY hi.current_stock`
	return r.queryHospitalItems(ctx, query, hospitalID)
}

// UpsertHospital inserts or updates a (hospital, medicine) row.
func (r *Repository) UpsertHospital(ctx context.Context, hospitalID int64, input HospitalItemInput) (HospitalItem, error) {
	query := `INSERT INTO hospital_inventory
		(hospital_id, medicine_id, current_stock, reorder_point, max_stock,
		 unit_cost, batch_number, expiry_date, storage_location, last_updated)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (hospital_id, medicine_id) DO UPDATE SET
		current_stock = EXCLUDED.current_stock,
		reorder_point = EXCLUDED.reorder_point,
		max_stock = EXCLUDED.max_stock,
		unit_cost = EXCLUDED.unit_cost,
		batch_number = EXCLUDED.batch_number,
		expiry_date = EXCLUDED.expiry_date,
		storage_location = EXCLUDED.storage_location,
		last_updated = EXCLUDED.last_updated
	RETURNING id`
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx, query, hospitalID, input.MedicineID, input.CurrentStock,
		input.ReorderPoint, input.MaxStock, input.UnitCost, input.BatchNumber,
		input.ExpiryDate, input.StorageLocation, now).Scan(&id)
	if err != nil {
		return HospitalItem{}, err
	}
	return r.getHospitalItem(ctx, id)
}

// DeleteHospital hard-deletes a row; ownership is part of the predicate.
func (r *Repository) DeleteHospital(ctx context.Context, hospitalID, entryID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM hospital_inventory WHERE id = $1 AND hospital_id = $2`, entryID, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const supplierItemSelect = `SELECT si.id, si.supplier_id, si.medicine_id,
	m.name, m.generic_name, si.available_stock, si.unit_price,
	si.min_order_quantity, COALESCE(si.batch_number, ''), si.expiry_date,
	si.is_active, si.last_updated
FROM supplier_inventory si
JOIN medicines m ON m.id = si.medicine_id`

// ListSupplier returns the supplier ledger joined with catalog fields.
func (r *Repository) ListSupplier(ctx context.Context, supplierID int64) ([]SupplierItem, error) {
	query := supplierItemSelect + ` WHERE si.supplier_id = $1 ORDER BY m.name`
	rows, err := r.pool.Query(ctx, query, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SupplierItem
	for rows.Next() {
		var item SupplierItem
		if err := rows.Scan(&item.ID, &item.SupplierID, &item.MedicineID,
			&item.MedicineName, &item.GenericName, &item.AvailableStock, &item.UnitPrice,
			&item.MinOrderQuantity, &item.BatchNumber, &item.ExpiryDate,
			&item.IsActive, &item.LastUpdated); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertSupplier inserts or updates a (supplier, medicine) row.
func (r *Repository) UpsertSupplier(ctx context.Context, supplierID int64, input SupplierItemInput) (SupplierItem, error) {
	query := `INSERT INTO supplier_inventory
		(supplier_id, medicine_id, available_stock, unit_price, min_order_quantity,
		 batch_number, expiry_date, is_active, last_updated)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
	ON CONFLICT (supplier_id, medicine_id) DO UPDATE SET
		available_stock = EXCLUDED.available_stock,
		unit_price = EXCLUDED.unit_price,
		min_order_quantity = EXCLUDED.min_order_quantity,
		batch_number = EXCLUDED.batch_number,
		expiry_date = EXCLUDED.expiry_date,
		last_updated = EXCLUDED.last_updated
	RETURNING id`
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx, query, supplierID, input.MedicineID, input.AvailableStock,
		input.UnitPrice, input.MinOrderQuantity, input.BatchNumber, input.ExpiryDate, now).Scan(&id)
	if err != nil {
		return SupplierItem{}, err
	}

	row := r.pool.QueryRow(ctx, supplierItemSelect+` WHERE si.id = $1`, id)
	var item SupplierItem
	if err := row.Scan(&item.ID, &item.SupplierID, &item.MedicineID,
		&item.MedicineName, &item.GenericName, &item.AvailableStock, &item.UnitPrice,
		&item.MinOrderQuantity, &item.BatchNumber, &item.ExpiryDate,
		&item.IsActive, &item.LastUpdated); err != nil {
		return SupplierItem{}, err
	}
	return item, nil
}

// DeleteSupplier hard-deletes a row; ownership is part of the predicate.
func (r *Repository) DeleteSupplier(ctx context.Context, supplierID, entryID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM supplier_inventory WHERE id = $1 AND supplier_id = $2`, entryID, supplierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AvailableFromSuppliers lists in-stock offers across all active suppliers.
func (r *Repository) AvailableFromSuppliers(ctx context.Context) ([]AvailableMedicine, error) {
	query := `SELECT si.supplier_id, s.name, si.medicine_id, m.name, m.generic_name,
		si.available_stock, si.unit_price, si.min_order_quantity
	FROM supplier_inventory si
	JOIN suppliers s ON s.id = si.supplier_id
	JOIN medicines m ON m.id = si.medicine_id
	WHERE si.is_active AND s.is_active AND m.is_active AND si.available_stock > 0
	ORDER BY m.name, si.unit_price`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []AvailableMedicine
	for rows.Next() {
		var o AvailableMedicine
		if err := rows.Scan(&o.SupplierID, &o.SupplierName, &o.MedicineID, &o.MedicineName,
			&o.GenericName, &o.AvailableStock, &o.UnitPrice, &o.MinOrderQuantity); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// HospitalsWithInventory lists every hospital holding ledger rows, for the
// periodic low stock scan.
func (r *Repository) HospitalsWithInventory(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT hospital_id FROM hospital_inventory`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) getHospitalItem(ctx context.Context, id int64) (HospitalItem, error) {
	row := r.pool.QueryRow(ctx, hospitalItemSelect+` WHERE hi.id = $1`, id)
	var item HospitalItem
	err := row.Scan(&item.ID, &item.HospitalID, &item.MedicineID,
		&item.MedicineName, &item.GenericName, &item.CurrentStock, &item.ReorderPoint,
		&item.MaxStock, &item.UnitCost, &item.BatchNumber, &item.ExpiryDate,
		&item.StorageLocation, &item.LastUpdated)
	return item, err
}

func (r *Repository) queryHospitalItems(ctx context.Context, query string, args ...any) ([]HospitalItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HospitalItem
	for rows.Next() {
		var item HospitalItem
		if err := rows.Scan(&item.ID, &item.HospitalID, &item.MedicineID,
			&item.MedicineName, &item.GenericName, &item.CurrentStock, &item.ReorderPoint,
			&item.MaxStock, &item.UnitCost, &item.BatchNumber, &item.ExpiryDate,
			&item.StorageLocation, &item.LastUpdated); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
