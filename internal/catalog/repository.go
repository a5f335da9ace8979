package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const medicineColumns = `id, name, generic_name, brand, strength, dosage_form,
	COALESCE(route, ''), COALESCE(category, ''), COALESCE(hsn_code, ''),
	COALESCE(gst_percent, 0), unit_of_measure, COALESCE(description, ''),
	is_active, created_at`

// Get returns a medicine by id.
func (r *Repository) Get(ctx context.Context, id int64) (Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`
	m, err := scanMedicine(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medicine{}, ErrNotFound
		}
		return Medicine{}, err
	}
	return m, nil
}

// Insert stores a new medicine and returns it with its assigned id.
func (r *Repository) Insert(ctx context.Context, m Medicine) (Medicine, error) {
	query := `INSERT INTO medicines
		(name, generic_name, brand, strength, dosage_form, route, category,
		 hsn_code, gst_percent, unit_of_measure, description, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING id`
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		m.Name, m.GenericName, m.Brand, m.Strength, m.DosageForm, m.Route,
		m.Category, m.HSNCode, m.GSTPercent, m.UnitOfMeasure, m.Description,
		m.IsActive, now,
	).Scan(&m.ID)
	if err != nil {
		return Medicine{}, err
	}
	m.CreatedAt = now
	return m, nil
}

// Update rewrites the descriptive fields of an existing medicine.
func (r *Repository) Update(ctx context.Context, id int64, m Medicine) (Medicine, error) {
	query := `UPDATE medicines SET
		name = $1, generic_name = $2, brand = $3, strength = $4, dosage_form = $5,
		route = $6, category = $7, hsn_code = $8, gst_percent = $9,
		unit_of_measure = $10, description = $11
	WHERE id = $12`
	tag, err := r.pool.Exec(ctx, query,
		m.Name, m.GenericName, m.Brand, m.Strength, m.DosageForm, m.Route,
		m.Category, m.HSNCode, m.GSTPercent, m.UnitOfMeasure, m.Description, id,
	)
	if err != nil {
		return Medicine{}, err
	}
	if tag.RowsAffected() == 0 {
		return Medicine{}, ErrNotFound
	}
	m.ID = id
	return m, nil
}

// ListActive returns active medicines ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE is_active ORDER BY name`
	return r.queryMedicines(ctx, query)
}

// Search matches name or generic name case-insensitively (substring).
func (r *Repository) Search(ctx context.Context, q string) ([]Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines
	WHERE is_active AND (name ILIKE $1 OR generic_name ILIKE $1)
	ORDER BY name`
	return r.queryMedicines(ctx, query, "%"+q+"%")
}

// SetActive toggles the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE medicines SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) queryMedicines(ctx context.Context, query string, args ...any) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicines []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

func scanMedicine(row pgx.Row) (Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Brand, &m.Strength,
		&m.DosageForm, &m.Route, &m.Category, &m.HSNCode, &m.GSTPercent,
		&m.UnitOfMeasure, &m.Description, &m.IsActive, &m.CreatedAt)
	return m, err
}
