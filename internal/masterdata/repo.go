package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repo implements Repository.
type repo struct {
	db *pgxpool.Pool
}

// Repository exposes the registry reads used by the portals.
type Repository interface {
	ListHospitals(ctx context.Context) ([]Hospital, error)
	GetHospital(ctx context.Context, id int64) (Hospital, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
}

// NewRepository creates a new master data repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func (r *repo) ListHospitals(ctx context.Context) ([]Hospital, error) {
	query := `SELECT id, name, address, city, state, zip_code, phone, email,
		license_number, contact_person, is_active, created_at
	FROM hospitals WHERE is_active ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hospitals []Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.ZipCode,
			&h.Phone, &h.Email, &h.LicenseNumber, &h.ContactPerson, &h.IsActive, &h.CreatedAt); err != nil {
			return nil, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, rows.Err()
}

func (r *repo) GetHospital(ctx context.Context, id int64) (Hospital, error) {
	query := `SELECT id, name, address, city, state, zip_code, phone, email,
		license_number, contact_person, is_active, created_at
	FROM hospitals WHERE id = $1`
	var h Hospital
	err := r.db.QueryRow(ctx, query, id).Scan(&h.ID, &h.Name, &h.Address, &h.City,
		&h.State, &h.ZipCode, &h.Phone, &h.Email, &h.LicenseNumber, &h.ContactPerson,
		&h.IsActive, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Hospital{}, ErrNotFound
	}
	return h, err
}

func (r *repo) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	query := `SELECT id, name, address, city, state, zip_code, phone, email,
		license_number, contact_person, payment_terms, is_active, created_at
	FROM suppliers WHERE is_active ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.State, &s.ZipCode,
			&s.Phone, &s.Email, &s.LicenseNumber, &s.ContactPerson, &s.PaymentTerms,
			&s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *repo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	query := `SELECT id, name, address, city, state, zip_code, phone, email,
		license_number, contact_person, payment_terms, is_active, created_at
	FROM suppliers WHERE id = $1`
	var s Supplier
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Address, &s.City,
		&s.State, &s.ZipCode, &s.Phone, &s.Email, &s.LicenseNumber, &s.ContactPerson,
		&s.PaymentTerms, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}
