package inventory

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts ledger storage for the service.
type RepositoryPort interface {
	ListHospital(ctx context.Context, hospitalID int64) ([]HospitalItem, error)
	UpsertHospital(ctx context.Context, hospitalID int64, input HospitalItemInput) (HospitalItem, error)
	DeleteHospital(ctx context.Context, hospitalID, entryID int64) error
	LowStock(ctx context.Context, hospitalID int64) ([]HospitalItem, error)

	ListSupplier(ctx context.Context, supplierID int64) ([]SupplierItem, error)
	UpsertSupplier(ctx context.Context, supplierID int64, input SupplierItemInput) (SupplierItem, error)
	DeleteSupplier(ctx context.Context, supplierID, entryID int64) error
	AvailableFromSuppliers(ctx context.Context) ([]AvailableMedicine, error)
}

// Service coordinates the two stock ledgers. Each ledger is mutated only by
// its owning actor, so there is no cross-ledger locking.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// HospitalInventory lists a hospital's ledger joined with catalog fields.
func (s *Service) HospitalInventory(ctx context.Context, hospitalID int64) ([]HospitalItem, error) {
	return s.repo.ListHospital(ctx, hospitalID)
}

// UpsertHospitalItem inserts or updates a (hospital, medicine) row.
func (s *Service) UpsertHospitalItem(ctx context.Context, hospitalID int64, input HospitalItemInput) (HospitalItem, error) {
	if input.MedicineID == 0 {
		return HospitalItem{}, fmt.Errorf("%w: medicine required", ErrValidation)
	}
	if input.CurrentStock < 0 {
		return HospitalItem{}, fmt.Errorf("%w: current stock must not be negative", ErrValidation)
	}
	if input.ReorderPoint < 0 {
		return HospitalItem{}, fmt.Errorf("%w: reorder point must not be negative", ErrValidation)
	}
	if input.MaxStock <= input.ReorderPoint {
		return HospitalItem{}, fmt.Errorf("%w: max stock (%d) must exceed reorder point (%d)",
			ErrValidation, input.MaxStock, input.ReorderPoint)
	}
	if input.UnitCost < 0 {
		return HospitalItem{}, fmt.Errorf("%w: unit cost must not be negative", ErrValidation)
	}
	return s.repo.UpsertHospital(ctx, hospitalID, input)
}

// DeleteHospitalItem hard-deletes a row owned by the hospital.
func (s *Service) DeleteHospitalItem(ctx context.Context, hospitalID, entryID int64) error {
	return s.repo.DeleteHospital(ctx, hospitalID, entryID)
}

// LowStock returns rows with currentStock <= reorderPoint. The lifecycle
// engine surfaces these as reorder suggestions.
func (s *Service) LowStock(ctx context.Context, hospitalID int64) ([]HospitalItem, error) {
	return s.repo.LowStock(ctx, hospitalID)
}

// SupplierInventory lists a supplier's ledger joined with catalog fields.
func (s *Service) SupplierInventory(ctx context.Context, supplierID int64) ([]SupplierItem, error) {
	return s.repo.ListSupplier(ctx, supplierID)
}

// UpsertSupplierItem inserts or updates a (supplier, medicine) row.
func (s *Service) UpsertSupplierItem(ctx context.Context, supplierID int64, input SupplierItemInput) (SupplierItem, error) {
	if input.MedicineID == 0 {
		return SupplierItem{}, fmt.Errorf("%w: medicine required", ErrValidation)
	}
	if input.AvailableStock < 0 {
		return SupplierItem{}, fmt.Errorf("%w: available stock must not be negative", ErrValidation)
	}
	if input.UnitPrice < 0 {
		return SupplierItem{}, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if input.MinOrderQuantity < 1 {
		input.MinOrderQuantity = 1
	}
	return s.repo.UpsertSupplier(ctx, supplierID, input)
}

// DeleteSupplierItem hard-deletes a row owned by the supplier.
func (s *Service) DeleteSupplierItem(ctx context.Context, supplierID, entryID int64) error {
	return s.repo.DeleteSupplier(ctx, supplierID, entryID)
}

// AvailableFromSuppliers lists medicines any supplier stocks above zero.
func (s *Service) AvailableFromSuppliers(ctx context.Context) ([]AvailableMedicine, error) {
	return s.repo.AvailableFromSuppliers(ctx)
}
