package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ledgerKey struct {
	ownerID    int64
	medicineID int64
}

type memRepo struct {
	nextID        int64
	hospitalRows  map[ledgerKey]HospitalItem
	supplierRows  map[ledgerKey]SupplierItem
	supplierNames map[int64]string
	medicineNames map[int64]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		hospitalRows:  make(map[ledgerKey]HospitalItem),
		supplierRows:  make(map[ledgerKey]SupplierItem),
		supplierNames: map[int64]string{20: "MedSupply Co"},
		medicineNames: map[int64]string{1: "Paracetamol 500mg", 2: "Amoxicillin 250mg"},
	}
}

func (m *memRepo) ListHospital(_ context.Context, hospitalID int64) ([]HospitalItem, error) {
	var out []HospitalItem
	for k, item := range m.hospitalRows {
		if k.ownerID == hospitalID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memRepo) UpsertHospital(_ context.Context, hospitalID int64, in HospitalItemInput) (HospitalItem, error) {
	k := ledgerKey{hospitalID, in.MedicineID}
	item, exists := m.hospitalRows[k]
	if !exists {
		m.nextID++
		item = HospitalItem{ID: m.nextID, HospitalID: hospitalID, MedicineID: in.MedicineID,
			MedicineName: m.medicineNames[in.MedicineID]}
	}
	item.CurrentStock = in.CurrentStock
	item.ReorderPoint = in.ReorderPoint
	item.MaxStock = in.MaxStock
	item.UnitCost = in.UnitCost
	item.BatchNumber = in.BatchNumber
	item.ExpiryDate = in.ExpiryDate
	item.StorageLocation = in.StorageLocation
	item.LastUpdated = time.Now().UTC()
	m.hospitalRows[k] = item
	return item, nil
}

func (m *memRepo) DeleteHospital(_ context.Context, hospitalID, entryID int64) error {
	for k, item := range m.hospitalRows {
		if k.ownerID == hospitalID && item.ID == entryID {
			delete(m.hospitalRows, k)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) LowStock(_ context.Context, hospitalID int64) ([]HospitalItem, error) {
	var out []HospitalItem
	for k, item := range m.hospitalRows {
		if k.ownerID == hospitalID && item.CurrentStock <= item.ReorderPoint {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memRepo) ListSupplier(_ context.Context, supplierID int64) ([]SupplierItem, error) {
	var out []SupplierItem
	for k, item := range m.supplierRows {
		if k.ownerID == supplierID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memRepo) UpsertSupplier(_ context.Context, supplierID int64, in SupplierItemInput) (SupplierItem, error) {
	k := ledgerKey{supplierID, in.MedicineID}
	item, exists := m.supplierRows[k]
	if !exists {
		m.nextID++
		item = SupplierItem{ID: m.nextID, SupplierID: supplierID, MedicineID: in.MedicineID,
			MedicineName: m.medicineNames[in.MedicineID], IsActive: true}
	}
	item.AvailableStock = in.AvailableStock
	item.UnitPrice = in.UnitPrice
	item.MinOrderQuantity = in.MinOrderQuantity
	item.BatchNumber = in.BatchNumber
	item.ExpiryDate = in.ExpiryDate
	item.LastUpdated = time.Now().UTC()
	m.supplierRows[k] = item
	return item, nil
}

func (m *memRepo) DeleteSupplier(_ context.Context, supplierID, entryID int64) error {
	for k, item := range m.supplierRows {
		if k.ownerID == supplierID && item.ID == entryID {
			delete(m.supplierRows, k)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) AvailableFromSuppliers(_ context.Context) ([]AvailableMedicine, error) {
	var out []AvailableMedicine
	for k, item := range m.supplierRows {
		if item.IsActive && item.AvailableStock > 0 {
			out = append(out, AvailableMedicine{
				SupplierID:       k.ownerID,
				SupplierName:     m.supplierNames[k.ownerID],
				MedicineID:       item.MedicineID,
				MedicineName:     item.MedicineName,
				AvailableStock:   item.AvailableStock,
				UnitPrice:        item.UnitPrice,
				MinOrderQuantity: item.MinOrderQuantity,
			})
		}
	}
	return out, nil
}

func validHospitalInput() HospitalItemInput {
	return HospitalItemInput{
		MedicineID:   1,
		CurrentStock: 120,
		ReorderPoint: 40,
		MaxStock:     500,
		UnitCost:     2.5,
	}
}

func TestUpsertHospitalItem(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	item, err := svc.UpsertHospitalItem(ctx, 10, validHospitalInput())
	require.NoError(t, err)
	require.Equal(t, 120, item.CurrentStock)

	// A second upsert for the same medicine updates in place.
	in := validHospitalInput()
	in.CurrentStock = 80
	updated, err := svc.UpsertHospitalItem(ctx, 10, in)
	require.NoError(t, err)
	require.Equal(t, item.ID, updated.ID)
	require.Equal(t, 80, updated.CurrentStock)
}

func TestHospitalLedgerInvariants(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	for _, mutate := range []func(*HospitalItemInput){
		func(in *HospitalItemInput) { in.MedicineID = 0 },
		func(in *HospitalItemInput) { in.CurrentStock = -1 },
		func(in *HospitalItemInput) { in.ReorderPoint = -1 },
		func(in *HospitalItemInput) { in.MaxStock = in.ReorderPoint },
		func(in *HospitalItemInput) { in.UnitCost = -0.01 },
	} {
		in := validHospitalInput()
		mutate(&in)
		_, err := svc.UpsertHospitalItem(ctx, 10, in)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestLowStock(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	in := validHospitalInput()
	in.CurrentStock = 40 // exactly at the reorder point counts
	_, err := svc.UpsertHospitalItem(ctx, 10, in)
	require.NoError(t, err)

	in = validHospitalInput()
	in.MedicineID = 2
	in.CurrentStock = 41
	_, err = svc.UpsertHospitalItem(ctx, 10, in)
	require.NoError(t, err)

	low, err := svc.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, int64(1), low[0].MedicineID)
}

func TestSupplierLedger(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	item, err := svc.UpsertSupplierItem(ctx, 20, SupplierItemInput{
		MedicineID: 1, AvailableStock: 1000, UnitPrice: 1.8,
	})
	require.NoError(t, err)
	// Minimum order quantity defaults to one.
	require.Equal(t, 1, item.MinOrderQuantity)

	for _, mutate := range []func(*SupplierItemInput){
		func(in *SupplierItemInput) { in.MedicineID = 0 },
		func(in *SupplierItemInput) { in.AvailableStock = -1 },
		func(in *SupplierItemInput) { in.UnitPrice = -1 },
	} {
		in := SupplierItemInput{MedicineID: 1, AvailableStock: 10, UnitPrice: 1}
		mutate(&in)
		_, err := svc.UpsertSupplierItem(ctx, 20, in)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestAvailableFromSuppliers(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.UpsertSupplierItem(ctx, 20, SupplierItemInput{
		MedicineID: 1, AvailableStock: 1000, UnitPrice: 1.8, MinOrderQuantity: 50,
	})
	require.NoError(t, err)
	_, err = svc.UpsertSupplierItem(ctx, 20, SupplierItemInput{
		MedicineID: 2, AvailableStock: 0, UnitPrice: 3.2,
	})
	require.NoError(t, err)

	offers, err := svc.AvailableFromSuppliers(ctx)
	require.NoError(t, err)
	// Zero-stock offers stay out of the hospital's view.
	require.Len(t, offers, 1)
	require.Equal(t, int64(1), offers[0].MedicineID)
	require.Equal(t, "MedSupply Co", offers[0].SupplierName)
}

func TestDeleteScoping(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	item, err := svc.UpsertHospitalItem(ctx, 10, validHospitalInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteHospitalItem(ctx, 11, item.ID), ErrNotFound)
	require.NoError(t, svc.DeleteHospitalItem(ctx, 10, item.ID))
	require.ErrorIs(t, svc.DeleteHospitalItem(ctx, 10, item.ID), ErrNotFound)
}
