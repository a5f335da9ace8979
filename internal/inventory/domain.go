package inventory

import (
	"errors"
	"time"
)

// HospitalItem is one (hospital, medicine) row on the consumption-side ledger.
// Display fields come from a catalog join.
type HospitalItem struct {
	ID              int64      `json:"id"`
	HospitalID      int64      `json:"hospitalId"`
	MedicineID      int64      `json:"medicineId"`
	MedicineName    string     `json:"medicineName"`
	GenericName     string     `json:"genericName"`
	CurrentStock    int        `json:"currentStock"`
	ReorderPoint    int        `json:"reorderPoint"`
	MaxStock        int        `json:"maxStock"`
	UnitCost        float64    `json:"unitCost"`
	BatchNumber     string     `json:"batchNumber"`
	ExpiryDate      *time.Time `json:"expiryDate,omitempty"`
	StorageLocation string     `json:"storageLocation"`
	LastUpdated     time.Time  `json:"lastUpdated"`
}

// SupplierItem is one (supplier, medicine) row on the supply-side ledger.
type SupplierItem struct {
	ID               int64      `json:"id"`
	SupplierID       int64      `json:"supplierId"`
	MedicineID       int64      `json:"medicineId"`
	MedicineName     string     `json:"medicineName"`
	GenericName      string     `json:"genericName"`
	AvailableStock   int        `json:"availableStock"`
	UnitPrice        float64    `json:"unitPrice"`
	MinOrderQuantity int        `json:"minOrderQuantity"`
	BatchNumber      string     `json:"batchNumber"`
	ExpiryDate       *time.Time `json:"expiryDate,omitempty"`
	IsActive         bool       `json:"isActive"`
	LastUpdated      time.Time  `json:"lastUpdated"`
}

// AvailableMedicine is a supplier-side offer visible to hospitals while
// composing an order: any medicine some supplier stocks above zero.
type AvailableMedicine struct {
	SupplierID       int64   `json:"supplierId"`
	SupplierName     string  `json:"supplierName"`
	MedicineID       int64   `json:"medicineId"`
	MedicineName     string  `json:"medicineName"`
	GenericName      string  `json:"genericName"`
	AvailableStock   int     `json:"availableStock"`
	UnitPrice        float64 `json:"unitPrice"`
	MinOrderQuantity int     `json:"minOrderQuantity"`
}

// HospitalItemInput carries upsert fields for the hospital ledger.
type HospitalItemInput struct {
	MedicineID      int64
	CurrentStock    int
	ReorderPoint    int
	MaxStock        int
	UnitCost        float64
	BatchNumber     string
	ExpiryDate      *time.Time
	StorageLocation string
}

// SupplierItemInput carries upsert fields for the supplier ledger.
type SupplierItemInput struct {
	MedicineID       int64
	AvailableStock   int
	UnitPrice        float64
	MinOrderQuantity int
	BatchNumber      string
	ExpiryDate       *time.Time
}

var (
	// ErrNotFound indicates the ledger row is absent or not owned by the actor.
	ErrNotFound = errors.New("inventory: entry not found")
	// ErrValidation indicates an input violating a ledger invariant.
	ErrValidation = errors.New("inventory: invalid input")
)
