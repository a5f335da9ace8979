package catalog

import (
	"errors"
	"time"
)

// Medicine is a canonical catalog entry. Identity is immutable; descriptive
// fields may be edited by catalog administrators. Rows are never hard-deleted,
// only deactivated.
type Medicine struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	GenericName   string    `json:"genericName"`
	Brand         string    `json:"brand"`
	Strength      string    `json:"strength"`
	DosageForm    string    `json:"dosageForm"`
	Route         string    `json:"route"`
	Category      string    `json:"category"`
	HSNCode       string    `json:"hsnCode"`
	GSTPercent    float64   `json:"gstPercent"`
	UnitOfMeasure string    `json:"unitOfMeasure"`
	Description   string    `json:"description"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MedicineInput carries the editable fields for create and update.
type MedicineInput struct {
	Name          string
	GenericName   string
	Brand         string
	Strength      string
	DosageForm    string
	Route         string
	Category      string
	HSNCode       string
	GSTPercent    float64
	UnitOfMeasure string
	Description   string
}

var (
	// ErrNotFound indicates the medicine id is absent.
	ErrNotFound = errors.New("catalog: medicine not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("catalog: invalid input")
)
