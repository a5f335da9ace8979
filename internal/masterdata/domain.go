package masterdata

import (
	"errors"
	"time"
)

// Hospital is a registered hospital organisation.
type Hospital struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zipCode"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	LicenseNumber string    `json:"licenseNumber"`
	ContactPerson string    `json:"contactPerson"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Supplier is a registered supplier organisation.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zipCode"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	LicenseNumber string    `json:"licenseNumber"`
	ContactPerson string    `json:"contactPerson"`
	PaymentTerms  string    `json:"paymentTerms"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ErrNotFound indicates the record is missing.
var ErrNotFound = errors.New("masterdata: not found")
