// Package settlement records payments against purchase orders and tracks the
// outstanding balance per purchase order.
package settlement

import (
	"errors"
	"time"
)

// Status is a settlement's lifecycle position. The hospital records a payment
// as pending; the supplier moves it through processing to completed, or marks
// it failed. Failed settlements do not count against the purchase order total.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// settlementNext holds the allowed forward moves per status.
var settlementNext = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Known reports whether s is a recognised status value.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether s may move to next.
func (s Status) CanAdvance(next Status) bool {
	for _, allowed := range settlementNext[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Type classifies a settlement against the purchase order total.
type Type string

const (
	TypeFull    Type = "full"
	TypePartial Type = "partial"
	TypeAdvance Type = "advance"
)

// Known reports whether t is a recognised settlement type.
func (t Type) Known() bool {
	return t == TypeFull || t == TypePartial || t == TypeAdvance
}

// Settlement is one payment against a purchase order.
type Settlement struct {
	ID                   int64      `json:"id"`
	Number               string     `json:"settlementNumber"`
	PurchaseOrderID      int64      `json:"purchaseOrderId"`
	HospitalID           int64      `json:"hospitalId"`
	SupplierID           int64      `json:"supplierId"`
	Amount               float64    `json:"amount"`
	SettlementType       Type       `json:"settlementType"`
	PaymentMethod        string     `json:"paymentMethod"`
	TransactionReference string     `json:"transactionReference"`
	DueDate              *time.Time `json:"dueDate,omitempty"`
	Notes                string     `json:"notes"`
	Status               Status     `json:"status"`
	CreatedAt            time.Time  `json:"createdAt"`
	SettledAt            *time.Time `json:"settledAt,omitempty"`
}

// Balance summarises how much of a purchase order has been paid. Failed
// settlements are excluded from the settled amount.
type Balance struct {
	PurchaseOrderID int64   `json:"purchaseOrderId"`
	TotalAmount     float64 `json:"totalAmount"`
	SettledAmount   float64 `json:"settledAmount"`
	Outstanding     float64 `json:"outstanding"`
}

// RecordInput carries the fields for a new settlement.
type RecordInput struct {
	PurchaseOrderID      int64      `json:"purchaseOrderId" validate:"required"`
	Amount               float64    `json:"amount" validate:"required,gt=0"`
	SettlementType       Type       `json:"settlementType" validate:"required,oneof=full partial advance"`
	PaymentMethod        string     `json:"paymentMethod"`
	TransactionReference string     `json:"transactionReference"`
	DueDate              *time.Time `json:"dueDate"`
	Notes                string     `json:"notes"`
}

var (
	// ErrNotFound indicates the settlement or purchase order is absent or
	// not owned by the acting party.
	ErrNotFound = errors.New("settlement: not found")
	// ErrValidation indicates invalid input, including overpayment.
	ErrValidation = errors.New("settlement: invalid input")
	// ErrInvalidState occurs when the purchase order or settlement status
	// fails the operation's precondition.
	ErrInvalidState = errors.New("settlement: invalid state")
	// ErrInvalidTransition occurs when the requested status move is not in
	// the adjacency table.
	ErrInvalidTransition = errors.New("settlement: invalid status transition")
	// ErrConflict surfaces a lost race on a status change.
	ErrConflict = errors.New("settlement: concurrent update conflict")
)
