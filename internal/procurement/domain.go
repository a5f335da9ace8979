package procurement

import (
	"errors"
	"time"
)

// Order lifecycle statuses. Orders are append-only: rejected and ignored are
// terminal, quoted closes via purchase order creation.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusQuoted   OrderStatus = "quoted"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusIgnored  OrderStatus = "ignored"
	OrderStatusClosed   OrderStatus = "closed"
)

// Quotation lifecycle statuses. A quotation transitions exactly once out of
// submitted, then becomes immutable.
type QuotationStatus string

const (
	QuotationStatusSubmitted QuotationStatus = "submitted"
	QuotationStatusAccepted  QuotationStatus = "accepted"
	QuotationStatusRejected  QuotationStatus = "rejected"
	QuotationStatusExpired   QuotationStatus = "expired"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusCreated    POStatus = "created"
	POStatusConfirmed  POStatus = "confirmed"
	POStatusInProgress POStatus = "in_progress"
	POStatusShipped    POStatus = "shipped"
	POStatusDelivered  POStatus = "delivered"
	POStatusCompleted  POStatus = "completed"
	POStatusCancelled  POStatus = "cancelled"
)

// poNext encodes the only legal forward step per status. Cancellation is
// additionally allowed from every non-terminal status.
var poNext = map[POStatus]POStatus{
	POStatusCreated:    POStatusConfirmed,
	POStatusConfirmed:  POStatusInProgress,
	POStatusInProgress: POStatusShipped,
	POStatusShipped:    POStatusDelivered,
	POStatusDelivered:  POStatusCompleted,
}

// Terminal reports whether no further PO transition is permitted.
func (s POStatus) Terminal() bool {
	return s == POStatusCompleted || s == POStatusCancelled
}

// CanAdvance reports whether next is a legal transition from s.
func (s POStatus) CanAdvance(next POStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == POStatusCancelled {
		return true
	}
	return poNext[s] == next
}

// Order priorities.
type Priority string

const (
	PriorityUrgent   Priority = "urgent"
	PriorityStandard Priority = "standard"
	PriorityLow      Priority = "low"
)

// Order is a hospital-originated request for medicines, pre-pricing.
// SupplierID and TotalAmount stay nil until a supplier quotes it.
type Order struct {
	ID           int64       `json:"id"`
	Number       string      `json:"orderNumber"`
	HospitalID   int64       `json:"hospitalId"`
	SupplierID   *int64      `json:"supplierId,omitempty"`
	Status       OrderStatus `json:"status"`
	Priority     Priority    `json:"priority"`
	TotalAmount  *float64    `json:"totalAmount,omitempty"`
	RequestedBy  int64       `json:"requestedBy"`
	RequiredDate time.Time   `json:"requiredDate"`
	Notes        string      `json:"notes"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// OrderItem is one requested medicine line.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"orderId"`
	MedicineID int64  `json:"medicineId"`
	Quantity   int    `json:"quantity"`
	Status     string `json:"status"`
}

// Quotation is a supplier's priced response to an Order.
type Quotation struct {
	ID            int64           `json:"id"`
	Number        string          `json:"quotationNumber"`
	OrderID       int64           `json:"orderId"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	SupplierID    int64           `json:"supplierId"`
	HospitalID    int64           `json:"hospitalId"`
	Status        QuotationStatus `json:"status"`
	ValidUntil    time.Time       `json:"validUntil"`
	TotalAmount   float64         `json:"totalAmount"`
	DeliveryTerms string          `json:"deliveryTerms"`
	PaymentTerms  string          `json:"paymentTerms"`
	Notes         string          `json:"notes"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	RespondedAt   *time.Time      `json:"respondedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// QuotationItem is one priced line. TotalPrice is always quantity x unit
// price at two decimal places.
type QuotationItem struct {
	ID           int64   `json:"id"`
	QuotationID  int64   `json:"quotationId"`
	MedicineID   int64   `json:"medicineId"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	TotalPrice   float64 `json:"totalPrice"`
	LeadTimeDays int     `json:"leadTimeDays"`
}

// PurchaseOrder is the binding commitment produced exactly once per accepted
// quotation. TotalAmount is an immutable snapshot taken at acceptance time.
type PurchaseOrder struct {
	ID                   int64      `json:"id"`
	Number               string     `json:"poNumber"`
	OrderID              int64      `json:"orderId"`
	QuotationID          int64      `json:"quotationId"`
	HospitalID           int64      `json:"hospitalId"`
	SupplierID           int64      `json:"supplierId"`
	Status               POStatus   `json:"status"`
	TotalAmount          float64    `json:"totalAmount"`
	DeliveryAddress      string     `json:"deliveryAddress"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
	ActualDeliveryDate   *time.Time `json:"actualDeliveryDate,omitempty"`
	CreatedBy            int64      `json:"createdBy"`
	CreatedAt            time.Time  `json:"createdAt"`
}

var (
	// ErrNotFound indicates the referenced entity is absent or not owned by
	// the acting party.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrInvalidState occurs when the entity's current status fails the
	// operation's precondition.
	ErrInvalidState = errors.New("procurement: invalid state")
	// ErrExpired occurs when acting on a quotation past its validity.
	ErrExpired = errors.New("procurement: quotation expired")
	// ErrInvalidTransition occurs on a non-adjacent purchase order status jump.
	ErrInvalidTransition = errors.New("procurement: invalid status transition")
	// ErrConflict surfaces a lost compare-and-swap race: the entity moved
	// between the precondition read and the write.
	ErrConflict = errors.New("procurement: concurrent update conflict")
)
