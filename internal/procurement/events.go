package procurement

import "context"

// Lifecycle events emitted after each committed transition. Delivery is
// fire-and-forget: a slow or failing consumer never rolls back the state
// change that produced the event.

// OrderCreatedEvent fans out to every supplier.
type OrderCreatedEvent struct {
	Order Order
	Items []OrderItem
}

// QuotationReceivedEvent targets the ordering hospital.
type QuotationReceivedEvent struct {
	Quotation Quotation
}

// QuotationRejectedEvent targets the quoting supplier.
type QuotationRejectedEvent struct {
	Quotation Quotation
}

// OrderRejectedEvent targets the ordering hospital.
type OrderRejectedEvent struct {
	Order      Order
	SupplierID int64
}

// PurchaseOrderCreatedEvent targets the winning supplier.
type PurchaseOrderCreatedEvent struct {
	PurchaseOrder PurchaseOrder
}

// EventPublisher receives lifecycle events for relay to connected portals.
// Implementations must not block the caller.
type EventPublisher interface {
	OrderCreated(ctx context.Context, ev OrderCreatedEvent)
	QuotationReceived(ctx context.Context, ev QuotationReceivedEvent)
	QuotationRejected(ctx context.Context, ev QuotationRejectedEvent)
	OrderRejected(ctx context.Context, ev OrderRejectedEvent)
	PurchaseOrderCreated(ctx context.Context, ev PurchaseOrderCreatedEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) OrderCreated(context.Context, OrderCreatedEvent)                 {}
func (NopPublisher) QuotationReceived(context.Context, QuotationReceivedEvent)       {}
func (NopPublisher) QuotationRejected(context.Context, QuotationRejectedEvent)       {}
func (NopPublisher) OrderRejected(context.Context, OrderRejectedEvent)               {}
func (NopPublisher) PurchaseOrderCreated(context.Context, PurchaseOrderCreatedEvent) {}
