package notify

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/medilink/medilink/internal/procurement"
)

// FeedStore persists notifications before fan-out.
type FeedStore interface {
	Insert(ctx context.Context, n *Notification) error
}

// Publisher turns lifecycle events into notifications. Delivery is best
// effort: a failed insert or publish is logged and dropped, never propagated
// back into the transition that emitted the event.
type Publisher struct {
	logger  *slog.Logger
	broker  *Broker
	store   FeedStore
	printer *message.Printer
}

// NewPublisher constructs a Publisher.
func NewPublisher(logger *slog.Logger, broker *Broker, store FeedStore) *Publisher {
	return &Publisher{
		logger:  logger,
		broker:  broker,
		store:   store,
		printer: message.NewPrinter(language.English),
	}
}

func (p *Publisher) amount(v float64) string {
	return p.printer.Sprintf("₹%.2f", v)
}

func (p *Publisher) dispatch(ctx context.Context, n Notification) {
	if err := p.store.Insert(ctx, &n); err != nil {
		p.logger.Error("notify: persist", slog.String("type", n.Type), slog.Any("error", err))
	}
	if err := p.broker.Publish(ctx, n); err != nil {
		p.logger.Error("notify: relay", slog.String("type", n.Type), slog.Any("error", err))
	}
}

// OrderCreated announces a fresh open order to every supplier.
func (p *Publisher) OrderCreated(ctx context.Context, ev procurement.OrderCreatedEvent) {
	p.dispatch(ctx, Notification{
		Audience: AudienceSupplier,
		Type:     "order_created",
		Title:    "New order " + ev.Order.Number,
		Message: p.printer.Sprintf("Order %s with %d items needs quotations, priority %s.",
			ev.Order.Number, len(ev.Items), ev.Order.Priority),
		Data: map[string]any{"orderId": ev.Order.ID, "orderNumber": ev.Order.Number},
	})
}

// QuotationReceived tells the ordering hospital a quotation arrived.
func (p *Publisher) QuotationReceived(ctx context.Context, ev procurement.QuotationReceivedEvent) {
	q := ev.Quotation
	p.dispatch(ctx, Notification{
		Audience:    AudienceHospital,
		RecipientID: q.HospitalID,
		Type:        "quotation_received",
		Title:       "Quotation " + q.Number,
		Message: p.printer.Sprintf("Quotation %s for order %s totals %s.",
			q.Number, q.OrderNumber, p.amount(q.TotalAmount)),
		Data: map[string]any{"quotationId": q.ID, "orderId": q.OrderID},
	})
}

// QuotationRejected tells the supplier their quotation was declined.
func (p *Publisher) QuotationRejected(ctx context.Context, ev procurement.QuotationRejectedEvent) {
	q := ev.Quotation
	p.dispatch(ctx, Notification{
		Audience:    AudienceSupplier,
		RecipientID: q.SupplierID,
		Type:        "quotation_rejected",
		Title:       "Quotation " + q.Number + " declined",
		Message:     p.printer.Sprintf("The hospital declined quotation %s for order %s.", q.Number, q.OrderNumber),
		Data:        map[string]any{"quotationId": q.ID, "orderId": q.OrderID},
	})
}

// OrderRejected tells the hospital a supplier declined their order.
func (p *Publisher) OrderRejected(ctx context.Context, ev procurement.OrderRejectedEvent) {
	p.dispatch(ctx, Notification{
		Audience:    AudienceHospital,
		RecipientID: ev.Order.HospitalID,
		Type:        "order_rejected",
		Title:       "Order " + ev.Order.Number + " declined",
		Message:     p.printer.Sprintf("A supplier declined order %s.", ev.Order.Number),
		Data:        map[string]any{"orderId": ev.Order.ID},
	})
}

// PurchaseOrderCreated tells the winning supplier a purchase order exists.
func (p *Publisher) PurchaseOrderCreated(ctx context.Context, ev procurement.PurchaseOrderCreatedEvent) {
	po := ev.PurchaseOrder
	p.dispatch(ctx, Notification{
		Audience:    AudienceSupplier,
		RecipientID: po.SupplierID,
		Type:        "purchase_order_created",
		Title:       "Purchase order " + po.Number,
		Message: p.printer.Sprintf("Purchase order %s worth %s was issued against your quotation.",
			po.Number, p.amount(po.TotalAmount)),
		Data: map[string]any{"purchaseOrderId": po.ID, "quotationId": po.QuotationID},
	})
}

// LowStockAlert warns a hospital that ledger rows sit at or under their
// reorder point. Emitted by the periodic inventory scan.
func (p *Publisher) LowStockAlert(ctx context.Context, hospitalID int64, medicineNames []string) {
	if len(medicineNames) == 0 {
		return
	}
	p.dispatch(ctx, Notification{
		Audience:    AudienceHospital,
		RecipientID: hospitalID,
		Type:        "low_stock",
		Title:       "Low stock alert",
		Message: p.printer.Sprintf("%d medicines are at or below their reorder point.",
			len(medicineNames)),
		Data: map[string]any{"medicines": medicineNames},
	})
}

var _ procurement.EventPublisher = (*Publisher)(nil)
