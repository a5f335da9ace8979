package procurement

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// numberAttempts bounds retries on document number collisions. The suffix
// space is a million values per prefix and year, so one retry already makes
// a collision astronomically unlikely.
const numberAttempts = 3

// documentNumber builds identifiers like ORD-2026-048213. The suffix is
// random rather than sequential so numbers do not leak order volume.
func documentNumber(prefix string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("procurement: generate number: %w", err)
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, now.Year(), n.Int64()), nil
}

// lineTotal computes quantity x unitPrice at two decimal places. Totals are
// computed in decimal space so the stored sum matches the stored lines
// exactly.
func lineTotal(quantity int, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// OrderItemInput is one requested line on a new order.
type OrderItemInput struct {
	MedicineID int64 `json:"medicineId" validate:"required"`
	Quantity   int   `json:"quantity" validate:"required,min=1"`
}

// CreateOrderInput carries a hospital's new order request.
type CreateOrderInput struct {
	Priority     Priority         `json:"priority"`
	RequiredDate time.Time        `json:"requiredDate" validate:"required"`
	Notes        string           `json:"notes"`
	Items        []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// QuotationItemInput is one priced line on a quotation.
type QuotationItemInput struct {
	MedicineID   int64   `json:"medicineId" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	UnitPrice    float64 `json:"unitPrice" validate:"min=0"`
	LeadTimeDays int     `json:"leadTimeDays"`
}

// SubmitQuotationInput carries a supplier's priced response to an order.
type SubmitQuotationInput struct {
	ValidUntil    time.Time            `json:"validUntil" validate:"required"`
	DeliveryTerms string               `json:"deliveryTerms"`
	PaymentTerms  string               `json:"paymentTerms"`
	Notes         string               `json:"notes"`
	Items         []QuotationItemInput `json:"items" validate:"required,min=1,dive"`
}

// AcceptQuotationInput carries purchase order fields set at acceptance.
type AcceptQuotationInput struct {
	DeliveryAddress      string     `json:"deliveryAddress"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate"`
}

// Service drives the order, quotation and purchase order lifecycles. All
// status transitions run as compare-and-swap updates inside a transaction,
// so a lost race surfaces as ErrConflict instead of a silent overwrite.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	events EventPublisher
	now    func() time.Time
}

// NewService builds a Service. Pass NopPublisher when no relay is wired.
func NewService(logger *slog.Logger, repo RepositoryPort, events EventPublisher) *Service {
	return &Service{logger: logger, repo: repo, events: events, now: time.Now}
}

// CreateOrder opens a new pending order for a hospital.
func (s *Service) CreateOrder(ctx context.Context, hospitalID, userID int64, in CreateOrderInput) (Order, []OrderItem, error) {
	if len(in.Items) == 0 {
		return Order{}, nil, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	for _, it := range in.Items {
		if it.MedicineID == 0 {
			return Order{}, nil, fmt.Errorf("%w: medicine required on every item", ErrValidation)
		}
		if it.Quantity < 1 {
			return Order{}, nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
	}
	switch in.Priority {
	case PriorityUrgent, PriorityStandard, PriorityLow:
	case "":
		in.Priority = PriorityStandard
	default:
		return Order{}, nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	now := s.now().UTC()
	if in.RequiredDate.Before(now.Truncate(24 * time.Hour)) {
		return Order{}, nil, fmt.Errorf("%w: required date must not be in the past", ErrValidation)
	}

	order := Order{
		HospitalID:   hospitalID,
		Status:       OrderStatusPending,
		Priority:     in.Priority,
		RequestedBy:  userID,
		RequiredDate: in.RequiredDate,
		Notes:        in.Notes,
		CreatedAt:    now,
	}
	items := make([]OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, OrderItem{MedicineID: it.MedicineID, Quantity: it.Quantity, Status: "pending"})
	}

	err := s.withFreshNumber("ORD", now, func(number string) error {
		order.Number = number
		return s.repo.WithTx(ctx, func(tx TxRepository) error {
			if err := tx.InsertOrder(ctx, &order); err != nil {
				return err
			}
			return tx.InsertOrderItems(ctx, order.ID, items)
		})
	})
	if err != nil {
		return Order{}, nil, err
	}

	s.logger.Info("order created",
		slog.String("order", order.Number), slog.Int64("hospital_id", hospitalID))
	s.events.OrderCreated(ctx, OrderCreatedEvent{Order: order, Items: items})
	return order, items, nil
}

// OrderForHospital loads an order with its lines, scoped to the owner.
func (s *Service) OrderForHospital(ctx context.Context, hospitalID, orderID int64) (Order, []OrderItem, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	if order.HospitalID != hospitalID {
		return Order{}, nil, ErrNotFound
	}
	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	return order, items, nil
}

// OrdersForHospital lists a hospital's orders.
func (s *Service) OrdersForHospital(ctx context.Context, hospitalID int64) ([]Order, error) {
	return s.repo.ListOrdersByHospital(ctx, hospitalID)
}

// OpenOrders lists pending orders visible to every supplier.
func (s *Service) OpenOrders(ctx context.Context) ([]Order, error) {
	return s.repo.ListOpenOrders(ctx)
}

// OrderItems loads an order's lines for the supplier marketplace view.
// Suppliers may inspect any pending order, so this is not ownership scoped.
func (s *Service) OrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.GetOrderItems(ctx, orderID)
}

// SubmitQuotation prices a pending order, moving it to quoted. Exactly one
// supplier wins the race to quote; later callers observe ErrInvalidState or
// ErrConflict.
func (s *Service) SubmitQuotation(ctx context.Context, supplierID, orderID int64, in SubmitQuotationInput) (Quotation, []QuotationItem, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Quotation{}, nil, err
	}
	if order.Status != OrderStatusPending {
		return Quotation{}, nil, fmt.Errorf("%w: order %s is %s, not pending",
			ErrInvalidState, order.Number, order.Status)
	}
	if len(in.Items) == 0 {
		return Quotation{}, nil, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	now := s.now().UTC()
	if !in.ValidUntil.After(now) {
		return Quotation{}, nil, fmt.Errorf("%w: validity must end in the future", ErrValidation)
	}

	total := decimal.Zero
	items := make([]QuotationItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.MedicineID == 0 {
			return Quotation{}, nil, fmt.Errorf("%w: medicine required on every item", ErrValidation)
		}
		if it.Quantity < 1 {
			return Quotation{}, nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		if it.UnitPrice < 0 {
			return Quotation{}, nil, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
		}
		line := lineTotal(it.Quantity, it.UnitPrice)
		total = total.Add(line)
		items = append(items, QuotationItem{
			MedicineID:   it.MedicineID,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   line.InexactFloat64(),
			LeadTimeDays: it.LeadTimeDays,
		})
	}

	quotation := Quotation{
		OrderID:       orderID,
		OrderNumber:   order.Number,
		SupplierID:    supplierID,
		HospitalID:    order.HospitalID,
		Status:        QuotationStatusSubmitted,
		ValidUntil:    in.ValidUntil,
		TotalAmount:   total.InexactFloat64(),
		DeliveryTerms: in.DeliveryTerms,
		PaymentTerms:  in.PaymentTerms,
		Notes:         in.Notes,
		SubmittedAt:   now,
		CreatedAt:     now,
	}

	err = s.withFreshNumber("QUO", now, func(number string) error {
		quotation.Number = number
		return s.repo.WithTx(ctx, func(tx TxRepository) error {
			swapped, err := tx.CASOrderStatus(ctx, orderID, OrderStatusPending, OrderStatusQuoted)
			if err != nil {
				return err
			}
			if !swapped {
				return fmt.Errorf("%w: order %s was quoted or withdrawn concurrently",
					ErrConflict, order.Number)
			}
			if err := tx.SetOrderAward(ctx, orderID, supplierID, quotation.TotalAmount); err != nil {
				return err
			}
			if err := tx.InsertQuotation(ctx, &quotation); err != nil {
				return err
			}
			return tx.InsertQuotationItems(ctx, quotation.ID, items)
		})
	})
	if err != nil {
		return Quotation{}, nil, err
	}

	s.logger.Info("quotation submitted",
		slog.String("quotation", quotation.Number),
		slog.String("order", order.Number),
		slog.Int64("supplier_id", supplierID))
	s.events.QuotationReceived(ctx, QuotationReceivedEvent{Quotation: quotation})
	return quotation, items, nil
}

// RejectOrder declines a pending order on behalf of a supplier. The hospital
// is notified; the order becomes terminal.
func (s *Service) RejectOrder(ctx context.Context, supplierID, orderID int64) (Order, error) {
	order, err := s.transitionOrder(ctx, orderID, OrderStatusRejected)
	if err != nil {
		return Order{}, err
	}
	s.events.OrderRejected(ctx, OrderRejectedEvent{Order: order, SupplierID: supplierID})
	return order, nil
}

// IgnoreOrder silently retires a pending order from the supplier marketplace.
func (s *Service) IgnoreOrder(ctx context.Context, orderID int64) (Order, error) {
	return s.transitionOrder(ctx, orderID, OrderStatusIgnored)
}

func (s *Service) transitionOrder(ctx context.Context, orderID int64, to OrderStatus) (Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != OrderStatusPending {
		return Order{}, fmt.Errorf("%w: order %s is %s, not pending",
			ErrInvalidState, order.Number, order.Status)
	}
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		swapped, err := tx.CASOrderStatus(ctx, orderID, OrderStatusPending, to)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("%w: order %s changed concurrently", ErrConflict, order.Number)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.Status = to
	return order, nil
}

// QuotationForHospital loads a quotation with lines, scoped to the hospital.
func (s *Service) QuotationForHospital(ctx context.Context, hospitalID, quotationID int64) (Quotation, []QuotationItem, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return Quotation{}, nil, err
	}
	if q.HospitalID != hospitalID {
		return Quotation{}, nil, ErrNotFound
	}
	items, err := s.repo.GetQuotationItems(ctx, quotationID)
	if err != nil {
		return Quotation{}, nil, err
	}
	return q, items, nil
}

// QuotationsForHospital lists quotations against a hospital's orders.
func (s *Service) QuotationsForHospital(ctx context.Context, hospitalID int64) ([]Quotation, error) {
	return s.repo.ListQuotationsByHospital(ctx, hospitalID)
}

// QuotationsForSupplier lists a supplier's quotations.
func (s *Service) QuotationsForSupplier(ctx context.Context, supplierID int64) ([]Quotation, error) {
	return s.repo.ListQuotationsBySupplier(ctx, supplierID)
}

// AcceptQuotation converts a submitted quotation into a purchase order. The
// whole step is one transaction: quotation accepted, purchase order created
// with the snapshotted total, originating order closed. A quotation past its
// validity is flipped to expired instead and ErrExpired returned.
func (s *Service) AcceptQuotation(ctx context.Context, hospitalID, userID, quotationID int64, in AcceptQuotationInput) (PurchaseOrder, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if q.HospitalID != hospitalID {
		return PurchaseOrder{}, ErrNotFound
	}
	if q.Status != QuotationStatusSubmitted {
		return PurchaseOrder{}, fmt.Errorf("%w: quotation %s is %s, not submitted",
			ErrInvalidState, q.Number, q.Status)
	}
	now := s.now().UTC()
	if now.After(q.ValidUntil) {
		err := s.repo.WithTx(ctx, func(tx TxRepository) error {
			_, err := tx.CASQuotationStatus(ctx, quotationID,
				QuotationStatusSubmitted, QuotationStatusExpired, now)
			return err
		})
		if err != nil {
			return PurchaseOrder{}, err
		}
		return PurchaseOrder{}, fmt.Errorf("%w: quotation %s valid until %s",
			ErrExpired, q.Number, q.ValidUntil.Format(time.RFC3339))
	}

	po := PurchaseOrder{
		OrderID:              q.OrderID,
		QuotationID:          q.ID,
		HospitalID:           q.HospitalID,
		SupplierID:           q.SupplierID,
		Status:               POStatusCreated,
		TotalAmount:          q.TotalAmount,
		DeliveryAddress:      in.DeliveryAddress,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		CreatedBy:            userID,
		CreatedAt:            now,
	}

	err = s.withFreshNumber("PO", now, func(number string) error {
		po.Number = number
		return s.repo.WithTx(ctx, func(tx TxRepository) error {
			swapped, err := tx.CASQuotationStatus(ctx, quotationID,
				QuotationStatusSubmitted, QuotationStatusAccepted, now)
			if err != nil {
				return err
			}
			if !swapped {
				return fmt.Errorf("%w: quotation %s was decided concurrently", ErrConflict, q.Number)
			}
			if err := tx.InsertPurchaseOrder(ctx, &po); err != nil {
				return err
			}
			swapped, err = tx.CASOrderStatus(ctx, q.OrderID, OrderStatusQuoted, OrderStatusClosed)
			if err != nil {
				return err
			}
			if !swapped {
				return fmt.Errorf("%w: order for quotation %s changed concurrently", ErrConflict, q.Number)
			}
			return nil
		})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.logger.Info("purchase order created",
		slog.String("po", po.Number),
		slog.String("quotation", q.Number),
		slog.Int64("hospital_id", hospitalID))
	s.events.PurchaseOrderCreated(ctx, PurchaseOrderCreatedEvent{PurchaseOrder: po})
	return po, nil
}

// RejectQuotation declines a submitted quotation. The order stays quoted and
// does not reopen; the hospital places a new order if still in need.
func (s *Service) RejectQuotation(ctx context.Context, hospitalID, quotationID int64) (Quotation, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return Quotation{}, err
	}
	if q.HospitalID != hospitalID {
		return Quotation{}, ErrNotFound
	}
	if q.Status != QuotationStatusSubmitted {
		return Quotation{}, fmt.Errorf("%w: quotation %s is %s, not submitted",
			ErrInvalidState, q.Number, q.Status)
	}
	now := s.now().UTC()
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		swapped, err := tx.CASQuotationStatus(ctx, quotationID,
			QuotationStatusSubmitted, QuotationStatusRejected, now)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("%w: quotation %s was decided concurrently", ErrConflict, q.Number)
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	q.Status = QuotationStatusRejected
	q.RespondedAt = &now

	s.events.QuotationRejected(ctx, QuotationRejectedEvent{Quotation: q})
	return q, nil
}

// PurchaseOrderForHospital loads a purchase order scoped to the hospital.
func (s *Service) PurchaseOrderForHospital(ctx context.Context, hospitalID, poID int64) (PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.HospitalID != hospitalID {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

// PurchaseOrderForSupplier loads a purchase order scoped to the supplier.
func (s *Service) PurchaseOrderForSupplier(ctx context.Context, supplierID, poID int64) (PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.SupplierID != supplierID {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

// PurchaseOrdersForHospital lists a hospital's purchase orders.
func (s *Service) PurchaseOrdersForHospital(ctx context.Context, hospitalID int64) ([]PurchaseOrder, error) {
	return s.repo.ListPurchaseOrdersByHospital(ctx, hospitalID)
}

// PurchaseOrdersForSupplier lists a supplier's purchase orders.
func (s *Service) PurchaseOrdersForSupplier(ctx context.Context, supplierID int64) ([]PurchaseOrder, error) {
	return s.repo.ListPurchaseOrdersBySupplier(ctx, supplierID)
}

// AdvancePurchaseOrderAsSupplier moves a purchase order one step along its
// lifecycle on behalf of the supplier.
func (s *Service) AdvancePurchaseOrderAsSupplier(ctx context.Context, supplierID, poID int64, next POStatus) (PurchaseOrder, error) {
	po, err := s.PurchaseOrderForSupplier(ctx, supplierID, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.advancePurchaseOrder(ctx, po, next)
}

// AdvancePurchaseOrderAsHospital moves a purchase order one step along its
// lifecycle on behalf of the hospital.
func (s *Service) AdvancePurchaseOrderAsHospital(ctx context.Context, hospitalID, poID int64, next POStatus) (PurchaseOrder, error) {
	po, err := s.PurchaseOrderForHospital(ctx, hospitalID, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.advancePurchaseOrder(ctx, po, next)
}

func (s *Service) advancePurchaseOrder(ctx context.Context, po PurchaseOrder, next POStatus) (PurchaseOrder, error) {
	switch next {
	case POStatusCreated, POStatusConfirmed, POStatusInProgress, POStatusShipped,
		POStatusDelivered, POStatusCompleted, POStatusCancelled:
	default:
		return PurchaseOrder{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	// Re-requesting the current terminal status is a retried client call;
	// answer with the unchanged purchase order.
	if po.Status.Terminal() && po.Status == next {
		return po, nil
	}
	if !po.Status.CanAdvance(next) {
		return PurchaseOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, po.Status, next)
	}

	var deliveredAt *time.Time
	if next == POStatusDelivered {
		now := s.now().UTC()
		deliveredAt = &now
	}
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		swapped, err := tx.CASPurchaseOrderStatus(ctx, po.ID, po.Status, next, deliveredAt)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("%w: purchase order %s changed concurrently", ErrConflict, po.Number)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = next
	if deliveredAt != nil {
		po.ActualDeliveryDate = deliveredAt
	}

	s.logger.Info("purchase order advanced",
		slog.String("po", po.Number), slog.String("status", string(next)))
	return po, nil
}

// ExpireQuotations retires submitted quotations past their validity. Run
// periodically as a backstop; the acceptance path performs the same check
// inline.
func (s *Service) ExpireQuotations(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireQuotations(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("quotations expired", slog.Int64("count", n))
	}
	return n, nil
}

// withFreshNumber runs fn with a generated document number, regenerating on
// a unique constraint collision.
func (s *Service) withFreshNumber(prefix string, now time.Time, fn func(number string) error) error {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := documentNumber(prefix, now)
		if err != nil {
			return err
		}
		err = fn(number)
		if errors.Is(err, errDuplicateNumber) {
			continue
		}
		return err
	}
	return errDuplicateNumber
}
