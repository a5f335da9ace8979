package procurement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu             sync.Mutex
	nextID         int64
	orders         map[int64]*Order
	orderItems     map[int64][]OrderItem
	quotations     map[int64]*Quotation
	quotationItems map[int64][]QuotationItem
	purchaseOrders map[int64]*PurchaseOrder
	numbers        map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:         make(map[int64]*Order),
		orderItems:     make(map[int64][]OrderItem),
		quotations:     make(map[int64]*Quotation),
		quotationItems: make(map[int64][]QuotationItem),
		purchaseOrders: make(map[int64]*PurchaseOrder),
		numbers:        make(map[string]bool),
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) claimNumber(n string) error {
	if m.numbers[n] {
		return errDuplicateNumber
	}
	m.numbers[n] = true
	return nil
}

func (m *memRepo) WithTx(_ context.Context, fn func(tx TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{repo: m})
}

func (m *memRepo) GetOrder(_ context.Context, id int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *memRepo) GetOrderItems(_ context.Context, orderID int64) ([]OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OrderItem(nil), m.orderItems[orderID]...), nil
}

func (m *memRepo) ListOrdersByHospital(_ context.Context, hospitalID int64) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.HospitalID == hospitalID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) ListOpenOrders(_ context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.Status == OrderStatusPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) GetQuotation(_ context.Context, id int64) (Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	return *q, nil
}

func (m *memRepo) GetQuotationItems(_ context.Context, quotationID int64) ([]QuotationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QuotationItem(nil), m.quotationItems[quotationID]...), nil
}

func (m *memRepo) ListQuotationsByHospital(_ context.Context, hospitalID int64) ([]Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if q.HospitalID == hospitalID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memRepo) ListQuotationsBySupplier(_ context.Context, supplierID int64) ([]Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if q.SupplierID == supplierID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memRepo) GetPurchaseOrder(_ context.Context, id int64) (PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, ok := m.purchaseOrders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return *po, nil
}

func (m *memRepo) ListPurchaseOrdersByHospital(_ context.Context, hospitalID int64) ([]PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PurchaseOrder
	for _, po := range m.purchaseOrders {
		if po.HospitalID == hospitalID {
			out = append(out, *po)
		}
	}
	return out, nil
}

func (m *memRepo) ListPurchaseOrdersBySupplier(_ context.Context, supplierID int64) ([]PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PurchaseOrder
	for _, po := range m.purchaseOrders {
		if po.SupplierID == supplierID {
			out = append(out, *po)
		}
	}
	return out, nil
}

func (m *memRepo) ExpireQuotations(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, q := range m.quotations {
		if q.Status == QuotationStatusSubmitted && q.ValidUntil.Before(now) {
			q.Status = QuotationStatusExpired
			t := now
			q.RespondedAt = &t
			n++
		}
	}
	return n, nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	if err := t.repo.claimNumber(o.Number); err != nil {
		return err
	}
	o.ID = t.repo.id()
	cp := *o
	t.repo.orders[o.ID] = &cp
	return nil
}

func (t *memTx) InsertOrderItems(_ context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		items[i].ID = t.repo.id()
		items[i].OrderID = orderID
	}
	t.repo.orderItems[orderID] = append([]OrderItem(nil), items...)
	return nil
}

func (t *memTx) CASOrderStatus(_ context.Context, id int64, from, to OrderStatus) (bool, error) {
	o, ok := t.repo.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (t *memTx) SetOrderAward(_ context.Context, id, supplierID int64, total float64) error {
	o := t.repo.orders[id]
	o.SupplierID = &supplierID
	o.TotalAmount = &total
	return nil
}

func (t *memTx) InsertQuotation(_ context.Context, q *Quotation) error {
	if err := t.repo.claimNumber(q.Number); err != nil {
		return err
	}
	q.ID = t.repo.id()
	cp := *q
	t.repo.quotations[q.ID] = &cp
	return nil
}

func (t *memTx) InsertQuotationItems(_ context.Context, quotationID int64, items []QuotationItem) error {
	for i := range items {
		items[i].ID = t.repo.id()
		items[i].QuotationID = quotationID
	}
	t.repo.quotationItems[quotationID] = append([]QuotationItem(nil), items...)
	return nil
}

func (t *memTx) CASQuotationStatus(_ context.Context, id int64, from, to QuotationStatus, respondedAt time.Time) (bool, error) {
	q, ok := t.repo.quotations[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	q.RespondedAt = &respondedAt
	return true, nil
}

func (t *memTx) InsertPurchaseOrder(_ context.Context, po *PurchaseOrder) error {
	if err := t.repo.claimNumber(po.Number); err != nil {
		return err
	}
	po.ID = t.repo.id()
	cp := *po
	t.repo.purchaseOrders[po.ID] = &cp
	return nil
}

func (t *memTx) CASPurchaseOrderStatus(_ context.Context, id int64, from, to POStatus, deliveredAt *time.Time) (bool, error) {
	po, ok := t.repo.purchaseOrders[id]
	if !ok || po.Status != from {
		return false, nil
	}
	po.Status = to
	if deliveredAt != nil {
		po.ActualDeliveryDate = deliveredAt
	}
	return true, nil
}

type capturedEvents struct {
	mu                   sync.Mutex
	orderCreated         []OrderCreatedEvent
	quotationReceived    []QuotationReceivedEvent
	quotationRejected    []QuotationRejectedEvent
	orderRejected        []OrderRejectedEvent
	purchaseOrderCreated []PurchaseOrderCreatedEvent
}

func (c *capturedEvents) OrderCreated(_ context.Context, ev OrderCreatedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderCreated = append(c.orderCreated, ev)
}

func (c *capturedEvents) QuotationReceived(_ context.Context, ev QuotationReceivedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotationReceived = append(c.quotationReceived, ev)
}

func (c *capturedEvents) QuotationRejected(_ context.Context, ev QuotationRejectedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotationRejected = append(c.quotationRejected, ev)
}

func (c *capturedEvents) OrderRejected(_ context.Context, ev OrderRejectedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderRejected = append(c.orderRejected, ev)
}

func (c *capturedEvents) PurchaseOrderCreated(_ context.Context, ev PurchaseOrderCreatedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purchaseOrderCreated = append(c.purchaseOrderCreated, ev)
}

func newTestService(t *testing.T) (*Service, *memRepo, *capturedEvents) {
	t.Helper()
	repo := newMemRepo()
	events := &capturedEvents{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, events), repo, events
}

func validOrderInput() CreateOrderInput {
	return CreateOrderInput{
		Priority:     PriorityUrgent,
		RequiredDate: time.Now().Add(72 * time.Hour),
		Items: []OrderItemInput{
			{MedicineID: 1, Quantity: 100},
			{MedicineID: 2, Quantity: 40},
		},
	}
}

func validQuotationInput() SubmitQuotationInput {
	return SubmitQuotationInput{
		ValidUntil:   time.Now().Add(7 * 24 * time.Hour),
		PaymentTerms: "net 30",
		Items: []QuotationItemInput{
			{MedicineID: 1, Quantity: 100, UnitPrice: 12.35, LeadTimeDays: 5},
			{MedicineID: 2, Quantity: 40, UnitPrice: 3.1},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	order, items, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, order.Status)
	require.Regexp(t, regexp.MustCompile(`^ORD-\d{4}-\d{6}$`), order.Number)
	require.Nil(t, order.SupplierID)
	require.Nil(t, order.TotalAmount)
	require.Len(t, items, 2)
	require.Len(t, events.orderCreated, 1)
	require.Equal(t, order.Number, events.orderCreated[0].Order.Number)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := validOrderInput()
	in.Items = nil
	_, _, err := svc.CreateOrder(ctx, 10, 1, in)
	require.ErrorIs(t, err, ErrValidation)

	in = validOrderInput()
	in.Items[0].Quantity = 0
	_, _, err = svc.CreateOrder(ctx, 10, 1, in)
	require.ErrorIs(t, err, ErrValidation)

	in = validOrderInput()
	in.RequiredDate = time.Now().Add(-48 * time.Hour)
	_, _, err = svc.CreateOrder(ctx, 10, 1, in)
	require.ErrorIs(t, err, ErrValidation)

	in = validOrderInput()
	in.Priority = "asap"
	_, _, err = svc.CreateOrder(ctx, 10, 1, in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitQuotation(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)

	quotation, items, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)
	require.Equal(t, QuotationStatusSubmitted, quotation.Status)
	require.Regexp(t, regexp.MustCompile(`^QUO-\d{4}-\d{6}$`), quotation.Number)

	// 100 x 12.35 + 40 x 3.10, exact at two decimals.
	require.Equal(t, 1235.0, items[0].TotalPrice)
	require.Equal(t, 124.0, items[1].TotalPrice)
	require.Equal(t, 1359.0, quotation.TotalAmount)

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusQuoted, stored.Status)
	require.NotNil(t, stored.SupplierID)
	require.Equal(t, int64(20), *stored.SupplierID)
	require.NotNil(t, stored.TotalAmount)
	require.Equal(t, quotation.TotalAmount, *stored.TotalAmount)

	require.Len(t, events.quotationReceived, 1)
}

func TestSubmitQuotationOnQuotedOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	_, _, err = svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)

	_, _, err = svc.SubmitQuotation(ctx, 21, order.ID, validQuotationInput())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestConcurrentQuotationsSingleWinner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for supplierID := int64(20); supplierID <= 21; supplierID++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _, err := svc.SubmitQuotation(ctx, id, order.ID, validQuotationInput())
			errs <- err
		}(supplierID)
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)

	// The order carries exactly one quotation, the winner's.
	require.Len(t, repo.quotations, 1)
	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusQuoted, stored.Status)
}

func TestAcceptQuotationCreatesPurchaseOrder(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)

	po, err := svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{
		DeliveryAddress: "Central Pharmacy, Block C",
	})
	require.NoError(t, err)
	require.Equal(t, POStatusCreated, po.Status)
	require.Regexp(t, regexp.MustCompile(`^PO-\d{4}-\d{6}$`), po.Number)
	require.Equal(t, quotation.TotalAmount, po.TotalAmount)
	require.Equal(t, int64(20), po.SupplierID)

	storedQ, err := repo.GetQuotation(ctx, quotation.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusAccepted, storedQ.Status)

	storedO, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusClosed, storedO.Status)

	require.Len(t, events.purchaseOrderCreated, 1)
}

func TestAcceptQuotationTwice(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)

	_, err = svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.NoError(t, err)
	_, err = svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Len(t, events.purchaseOrderCreated, 1)
}

func TestAcceptExpiredQuotation(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	in := validQuotationInput()
	in.ValidUntil = time.Now().Add(time.Hour)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, in)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.ErrorIs(t, err, ErrExpired)

	stored, err := repo.GetQuotation(ctx, quotation.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusExpired, stored.Status)
	require.Empty(t, events.purchaseOrderCreated)
	require.Empty(t, repo.purchaseOrders)
}

func TestRejectQuotation(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)

	rejected, err := svc.RejectQuotation(ctx, 10, quotation.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RespondedAt)

	// The order does not reopen; a new order is the path forward.
	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusQuoted, stored.Status)
	require.Len(t, events.quotationRejected, 1)

	_, err = svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectAndIgnoreOrder(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	rejected, err := svc.RejectOrder(ctx, 20, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusRejected, rejected.Status)
	require.Len(t, events.orderRejected, 1)
	require.Equal(t, int64(20), events.orderRejected[0].SupplierID)

	// Terminal: a second decision is refused.
	_, err = svc.IgnoreOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	other, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	ignored, err := svc.IgnoreOrder(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusIgnored, ignored.Status)
}

func TestOwnershipScoping(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	_, _, err = svc.OrderForHospital(ctx, 11, order.ID)
	require.ErrorIs(t, err, ErrNotFound)

	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)
	_, _, err = svc.QuotationForHospital(ctx, 11, quotation.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AcceptQuotation(ctx, 11, 2, quotation.ID, AcceptQuotationInput{})
	require.ErrorIs(t, err, ErrNotFound)

	po, err := svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.NoError(t, err)
	_, err = svc.PurchaseOrderForSupplier(ctx, 21, po.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func createPurchaseOrder(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, validQuotationInput())
	require.NoError(t, err)
	po, err := svc.AcceptQuotation(ctx, 10, 2, quotation.ID, AcceptQuotationInput{})
	require.NoError(t, err)
	return po
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	po := createPurchaseOrder(t, svc)

	steps := []POStatus{POStatusConfirmed, POStatusInProgress, POStatusShipped, POStatusDelivered}
	current := po
	var err error
	for _, next := range steps {
		current, err = svc.AdvancePurchaseOrderAsSupplier(ctx, 20, po.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, current.Status)
	}
	require.NotNil(t, current.ActualDeliveryDate)

	completed, err := svc.AdvancePurchaseOrderAsHospital(ctx, 10, po.ID, POStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, POStatusCompleted, completed.Status)
}

func TestPurchaseOrderTransitionRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	po := createPurchaseOrder(t, svc)

	// Skipping steps is refused.
	_, err := svc.AdvancePurchaseOrderAsSupplier(ctx, 20, po.ID, POStatusShipped)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Moving backwards is refused.
	confirmed, err := svc.AdvancePurchaseOrderAsSupplier(ctx, 20, po.ID, POStatusConfirmed)
	require.NoError(t, err)
	_, err = svc.AdvancePurchaseOrderAsSupplier(ctx, 20, confirmed.ID, POStatusCreated)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Unknown statuses are refused before touching storage.
	_, err = svc.AdvancePurchaseOrderAsSupplier(ctx, 20, po.ID, "misplaced")
	require.ErrorIs(t, err, ErrValidation)
}

func TestPurchaseOrderCancellation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	po := createPurchaseOrder(t, svc)

	// Cancel is reachable from any non-terminal status.
	cancelled, err := svc.AdvancePurchaseOrderAsHospital(ctx, 10, po.ID, POStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, POStatusCancelled, cancelled.Status)

	// Repeating the terminal request is a no-op, not an error.
	again, err := svc.AdvancePurchaseOrderAsHospital(ctx, 10, po.ID, POStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, POStatusCancelled, again.Status)

	// But any other move out of a terminal status is refused.
	_, err = svc.AdvancePurchaseOrderAsHospital(ctx, 10, po.ID, POStatusConfirmed)
	require.ErrorIs(t, err, ErrInvalidTransition)

	second := createPurchaseOrder(t, svc)
	for _, next := range []POStatus{POStatusConfirmed, POStatusInProgress, POStatusShipped, POStatusDelivered, POStatusCompleted} {
		_, err = svc.AdvancePurchaseOrderAsSupplier(ctx, 20, second.ID, next)
		require.NoError(t, err)
	}
	_, err = svc.AdvancePurchaseOrderAsSupplier(ctx, 20, second.ID, POStatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpireQuotationsSweep(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	in := validQuotationInput()
	in.ValidUntil = time.Now().Add(time.Minute)
	quotation, _, err := svc.SubmitQuotation(ctx, 20, order.ID, in)
	require.NoError(t, err)

	n, err := svc.ExpireQuotations(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = svc.ExpireQuotations(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stored, err := repo.GetQuotation(ctx, quotation.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusExpired, stored.Status)
}

func TestDocumentNumberRetriesOnCollision(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	order, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	require.True(t, repo.numbers[order.Number])

	// A later order never reuses a claimed number even across years of
	// operation; here we only assert distinctness of consecutive numbers.
	other, _, err := svc.CreateOrder(ctx, 10, 1, validOrderInput())
	require.NoError(t, err)
	require.NotEqual(t, order.Number, other.Number)
}
