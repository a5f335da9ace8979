package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/medilink/medilink/internal/procurement"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroker(client)
}

func receive(t *testing.T, ch <-chan *redis.Message) Notification {
	t.Helper()
	select {
	case msg := <-ch:
		var n Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

func TestBrokerDirectAndBroadcastDelivery(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, AudienceHospital, 7)
	defer sub.Close()
	// Wait for the subscription before publishing.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	require.NoError(t, broker.Publish(ctx, Notification{
		Audience: AudienceHospital, RecipientID: 7, Type: "direct",
	}))
	got := receive(t, ch)
	require.Equal(t, "direct", got.Type)

	require.NoError(t, broker.Publish(ctx, Notification{
		Audience: AudienceHospital, Type: "broadcast",
	}))
	got = receive(t, ch)
	require.Equal(t, "broadcast", got.Type)
}

func TestBrokerScopesAudiences(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, AudienceHospital, 7)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	// Another hospital's direct message and supplier traffic stay invisible.
	require.NoError(t, broker.Publish(ctx, Notification{
		Audience: AudienceHospital, RecipientID: 8, Type: "other_hospital",
	}))
	require.NoError(t, broker.Publish(ctx, Notification{
		Audience: AudienceSupplier, Type: "supplier_broadcast",
	}))
	require.NoError(t, broker.Publish(ctx, Notification{
		Audience: AudienceHospital, RecipientID: 7, Type: "mine",
	}))

	got := receive(t, ch)
	require.Equal(t, "mine", got.Type)
}

type memFeed struct {
	entries []Notification
}

func (m *memFeed) Insert(_ context.Context, n *Notification) error {
	n.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *n)
	return nil
}

func newTestPublisher(t *testing.T) (*Publisher, *memFeed) {
	t.Helper()
	feed := &memFeed{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(logger, newTestBroker(t), feed), feed
}

func TestPublisherRoutesEvents(t *testing.T) {
	pub, feed := newTestPublisher(t)
	ctx := context.Background()

	pub.OrderCreated(ctx, procurement.OrderCreatedEvent{
		Order: procurement.Order{ID: 1, Number: "ORD-2026-000001", HospitalID: 10,
			Priority: procurement.PriorityUrgent},
		Items: []procurement.OrderItem{{MedicineID: 1, Quantity: 5}},
	})
	pub.QuotationReceived(ctx, procurement.QuotationReceivedEvent{
		Quotation: procurement.Quotation{ID: 2, Number: "QUO-2026-000001",
			OrderNumber: "ORD-2026-000001", HospitalID: 10, SupplierID: 20, TotalAmount: 1359},
	})
	pub.PurchaseOrderCreated(ctx, procurement.PurchaseOrderCreatedEvent{
		PurchaseOrder: procurement.PurchaseOrder{ID: 3, Number: "PO-2026-000001",
			HospitalID: 10, SupplierID: 20, TotalAmount: 1359},
	})
	pub.QuotationRejected(ctx, procurement.QuotationRejectedEvent{
		Quotation: procurement.Quotation{ID: 2, Number: "QUO-2026-000001", SupplierID: 20},
	})
	pub.OrderRejected(ctx, procurement.OrderRejectedEvent{
		Order: procurement.Order{ID: 1, Number: "ORD-2026-000001", HospitalID: 10}, SupplierID: 20,
	})

	require.Len(t, feed.entries, 5)

	created := feed.entries[0]
	require.Equal(t, AudienceSupplier, created.Audience)
	require.True(t, created.Broadcast())

	received := feed.entries[1]
	require.Equal(t, AudienceHospital, received.Audience)
	require.Equal(t, int64(10), received.RecipientID)
	require.Contains(t, received.Message, "1,359.00")

	poCreated := feed.entries[2]
	require.Equal(t, AudienceSupplier, poCreated.Audience)
	require.Equal(t, int64(20), poCreated.RecipientID)

	require.Equal(t, int64(20), feed.entries[3].RecipientID)
	require.Equal(t, int64(10), feed.entries[4].RecipientID)
}
