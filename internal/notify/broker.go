// Package notify relays lifecycle events to connected portal clients over
// redis pub/sub and websockets, and keeps a persisted notification feed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Audience selects which portal a notification targets.
type Audience string

const (
	AudienceHospital Audience = "hospital"
	AudienceSupplier Audience = "supplier"
)

// Notification is one feed entry. RecipientID zero means every member of the
// audience, used for events with no addressee yet, like a fresh open order.
type Notification struct {
	ID          int64          `json:"id,omitempty"`
	Audience    Audience       `json:"audience"`
	RecipientID int64          `json:"recipientId,omitempty"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Broadcast reports whether the notification targets the whole audience.
func (n Notification) Broadcast() bool {
	return n.RecipientID == 0
}

// Broker fans notifications out over redis pub/sub. Every server instance
// subscribes, so clients stay reachable regardless of which instance holds
// their websocket.
type Broker struct {
	client *redis.Client
}

// NewBroker constructs a Broker.
func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

func channelFor(audience Audience, recipientID int64) string {
	if recipientID == 0 {
		return fmt.Sprintf("notify:%s:all", audience)
	}
	return fmt.Sprintf("notify:%s:%d", audience, recipientID)
}

// Publish sends the notification to its audience channel.
func (b *Broker) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(n.Audience, n.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

// Subscribe opens a subscription covering both the recipient's own channel
// and the audience broadcast channel.
func (b *Broker) Subscribe(ctx context.Context, audience Audience, recipientID int64) *redis.PubSub {
	return b.client.Subscribe(ctx, channelFor(audience, 0), channelFor(audience, recipientID))
}
