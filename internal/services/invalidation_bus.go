package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InvalidationChannel carries order-list invalidations between portal instances
const InvalidationChannel = "purchase_orders:invalidated"

// InvalidationUpdateType is the websocket message type pushed to browsers
const InvalidationUpdateType = "purchase_orders.invalidated"

// Broadcaster pushes a typed update to connected browsers
type Broadcaster interface {
	BroadcastUpdate(updateType string, data any)
}

// PubSub is the Redis surface the bus needs
type PubSub interface {
	Publish(ctx context.Context, channel string, message string) error
	Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error)
}

type InvalidationMessage struct {
	Origin  string    `json:"origin"`
	OrderID int64     `json:"order_id"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// InvalidationBus versions the order lists. Every invalidation, local or
// received from another instance, bumps the version; list views holding an
// older version refetch on their next load.
type InvalidationBus struct {
	version atomic.Uint64
	origin  string
	pubsub  PubSub

	mu          sync.RWMutex
	broadcaster Broadcaster
}

// NewInvalidationBus works without Redis; it is then local to this instance
func NewInvalidationBus(pubsub PubSub) *InvalidationBus {
	return &InvalidationBus{
		origin: uuid.New().String(),
		pubsub: pubsub,
	}
}

func (b *InvalidationBus) SetBroadcaster(br Broadcaster) {
	b.mu.Lock()
	b.broadcaster = br
	b.mu.Unlock()
}

func (b *InvalidationBus) Version() uint64 {
	if b == nil {
		return 0
	}
	return b.version.Load()
}

func (b *InvalidationBus) Invalidate(ctx context.Context, orderID int64, reason string) {
	if b == nil {
		return
	}
	msg := InvalidationMessage{Origin: b.origin, OrderID: orderID, Reason: reason, At: time.Now().UTC()}
	b.apply(msg)

	if b.pubsub == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️ failed to encode invalidation: %v", err)
		return
	}
	if err := b.pubsub.Publish(ctx, InvalidationChannel, string(payload)); err != nil {
		log.Printf("⚠️ failed to publish invalidation for order %d: %v", orderID, err)
	}
}

func (b *InvalidationBus) apply(msg InvalidationMessage) {
	b.version.Add(1)

	b.mu.RLock()
	br := b.broadcaster
	b.mu.RUnlock()
	if br != nil {
		br.BroadcastUpdate(InvalidationUpdateType, map[string]any{
			"order_id": msg.OrderID,
			"reason":   msg.Reason,
		})
	}
}

// Start relays invalidations published by other instances until ctx is done
func (b *InvalidationBus) Start(ctx context.Context) {
	if b == nil || b.pubsub == nil {
		return
	}
	messages, closeFn := b.pubsub.Subscribe(ctx, InvalidationChannel)
	log.Printf("🔄 subscribed to %s", InvalidationChannel)

	go func() {
		defer closeFn()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				var msg InvalidationMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Printf("⚠️ ignoring malformed invalidation: %v", err)
					continue
				}
				if msg.Origin == b.origin {
					continue
				}
				b.apply(msg)
			}
		}
	}()
}
