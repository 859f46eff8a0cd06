package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderportal/server/internal/events"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

func TestNotifierPublishesAndInvalidates(t *testing.T) {
	pub := &capturePublisher{}
	bus := NewInvalidationBus(nil)
	n := NewOrderNotifier(pub, nil, bus)

	ctx := WithActor(context.Background(), Actor{SessionID: "s1", Username: "ana"})
	total := decimal.RequireFromString("12.5")
	n.Submitted(ctx, 41, 3, 2, &total)
	n.Sent(ctx, 41, 3)
	n.Wait()

	require.Len(t, pub.events, 2)
	byType := map[events.EventType]events.OrderEvent{}
	for _, e := range pub.events {
		byType[e.Type] = e
	}
	created := byType[events.OrderCreated]
	assert.Equal(t, int64(41), created.OrderID)
	assert.Equal(t, "created", created.Status)
	assert.Equal(t, "ana", created.Username)
	require.NotNil(t, created.Total)
	assert.Equal(t, "12.50", *created.Total)
	assert.Equal(t, "sent", byType[events.OrderSent].Status)

	assert.Equal(t, uint64(2), bus.Version())
}

func TestNotifierToleratesBrokerFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	bus := NewInvalidationBus(nil)
	n := NewOrderNotifier(pub, nil, bus)

	n.Sent(context.Background(), 7, 1)
	n.Wait()

	assert.Len(t, pub.events, 1)
	assert.Equal(t, uint64(1), bus.Version())
}

func TestNilNotifierAndDisabledActivity(t *testing.T) {
	var n *OrderNotifier
	n.Submitted(context.Background(), 1, 1, 1, nil)
	n.Wait()

	var activity *ActivityService
	assert.False(t, activity.Enabled())
	assert.Nil(t, NewActivityService(nil))
	entries, err := activity.Recent(context.Background(), "ana", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
