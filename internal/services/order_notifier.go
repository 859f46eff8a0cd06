package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"orderportal/server/internal/events"
	"orderportal/server/internal/models"
)

type actorKey struct{}

// Actor identifies who triggered an order mutation
type Actor struct {
	SessionID string
	Username  string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

// OrderNotifier fans a successful or failed order mutation out to the
// event stream, the activity log and the list invalidation bus. Every part
// is optional and a nil notifier does nothing.
type OrderNotifier struct {
	events   events.Publisher
	activity *ActivityService
	bus      *InvalidationBus
	wg       sync.WaitGroup
}

func NewOrderNotifier(publisher events.Publisher, activity *ActivityService, bus *InvalidationBus) *OrderNotifier {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &OrderNotifier{events: publisher, activity: activity, bus: bus}
}

func (n *OrderNotifier) Submitted(ctx context.Context, orderID, supplierID int64, lineCount int, total *decimal.Decimal) {
	if n == nil {
		return
	}
	actor := ActorFrom(ctx)
	event := events.OrderEvent{
		Type:       events.OrderCreated,
		OrderID:    orderID,
		SupplierID: supplierID,
		Status:     string(models.OrderStatusCreated),
		LineCount:  lineCount,
		Username:   actor.Username,
	}
	var nullTotal decimal.NullDecimal
	if total != nil {
		s := total.StringFixed(2)
		event.Total = &s
		nullTotal = decimal.NewNullDecimal(*total)
	}
	n.record(ctx, &models.OrderActivity{
		Action:     models.ActivitySubmitted,
		OrderID:    &orderID,
		SupplierID: supplierID,
		LineCount:  lineCount,
		Total:      nullTotal,
	})
	n.publish(event)
	n.bus.Invalidate(ctx, orderID, "created")
}

func (n *OrderNotifier) SubmitFailed(ctx context.Context, supplierID int64, lineCount int, err error) {
	if n == nil {
		return
	}
	n.record(ctx, &models.OrderActivity{
		Action:     models.ActivitySubmitFailed,
		SupplierID: supplierID,
		LineCount:  lineCount,
		Message:    err.Error(),
	})
}

func (n *OrderNotifier) Sent(ctx context.Context, orderID, supplierID int64) {
	if n == nil {
		return
	}
	n.record(ctx, &models.OrderActivity{
		Action:     models.ActivitySent,
		OrderID:    &orderID,
		SupplierID: supplierID,
	})
	n.publish(events.OrderEvent{
		Type:       events.OrderSent,
		OrderID:    orderID,
		SupplierID: supplierID,
		Status:     string(models.OrderStatusSent),
		Username:   ActorFrom(ctx).Username,
	})
	n.bus.Invalidate(ctx, orderID, "sent")
}

func (n *OrderNotifier) SendFailed(ctx context.Context, orderID int64, err error) {
	if n == nil {
		return
	}
	n.record(ctx, &models.OrderActivity{
		Action:  models.ActivitySendFailed,
		OrderID: &orderID,
		Message: err.Error(),
	})
}

// Wait blocks until in-flight event publishing has finished
func (n *OrderNotifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *OrderNotifier) record(ctx context.Context, activity *models.OrderActivity) {
	actor := ActorFrom(ctx)
	activity.SessionID = actor.SessionID
	activity.Username = actor.Username
	if err := n.activity.Record(ctx, activity); err != nil {
		log.Printf("⚠️ %v", err)
	}
}

// publish does not hold up the request: the broker gets its own deadline
func (n *OrderNotifier) publish(event events.OrderEvent) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.events.Publish(ctx, event); err != nil {
			log.Printf("⚠️ %v", err)
		}
	}()
}
