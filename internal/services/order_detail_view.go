package services

import (
	"context"
	"fmt"

	"orderportal/server/internal/models"
)

// OrderReader loads and sends single orders
type OrderReader interface {
	PurchaseOrder(ctx context.Context, id int64) (models.PurchaseOrder, error)
	SendPurchaseOrder(ctx context.Context, id int64) error
}

type OrderDetail struct {
	Order     models.PurchaseOrder              `json:"order"`
	Groups    []Group[models.PurchaseOrderItem] `json:"groups"`
	Navigator NavigatorState                    `json:"navigator"`
	CanSend   bool                              `json:"canSend"`
}

// OrderDetailView renders one order grouped like the catalog
type OrderDetailView struct {
	grouper  *Grouper
	notifier *OrderNotifier
}

func NewOrderDetailView(grouper *Grouper, notifier *OrderNotifier) *OrderDetailView {
	if grouper == nil {
		grouper = NewGrouper("hr")
	}
	return &OrderDetailView{grouper: grouper, notifier: notifier}
}

// Load fetches the order; active selects the navigator position
func (v *OrderDetailView) Load(ctx context.Context, api OrderReader, id int64, active int) (OrderDetail, error) {
	order, err := api.PurchaseOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("failed to load purchase order %d: %w", id, err)
	}
	return v.Build(order, active), nil
}

// Build groups the items of an already loaded order
func (v *OrderDetailView) Build(order models.PurchaseOrder, active int) OrderDetail {
	groups := GroupOrderItems(v.grouper, order.Items)
	return OrderDetail{
		Order:     order,
		Groups:    groups,
		Navigator: NavigatorFor(groups).State(active),
		CanSend:   order.CanSend(),
	}
}

// Navigate moves the active group of a built detail per a viewport report
func (v *OrderDetailView) Navigate(detail OrderDetail, vp Viewport) OrderDetail {
	nav := NavigatorFor(detail.Groups)
	detail.Navigator = nav.State(nav.Resolve(detail.Navigator.Active, vp))
	return detail
}

// Send is refused unless the backend still reports the order as created.
// On success lists are invalidated and the reloaded order returned.
func (v *OrderDetailView) Send(ctx context.Context, api OrderReader, id int64) (OrderDetail, error) {
	current, err := api.PurchaseOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("failed to load purchase order %d: %w", id, err)
	}
	if !current.CanSend() {
		return v.Build(current, 0), ErrCannotSend
	}

	if err := api.SendPurchaseOrder(ctx, id); err != nil {
		v.notifier.SendFailed(ctx, id, err)
		return v.Build(current, 0), fmt.Errorf("failed to send purchase order %d: %w", id, err)
	}
	v.notifier.Sent(ctx, id, current.SupplierID)

	return v.Load(ctx, api, id, 0)
}
