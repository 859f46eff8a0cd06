package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/models"
)

type fakeOrders struct {
	mu      sync.Mutex
	orders  []models.PurchaseOrder
	queries []url.Values
	gate    chan struct{}
	listErr error
	sent    []int64
}

func (f *fakeOrders) PurchaseOrders(ctx context.Context, query url.Values) (models.PurchaseOrderList, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return models.PurchaseOrderList{}, f.listErr
	}
	status := query.Get("status")
	list := models.PurchaseOrderList{Summary: models.PurchaseOrderSummary{StatusCounts: map[string]models.StatusCount{}}}
	for _, o := range f.orders {
		if status != "" && string(o.StatusCode) != status {
			continue
		}
		list.Results = append(list.Results, o)
		list.Summary.Count++
		list.Summary.TotalGross = list.Summary.TotalGross.Add(o.TotalGross)
	}
	return list, nil
}

func (f *fakeOrders) PurchaseOrder(ctx context.Context, id int64) (models.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.PurchaseOrder{}, &backend.APIError{Status: http.StatusNotFound, Message: "Not found."}
}

func (f *fakeOrders) SendPurchaseOrder(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].StatusCode = models.OrderStatusSent
			f.orders[i].StatusLabel = models.OrderStatusSent.Label()
			f.sent = append(f.sent, id)
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: "Not found."}
}

func (f *fakeOrders) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func testOrder(id int64, status models.OrderStatus, gross string) models.PurchaseOrder {
	return models.PurchaseOrder{
		ID:          id,
		SupplierID:  1,
		StatusCode:  status,
		StatusLabel: status.Label(),
		TotalGross:  decimal.RequireFromString(gross),
	}
}

func TestListFilterValidation(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		ok     bool
	}{
		{"empty", ListFilter{PageSize: 20}, true},
		{"known status", ListFilter{Status: "sent", PageSize: 20}, true},
		{"unknown status", ListFilter{Status: "lost", PageSize: 20}, false},
		{"dates in order", ListFilter{OrderedFrom: "2024-01-01", OrderedTo: "2024-01-31", PageSize: 20}, true},
		{"same day", ListFilter{OrderedFrom: "2024-01-01", OrderedTo: "2024-01-01", PageSize: 20}, true},
		{"dates reversed", ListFilter{OrderedFrom: "2024-02-01", OrderedTo: "2024-01-31", PageSize: 20}, false},
		{"bad date", ListFilter{OrderedFrom: "01.02.2024", PageSize: 20}, false},
		{"zero page size", ListFilter{}, false},
		{"huge page size", ListFilter{PageSize: 5000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			}
		})
	}
}

func TestParseListFilterAndQuery(t *testing.T) {
	values := url.Values{
		"status":       {"created"},
		"supplier":     {"4"},
		"ordered_from": {"2024-03-01"},
		"ordered_to":   {""},
	}
	f, err := ParseListFilter(values, 20)
	require.NoError(t, err)
	assert.Equal(t, ListFilter{Status: "created", SupplierID: 4, OrderedFrom: "2024-03-01", PageSize: 20}, f)

	q := f.Query()
	assert.Equal(t, "20", q.Get("page_size"))
	assert.Equal(t, "created", q.Get("status"))
	assert.Equal(t, "4", q.Get("supplier"))
	assert.Equal(t, "2024-03-01", q.Get("ordered_from"))
	_, hasTo := q["ordered_to"]
	assert.False(t, hasTo)

	_, err = ParseListFilter(url.Values{"supplier": {"abc"}}, 20)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestOrderListFilterChangeRefetches(t *testing.T) {
	api := &fakeOrders{orders: []models.PurchaseOrder{
		testOrder(1, models.OrderStatusCreated, "10.00"),
		testOrder(2, models.OrderStatusSent, "20.00"),
		testOrder(3, models.OrderStatusSent, "5.50"),
	}}
	view := NewOrderListView(nil, 20)
	ctx := context.Background()

	require.NoError(t, view.SetFilter(ListFilter{Status: "sent", PageSize: 20}))
	snap, err := view.Load(ctx, api)
	require.NoError(t, err)
	require.Len(t, snap.Orders, 2)
	for _, o := range snap.Orders {
		assert.Equal(t, models.OrderStatusSent, o.StatusCode)
		assert.False(t, o.CanSend)
	}
	assert.Equal(t, int64(2), snap.Summary.Count)
	assert.True(t, decimal.RequireFromString("25.50").Equal(snap.Summary.TotalGross))

	// cached until something changes
	_, err = view.Load(ctx, api)
	require.NoError(t, err)
	assert.Equal(t, 1, api.queryCount())

	require.NoError(t, view.SetFilter(ListFilter{PageSize: 20}))
	snap, err = view.Load(ctx, api)
	require.NoError(t, err)
	assert.Len(t, snap.Orders, 3)
	assert.Equal(t, 2, api.queryCount())
	assert.Empty(t, api.queries[1].Get("status"))
}

func TestOrderListRefreshWithoutFilterChange(t *testing.T) {
	api := &fakeOrders{orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusCreated, "1")}}
	view := NewOrderListView(nil, 20)
	ctx := context.Background()

	snap, err := view.Load(ctx, api)
	require.NoError(t, err)
	assert.True(t, snap.Orders[0].CanSend)

	api.orders = append(api.orders, testOrder(2, models.OrderStatusCreated, "2"))
	snap, err = view.Refresh(ctx, api)
	require.NoError(t, err)
	assert.Len(t, snap.Orders, 2)
	assert.Equal(t, 2, api.queryCount())
}

func TestOrderListBusInvalidationForcesRefetch(t *testing.T) {
	api := &fakeOrders{orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusCreated, "1")}}
	bus := NewInvalidationBus(nil)
	view := NewOrderListView(bus, 20)
	ctx := context.Background()

	_, err := view.Load(ctx, api)
	require.NoError(t, err)
	bus.Invalidate(ctx, 1, "sent")
	_, err = view.Load(ctx, api)
	require.NoError(t, err)
	assert.Equal(t, 2, api.queryCount())
}

func TestOrderListDiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeOrders{
		orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusSent, "1"), testOrder(2, models.OrderStatusCreated, "1")},
		gate:   gate,
	}
	view := NewOrderListView(nil, 20)
	require.NoError(t, view.SetFilter(ListFilter{Status: "sent", PageSize: 20}))

	done := make(chan OrderListSnapshot)
	go func() {
		snap, _ := view.Load(context.Background(), api)
		done <- snap
	}()
	require.Eventually(t, func() bool { return api.queryCount() == 1 }, time.Second, 5*time.Millisecond)

	// the filter changes while the first request is in flight
	require.NoError(t, view.SetFilter(ListFilter{Status: "created", PageSize: 20}))
	api.mu.Lock()
	api.gate = nil
	api.mu.Unlock()
	snap, err := view.Load(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, int64(2), snap.Orders[0].ID)

	close(gate)
	stale := <-done
	assert.Equal(t, "created", stale.Filter.Status)
	require.Len(t, stale.Orders, 1)
	assert.Equal(t, int64(2), stale.Orders[0].ID)
}

func TestOrderListDropsLoadFinishingAfterFilterChange(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeOrders{
		orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusSent, "1"), testOrder(2, models.OrderStatusCreated, "1")},
		gate:   gate,
	}
	view := NewOrderListView(nil, 20)
	require.NoError(t, view.SetFilter(ListFilter{Status: "sent", PageSize: 20}))

	done := make(chan OrderListSnapshot)
	go func() {
		snap, _ := view.Load(context.Background(), api)
		done <- snap
	}()
	require.Eventually(t, func() bool { return api.queryCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, view.SetFilter(ListFilter{Status: "created", PageSize: 20}))
	api.mu.Lock()
	api.gate = nil
	api.mu.Unlock()
	close(gate)

	late := <-done
	assert.Equal(t, "created", late.Filter.Status)
	assert.False(t, late.Loaded)
	assert.Empty(t, late.Orders)

	snap, err := view.Load(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 2, api.queryCount())
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, models.OrderStatusCreated, snap.Orders[0].StatusCode)
}

func TestOrderListRefetchesWhenInvalidatedDuringLoad(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeOrders{
		orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusCreated, "1")},
		gate:   gate,
	}
	view := NewOrderListView(nil, 20)

	done := make(chan struct{})
	go func() {
		_, _ = view.Load(context.Background(), api)
		close(done)
	}()
	require.Eventually(t, func() bool { return api.queryCount() == 1 }, time.Second, 5*time.Millisecond)

	// the order is sent while the list request is still running
	require.NoError(t, api.SendPurchaseOrder(context.Background(), 1))
	view.Invalidate()
	api.mu.Lock()
	api.gate = nil
	api.mu.Unlock()
	close(gate)
	<-done

	snap, err := view.Load(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 2, api.queryCount())
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, models.OrderStatusSent, snap.Orders[0].StatusCode)
	assert.False(t, snap.Orders[0].CanSend)
}

func TestOrderListErrorClearsRows(t *testing.T) {
	api := &fakeOrders{listErr: &backend.TransportError{Method: http.MethodGet, Path: "/api/purchase-orders/", Err: errors.New("dial tcp")}}
	view := NewOrderListView(nil, 20)
	snap, err := view.Load(context.Background(), api)
	require.Error(t, err)
	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Orders)
	assert.Equal(t, backend.TransportMessage, snap.Error)
}

func TestOrderDetailSendOnlyWhenCreated(t *testing.T) {
	api := &fakeOrders{orders: []models.PurchaseOrder{testOrder(1, models.OrderStatusCreated, "1"), testOrder(2, models.OrderStatusConfirmed, "1")}}
	bus := NewInvalidationBus(nil)
	view := NewOrderDetailView(nil, NewOrderNotifier(nil, nil, bus))
	ctx := context.Background()

	detail, err := view.Send(ctx, api, 2)
	assert.ErrorIs(t, err, ErrCannotSend)
	assert.False(t, detail.CanSend)
	assert.Empty(t, api.sent)

	detail, err = view.Send(ctx, api, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, api.sent)
	assert.False(t, detail.CanSend)
	assert.Equal(t, models.OrderStatusSent, detail.Order.StatusCode)
	assert.Equal(t, uint64(1), bus.Version())

	detail, err = view.Load(ctx, api, 1, 0)
	require.NoError(t, err)
	assert.False(t, detail.CanSend)
}

func TestOrderDetailGroupsItems(t *testing.T) {
	dairy, drinks := "Mliječni", "Pića"
	o := testOrder(1, models.OrderStatusCreated, "1")
	o.Items = []models.PurchaseOrderItem{
		{ID: 1, Name: "Sok", GroupLabel: &drinks},
		{ID: 2, Name: "Jogurt", GroupLabel: &dairy},
		{ID: 3, Name: "Sol"},
	}
	detail := NewOrderDetailView(nil, nil).Build(o, 5)
	require.Len(t, detail.Groups, 3)
	assert.Equal(t, "Mliječni", detail.Groups[0].Label)
	assert.Equal(t, DefaultGroupLabel, detail.Groups[1].Label)
	assert.Equal(t, "Pića", detail.Groups[2].Label)
	assert.Equal(t, 2, detail.Navigator.Active)
	assert.False(t, detail.Navigator.HasNext)
	assert.True(t, detail.Navigator.HasPrev)
}

func TestOrderDetailNavigateFollowsViewport(t *testing.T) {
	a, b := "A", "B"
	o := testOrder(1, models.OrderStatusCreated, "1")
	o.Items = []models.PurchaseOrderItem{
		{ID: 1, Name: "x", GroupLabel: &a},
		{ID: 2, Name: "y", GroupLabel: &b},
		{ID: 3, Name: "z"},
	}
	view := NewOrderDetailView(nil, nil)
	detail := view.Build(o, 0)
	require.Len(t, detail.Groups, 3)

	detail = view.Navigate(detail, Viewport{Visible: []int{2, 1}})
	assert.Equal(t, 1, detail.Navigator.Active)
	assert.Equal(t, "B", detail.Navigator.Label)

	detail = view.Navigate(detail, Viewport{Step: 1})
	assert.Equal(t, 2, detail.Navigator.Active)
	assert.False(t, detail.Navigator.HasNext)

	scroll := 10
	detail = view.Navigate(detail, Viewport{Offsets: []int{0, 300, 900}, ScrollTop: &scroll})
	assert.Equal(t, 0, detail.Navigator.Active)

	// nothing reported keeps the active group
	detail = view.Navigate(detail, Viewport{})
	assert.Equal(t, 0, detail.Navigator.Active)
}

func TestGroupNavigatorResolve(t *testing.T) {
	nav := NewGroupNavigator([]string{"A", "B", "C"})
	scroll := 950

	assert.Equal(t, 1, nav.Resolve(0, Viewport{Visible: []int{1, 2}}))
	assert.Equal(t, 2, nav.Resolve(0, Viewport{Offsets: []int{0, 300, 900}, ScrollTop: &scroll}))
	// visible groups win over offsets
	assert.Equal(t, 0, nav.Resolve(2, Viewport{Visible: []int{0}, Offsets: []int{0, 300, 900}, ScrollTop: &scroll}))
	// offsets without a scroll position are ignored
	assert.Equal(t, 1, nav.Resolve(1, Viewport{Offsets: []int{0, 300}}))
	assert.Equal(t, 2, nav.Resolve(1, Viewport{Visible: []int{1}, Step: 5}))
	assert.Equal(t, 0, nav.Resolve(9, Viewport{Step: -3}))
	assert.Equal(t, -1, NewGroupNavigator(nil).Resolve(0, Viewport{Step: 1}))
}

func TestGroupNavigator(t *testing.T) {
	nav := NewGroupNavigator([]string{"A", "B", "C"})

	assert.Equal(t, 1, nav.ActiveFromVisible([]int{2, 1}, 0))
	assert.Equal(t, 2, nav.ActiveFromVisible(nil, 2))
	assert.Equal(t, 0, nav.ActiveFromVisible([]int{-1, 9}, -4))

	assert.Equal(t, 0, nav.Step(0, -1))
	assert.Equal(t, 2, nav.Step(2, 1))
	assert.Equal(t, 2, nav.Step(1, 1))

	assert.Equal(t, 1, nav.ActiveFromOffset([]int{0, 300, 900}, 450))
	assert.Equal(t, 0, nav.ActiveFromOffset([]int{0, 300, 900}, 0))

	state := nav.State(0)
	assert.True(t, state.Visible)
	assert.Equal(t, "A", state.Label)
	assert.False(t, state.HasPrev)
	assert.True(t, state.HasNext)

	empty := NewGroupNavigator(nil)
	assert.False(t, empty.Visible())
	assert.Equal(t, -1, empty.Step(0, 1))
	assert.Equal(t, -1, empty.ActiveFromVisible([]int{0}, 0))
	state = empty.State(0)
	assert.False(t, state.Visible)
	assert.Equal(t, DefaultGroupLabel, state.Label)
	assert.False(t, state.HasPrev)
	assert.False(t, state.HasNext)
}
