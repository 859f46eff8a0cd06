package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/models"
)

type fakeGateway struct {
	mu         sync.Mutex
	catalogs   map[int64][]models.CatalogItem
	catalogErr error
	gates      map[int64]chan struct{}
	created    []models.CreatePurchaseOrderRequest
	createErr  error
	nextID     int64
	sent       []int64
	sendErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		catalogs: make(map[int64][]models.CatalogItem),
		gates:    make(map[int64]chan struct{}),
		nextID:   100,
	}
}

func (g *fakeGateway) Catalog(ctx context.Context, supplierID int64) ([]models.CatalogItem, error) {
	g.mu.Lock()
	gate := g.gates[supplierID]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.catalogErr != nil {
		return nil, g.catalogErr
	}
	return g.catalogs[supplierID], nil
}

func (g *fakeGateway) CreatePurchaseOrder(ctx context.Context, req models.CreatePurchaseOrderRequest) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	if g.createErr != nil {
		return 0, g.createErr
	}
	g.nextID++
	return g.nextID, nil
}

func (g *fakeGateway) SendPurchaseOrder(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, id)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func priced(id, unit int64, name, price string) models.CatalogItem {
	p := decimal.RequireFromString(price)
	return models.CatalogItem{ID: id, Name: name, UnitID: int64Ptr(unit), UnitPrice: &p}
}

func unpriced(id, unit int64, name string) models.CatalogItem {
	return models.CatalogItem{ID: id, Name: name, UnitID: int64Ptr(unit)}
}

func readyWorkflow(t *testing.T, gw *fakeGateway, supplierID int64, cfg WorkflowConfig) *OrderWorkflow {
	t.Helper()
	w := NewOrderWorkflow(gw, cfg)
	require.NoError(t, w.SelectSupplier(context.Background(), supplierID))
	require.Equal(t, StateCatalogReady, w.State())
	return w
}

func TestReAddReplacesLineAndSubmitsFinalQuantity(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 7, "Mlijeko", "2.50")
	gw.catalogs[1] = []models.CatalogItem{item}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})

	require.NoError(t, w.AddLine(item, "3"))
	snap := w.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, int64(3), snap.Lines[0].Quantity)

	require.NoError(t, w.AddLine(item, "5"))
	snap = w.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, int64(5), snap.Lines[0].Quantity)
	require.NotNil(t, snap.Total)
	assert.Equal(t, "12.5", snap.Total.String())

	orderID, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(101), orderID)

	require.Len(t, gw.created, 1)
	body := gw.created[0]
	assert.Equal(t, int64(1), body.Supplier)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "5", body.Items[0].Quantity)
	assert.Equal(t, int64(7), body.Items[0].UnitOfMeasure)
	require.NotNil(t, body.Items[0].Price)
	assert.Equal(t, "2.5", *body.Items[0].Price)

	snap = w.Snapshot()
	assert.Equal(t, StateSubmitted, snap.State)
	assert.Empty(t, snap.Lines)
	assert.True(t, snap.CanSend)
}

func TestCartLengthIsDistinctKeyCount(t *testing.T) {
	gw := newFakeGateway()
	kg := priced(1, 1, "Brašno", "1.00")
	bag := priced(1, 2, "Brašno", "20.00")
	other := priced(2, 1, "Šećer", "1.50")
	gw.catalogs[1] = []models.CatalogItem{kg, bag, other}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})

	for _, step := range []struct {
		item models.CatalogItem
		qty  string
	}{{kg, "1"}, {bag, "2"}, {kg, "4"}, {other, "1"}, {bag, "9"}} {
		require.NoError(t, w.AddLine(step.item, step.qty))
	}

	lines := w.Snapshot().Lines
	require.Len(t, lines, 3)
	assert.Equal(t, models.LineKey{ItemID: 1, UnitID: 1}, lines[0].Key)
	assert.Equal(t, int64(4), lines[0].Quantity)
	assert.Equal(t, int64(9), lines[1].Quantity)
}

func TestAddLineWithoutUnitIsRejectedWithoutChange(t *testing.T) {
	gw := newFakeGateway()
	ok := priced(1, 1, "A", "1")
	noUnit := models.CatalogItem{ID: 2, Name: "B"}
	zeroUnit := models.CatalogItem{ID: 3, Name: "C", UnitID: int64Ptr(0)}
	gw.catalogs[1] = []models.CatalogItem{ok, noUnit, zeroUnit}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})
	require.NoError(t, w.AddLine(ok, "2"))

	before := w.Snapshot()
	for _, item := range []models.CatalogItem{noUnit, zeroUnit} {
		for _, qty := range []string{"1", "5", "abc"} {
			err := w.AddLine(item, qty)
			assert.ErrorIs(t, err, ErrNoUnit)
		}
	}
	assert.Equal(t, before, w.Snapshot())
}

func TestAddLineQuantityValidation(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})

	for _, bad := range []string{"", "0", "-1", "2.5", "abc", "1,5", "NaN"} {
		assert.ErrorIs(t, w.AddLine(item, bad), ErrInvalidQuantity, bad)
	}
	assert.Empty(t, w.Snapshot().Lines)

	require.NoError(t, w.AddLine(item, " 5.0 "))
	assert.Equal(t, int64(5), w.Snapshot().Lines[0].Quantity)
}

func TestAddLineRequiresLoadedCatalogItem(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	w := NewOrderWorkflow(gw, WorkflowConfig{})

	assert.ErrorIs(t, w.AddLine(item, "1"), ErrNoSupplier)

	gw.catalogs[2] = []models.CatalogItem{priced(9, 1, "Z", "1")}
	require.NoError(t, w.SelectSupplier(context.Background(), 2))
	assert.ErrorIs(t, w.AddLine(item, "1"), ErrUnknownItem)
}

func TestSwitchingSupplierEmptiesCartWhileFetchPending(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	gw.catalogs[2] = []models.CatalogItem{priced(5, 1, "B", "2")}
	gate := make(chan struct{})
	gw.gates[2] = gate

	w := readyWorkflow(t, gw, 1, WorkflowConfig{})
	require.NoError(t, w.AddLine(item, "3"))
	require.NoError(t, w.SetPendingQuantity(item.Key(), "7"))

	done := make(chan error, 1)
	go func() { done <- w.SelectSupplier(context.Background(), 2) }()

	require.Eventually(t, func() bool { return w.State() == StateCatalogLoading }, time.Second, 5*time.Millisecond)
	snap := w.Snapshot()
	assert.Equal(t, int64(2), snap.SupplierID)
	assert.Empty(t, snap.Lines)
	assert.Empty(t, snap.Catalog)
	assert.Empty(t, snap.PendingQuantities)
	assert.ErrorIs(t, w.AddLine(item, "1"), ErrCatalogNotReady)

	close(gate)
	require.NoError(t, <-done)
	snap = w.Snapshot()
	assert.Equal(t, StateCatalogReady, snap.State)
	assert.Equal(t, 1, snap.CatalogSize)
}

func TestStaleCatalogResponseIsDiscarded(t *testing.T) {
	w := NewOrderWorkflow(newFakeGateway(), WorkflowConfig{})

	first, err := w.beginSupplier(1)
	require.NoError(t, err)
	second, err := w.beginSupplier(2)
	require.NoError(t, err)

	assert.True(t, w.completeCatalog(second, []models.CatalogItem{priced(20, 1, "Fresh", "1")}, nil))
	assert.False(t, w.completeCatalog(first, []models.CatalogItem{priced(10, 1, "Stale", "1")}, nil))

	snap := w.Snapshot()
	assert.Equal(t, int64(2), snap.SupplierID)
	require.Equal(t, 1, snap.CatalogSize)
	assert.Equal(t, "Fresh", snap.Catalog[0].Items[0].Name)
}

func TestSlowEarlierCatalogCannotOverwriteLaterSupplier(t *testing.T) {
	gw := newFakeGateway()
	gw.catalogs[1] = []models.CatalogItem{priced(10, 1, "Stale", "1")}
	gw.catalogs[2] = []models.CatalogItem{priced(20, 1, "Fresh", "1")}
	gate := make(chan struct{})
	gw.gates[1] = gate
	w := NewOrderWorkflow(gw, WorkflowConfig{})

	done := make(chan error, 1)
	go func() { done <- w.SelectSupplier(context.Background(), 1) }()
	require.Eventually(t, func() bool { return w.State() == StateCatalogLoading }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.SelectSupplier(context.Background(), 2))
	close(gate)
	require.NoError(t, <-done)

	snap := w.Snapshot()
	assert.Equal(t, int64(2), snap.SupplierID)
	assert.Equal(t, "Fresh", snap.Catalog[0].Items[0].Name)
}

func TestCatalogFailureLeavesEmptyReadyCatalog(t *testing.T) {
	gw := newFakeGateway()
	gw.catalogErr = &backend.APIError{Status: http.StatusInternalServerError, Message: "Request failed: 500"}
	w := NewOrderWorkflow(gw, WorkflowConfig{})

	err := w.SelectSupplier(context.Background(), 1)
	require.Error(t, err)

	snap := w.Snapshot()
	assert.Equal(t, StateCatalogReady, snap.State)
	assert.Zero(t, snap.CatalogSize)
	assert.Equal(t, "Request failed: 500", snap.Error)
}

func TestSelectingNoSupplierResets(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})
	require.NoError(t, w.AddLine(item, "1"))

	require.NoError(t, w.SelectSupplier(context.Background(), 0))
	snap := w.Snapshot()
	assert.Equal(t, StateNoSupplier, snap.State)
	assert.Empty(t, snap.Lines)
}

func TestSubmitValidation(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}

	_, err := NewOrderWorkflow(gw, WorkflowConfig{}).Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoSupplier)

	w := readyWorkflow(t, gw, 1, WorkflowConfig{RequirePaymentType: true})
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)

	require.NoError(t, w.AddLine(item, "1"))
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrPaymentTypeMissing)
	assert.False(t, w.Snapshot().CanSubmit)
	assert.Empty(t, gw.created)

	require.NoError(t, w.SetPaymentType(int64Ptr(3)))
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, gw.created[0].PaymentType)
	assert.Equal(t, int64(3), *gw.created[0].PaymentType)
}

func TestSubmitFailureKeepsDraftAndFieldErrors(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	gw.createErr = &backend.APIError{
		Status:  http.StatusBadRequest,
		Data:    map[string]any{"payment_type": []any{"This field is required."}},
		Message: "payment_type: This field is required.",
	}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})
	require.NoError(t, w.AddLine(item, "2"))

	_, err := w.Submit(context.Background())
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)

	snap := w.Snapshot()
	assert.Equal(t, StateCatalogReady, snap.State)
	assert.Len(t, snap.Lines, 1)
	assert.Equal(t, []string{"This field is required."}, snap.FieldErrors["payment_type"])
	assert.Equal(t, "payment_type: This field is required.", snap.Error)
}

func TestSendOnlyFromSubmitted(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	bus := NewInvalidationBus(nil)
	notifier := NewOrderNotifier(nil, nil, bus)
	w := readyWorkflow(t, gw, 1, WorkflowConfig{Notifier: notifier})

	assert.ErrorIs(t, w.Send(context.Background()), ErrNotSubmitted)

	require.NoError(t, w.AddLine(item, "1"))
	orderID, err := w.Submit(context.Background())
	require.NoError(t, err)

	gw.sendErr = errors.New("smtp down")
	require.Error(t, w.Send(context.Background()))
	snap := w.Snapshot()
	assert.Equal(t, StateSubmitted, snap.State)
	assert.True(t, snap.CanSend)
	assert.NotEmpty(t, snap.Error)

	gw.sendErr = nil
	require.NoError(t, w.Send(context.Background()))
	assert.Equal(t, []int64{orderID}, gw.sent)
	assert.Equal(t, StateSent, w.State())
	assert.False(t, w.Snapshot().CanSend)
	assert.ErrorIs(t, w.Send(context.Background()), ErrCannotSend)

	notifier.Wait()
	assert.Equal(t, uint64(2), bus.Version(), "created and sent both invalidate lists")
}

func TestAddingAfterSubmitStartsNewDraft(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})
	require.NoError(t, w.AddLine(item, "1"))
	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.AddLine(item, "2"))
	snap := w.Snapshot()
	assert.Equal(t, StateCatalogReady, snap.State)
	assert.Nil(t, snap.OrderID)
	assert.Len(t, snap.Lines, 1)
}

func TestUnknownPriceMakesTotalUnknown(t *testing.T) {
	gw := newFakeGateway()
	a := priced(1, 1, "A", "2.00")
	b := unpriced(2, 1, "B")
	gw.catalogs[1] = []models.CatalogItem{a, b}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})

	require.NoError(t, w.AddLine(a, "2"))
	require.NoError(t, w.AddLine(b, "1"))

	snap := w.Snapshot()
	assert.Nil(t, snap.Total)
	assert.Equal(t, 1, snap.UnpricedLines)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, gw.created[0].Items[1].Price)
}

func TestRemoveLineForgetsPendingInput(t *testing.T) {
	gw := newFakeGateway()
	item := priced(1, 1, "A", "1")
	gw.catalogs[1] = []models.CatalogItem{item}
	w := readyWorkflow(t, gw, 1, WorkflowConfig{})

	require.NoError(t, w.SetPendingQuantity(item.Key(), "4"))
	require.NoError(t, w.AddLine(item, "4"))
	assert.Equal(t, "4", w.Snapshot().PendingQuantities[item.Key().String()])

	require.NoError(t, w.RemoveLine(item.Key()))
	snap := w.Snapshot()
	assert.Empty(t, snap.Lines)
	assert.Empty(t, snap.PendingQuantities)

	assert.ErrorIs(t, w.RemoveLine(item.Key()), ErrUnknownLine)
}
