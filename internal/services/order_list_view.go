package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/models"
)

const maxPageSize = 200

// OrderLister fetches one filtered page of orders with the server summary
type OrderLister interface {
	PurchaseOrders(ctx context.Context, query url.Values) (models.PurchaseOrderList, error)
}

// ListFilter is the order list filter; dates are YYYY-MM-DD
type ListFilter struct {
	Status      string `json:"status"`
	SupplierID  int64  `json:"supplierId"`
	OrderedFrom string `json:"orderedFrom"`
	OrderedTo   string `json:"orderedTo"`
	PageSize    int    `json:"pageSize"`
}

// ParseListFilter reads status, supplier, ordered_from, ordered_to and page_size
func ParseListFilter(values url.Values, defaultPageSize int) (ListFilter, error) {
	f := ListFilter{
		Status:      strings.TrimSpace(values.Get("status")),
		OrderedFrom: strings.TrimSpace(values.Get("ordered_from")),
		OrderedTo:   strings.TrimSpace(values.Get("ordered_to")),
		PageSize:    defaultPageSize,
	}
	if raw := strings.TrimSpace(values.Get("supplier")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilter{}, fmt.Errorf("%w: supplier %q", ErrInvalidFilter, raw)
		}
		f.SupplierID = id
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return ListFilter{}, fmt.Errorf("%w: page_size %q", ErrInvalidFilter, raw)
		}
		f.PageSize = size
	}
	return f, f.Validate()
}

// Validate accepts only known statuses, real dates in order and a sane page size
func (f ListFilter) Validate() error {
	if f.Status != "" {
		if _, ok := models.ParseOrderStatus(f.Status); !ok {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, f.Status)
		}
	}
	if f.SupplierID < 0 {
		return fmt.Errorf("%w: supplier %d", ErrInvalidFilter, f.SupplierID)
	}
	var from, to time.Time
	var err error
	if f.OrderedFrom != "" {
		if from, err = time.Parse("2006-01-02", f.OrderedFrom); err != nil {
			return fmt.Errorf("%w: ordered_from %q", ErrInvalidFilter, f.OrderedFrom)
		}
	}
	if f.OrderedTo != "" {
		if to, err = time.Parse("2006-01-02", f.OrderedTo); err != nil {
			return fmt.Errorf("%w: ordered_to %q", ErrInvalidFilter, f.OrderedTo)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("%w: ordered_to before ordered_from", ErrInvalidFilter)
	}
	if f.PageSize < 1 || f.PageSize > maxPageSize {
		return fmt.Errorf("%w: page_size %d", ErrInvalidFilter, f.PageSize)
	}
	return nil
}

// Query renders the filter as backend query parameters
func (f ListFilter) Query() url.Values {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(f.PageSize))
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.SupplierID != 0 {
		q.Set("supplier", strconv.FormatInt(f.SupplierID, 10))
	}
	if f.OrderedFrom != "" {
		q.Set("ordered_from", f.OrderedFrom)
	}
	if f.OrderedTo != "" {
		q.Set("ordered_to", f.OrderedTo)
	}
	return q
}

// ListedOrder is a list row with its send action resolved
type ListedOrder struct {
	models.PurchaseOrder
	CanSend bool `json:"canSend"`
}

type OrderListSnapshot struct {
	Filter  ListFilter                  `json:"filter"`
	Loaded  bool                        `json:"loaded"`
	Summary models.PurchaseOrderSummary `json:"summary"`
	Orders  []ListedOrder               `json:"orders"`
	Error   string                      `json:"error,omitempty"`
}

// OrderListView is the per-session order list. Filter changes, explicit
// invalidation and bus invalidations all force the next Load to refetch; the
// result of a refetch replaces the previous page entirely.
type OrderListView struct {
	bus *InvalidationBus

	mu             sync.Mutex
	filter         ListFilter
	generation     uint64
	result         *models.PurchaseOrderList
	fetchedVersion uint64
	stale          bool
	lastErr        error
}

func NewOrderListView(bus *InvalidationBus, pageSize int) *OrderListView {
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	return &OrderListView{bus: bus, filter: ListFilter{PageSize: pageSize}}
}

func (v *OrderListView) Filter() ListFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// SetFilter drops the current page when the filter actually changes
func (v *OrderListView) SetFilter(f ListFilter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if f == v.filter {
		return nil
	}
	v.filter = f
	v.result = nil
	v.lastErr = nil
	v.stale = true
	// loads still running for the old filter must not land
	v.generation++
	return nil
}

// Invalidate forces a refetch without a filter change
func (v *OrderListView) Invalidate() {
	v.mu.Lock()
	v.stale = true
	v.generation++
	v.mu.Unlock()
}

func (v *OrderListView) needsFetchLocked() bool {
	return v.stale || v.result == nil || v.bus.Version() != v.fetchedVersion
}

// Load returns the current page, fetching it first when it is missing or outdated
func (v *OrderListView) Load(ctx context.Context, api OrderLister) (OrderListSnapshot, error) {
	v.mu.Lock()
	if !v.needsFetchLocked() {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, nil
	}
	v.generation++
	gen := v.generation
	filter := v.filter
	version := v.bus.Version()
	v.mu.Unlock()

	list, err := api.PurchaseOrders(ctx, filter.Query())

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		log.Printf("🔄 discarding stale order list (generation %d, current %d)", gen, v.generation)
		return v.snapshotLocked(), nil
	}
	if err != nil {
		v.result = nil
		v.lastErr = err
		return v.snapshotLocked(), fmt.Errorf("failed to load purchase orders: %w", err)
	}
	v.result = &list
	v.fetchedVersion = version
	v.stale = false
	v.lastErr = nil
	return v.snapshotLocked(), nil
}

// Refresh is Invalidate followed by Load
func (v *OrderListView) Refresh(ctx context.Context, api OrderLister) (OrderListSnapshot, error) {
	v.Invalidate()
	return v.Load(ctx, api)
}

func (v *OrderListView) snapshotLocked() OrderListSnapshot {
	snap := OrderListSnapshot{Filter: v.filter, Orders: []ListedOrder{}}
	if v.lastErr != nil {
		snap.Error = backend.UserMessage(v.lastErr)
	}
	if v.result == nil {
		snap.Summary.StatusCounts = map[string]models.StatusCount{}
		return snap
	}
	snap.Loaded = true
	snap.Summary = v.result.Summary
	for _, order := range v.result.Results {
		snap.Orders = append(snap.Orders, ListedOrder{PurchaseOrder: order, CanSend: order.CanSend()})
	}
	return snap
}
