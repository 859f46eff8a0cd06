package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/mappers"
	"orderportal/server/internal/models"
)

// WorkflowState is a stage of the order-assembly flow
type WorkflowState string

const (
	StateNoSupplier     WorkflowState = "no_supplier"
	StateCatalogLoading WorkflowState = "catalog_loading"
	StateCatalogReady   WorkflowState = "catalog_ready"
	StateSubmitting     WorkflowState = "submitting"
	StateSubmitted      WorkflowState = "submitted"
	StateSending        WorkflowState = "sending"
	StateSent           WorkflowState = "sent"
)

// OrderGateway is the backend surface used to build and submit orders
type OrderGateway interface {
	Catalog(ctx context.Context, supplierID int64) ([]models.CatalogItem, error)
	CreatePurchaseOrder(ctx context.Context, req models.CreatePurchaseOrderRequest) (int64, error)
	SendPurchaseOrder(ctx context.Context, id int64) error
}

// CartLine is one not-yet-submitted entry, unique per (item, unit)
type CartLine struct {
	Key           models.LineKey     `json:"key"`
	CatalogItemID int64              `json:"catalogItemId"`
	UnitID        int64              `json:"unitId"`
	Quantity      int64              `json:"quantity"`
	DerivedFrom   models.CatalogItem `json:"derivedFrom"`
}

// LineTotal is nil when the catalog has no price for the item
func (l CartLine) LineTotal() *decimal.Decimal {
	if l.DerivedFrom.UnitPrice == nil {
		return nil
	}
	total := l.DerivedFrom.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
	return &total
}

type WorkflowConfig struct {
	RequirePaymentType bool
	Grouper            *Grouper
	Notifier           *OrderNotifier
}

// OrderWorkflow is the per-session pending order.
// The mutex is never held across backend calls; responses that arrive for
// an outdated generation are dropped.
type OrderWorkflow struct {
	gateway OrderGateway
	cfg     WorkflowConfig

	mu            sync.Mutex
	state         WorkflowState
	generation    uint64
	supplierID    int64
	paymentTypeID *int64
	catalog       []models.CatalogItem
	lines         []CartLine
	pending       map[models.LineKey]string
	orderID       int64
	lastErr       error
}

func NewOrderWorkflow(gateway OrderGateway, cfg WorkflowConfig) *OrderWorkflow {
	if cfg.Grouper == nil {
		cfg.Grouper = NewGrouper("hr")
	}
	return &OrderWorkflow{
		gateway: gateway,
		cfg:     cfg,
		state:   StateNoSupplier,
		pending: make(map[models.LineKey]string),
	}
}

func (w *OrderWorkflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *OrderWorkflow) busy() bool {
	return w.state == StateSubmitting || w.state == StateSending
}

// SelectSupplier empties the cart and catalog at once, then loads the new
// catalog. Supplier 0 clears the selection.
func (w *OrderWorkflow) SelectSupplier(ctx context.Context, supplierID int64) error {
	gen, err := w.beginSupplier(supplierID)
	if err != nil || supplierID == 0 {
		return err
	}

	items, fetchErr := w.gateway.Catalog(ctx, supplierID)
	if !w.completeCatalog(gen, items, fetchErr) {
		return nil
	}
	if fetchErr != nil {
		return fmt.Errorf("failed to load catalog for supplier %d: %w", supplierID, fetchErr)
	}
	return nil
}

func (w *OrderWorkflow) beginSupplier(supplierID int64) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy() {
		return 0, ErrBusy
	}
	w.generation++
	w.supplierID = supplierID
	w.catalog = nil
	w.lines = nil
	w.pending = make(map[models.LineKey]string)
	w.orderID = 0
	w.lastErr = nil
	if supplierID == 0 {
		w.state = StateNoSupplier
	} else {
		w.state = StateCatalogLoading
	}
	return w.generation, nil
}

// completeCatalog applies a catalog response and reports whether it was current
func (w *OrderWorkflow) completeCatalog(gen uint64, items []models.CatalogItem, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		log.Printf("🔄 discarding stale catalog response (generation %d, current %d)", gen, w.generation)
		return false
	}
	w.state = StateCatalogReady
	if err != nil {
		w.catalog = []models.CatalogItem{}
		w.lastErr = err
		return true
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	w.catalog = items
	w.lastErr = nil
	return true
}

// FindItem looks an article up in the loaded catalog
func (w *OrderWorkflow) FindItem(key models.LineKey) (models.CatalogItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findItemLocked(key)
}

func (w *OrderWorkflow) findItemLocked(key models.LineKey) (models.CatalogItem, bool) {
	for _, item := range w.catalog {
		if item.Key() == key {
			return item, true
		}
	}
	return models.CatalogItem{}, false
}

// AddLine inserts or replaces the line of item. Rejections leave the cart untouched.
func (w *OrderWorkflow) AddLine(item models.CatalogItem, rawQuantity string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.busy():
		return ErrBusy
	case w.supplierID == 0:
		return ErrNoSupplier
	case w.state == StateCatalogLoading:
		return ErrCatalogNotReady
	}
	if !item.HasUnit() {
		return ErrNoUnit
	}
	quantity, err := parseLineQuantity(rawQuantity)
	if err != nil {
		return err
	}
	if _, ok := w.findItemLocked(item.Key()); !ok {
		return ErrUnknownItem
	}

	// a new line after a finished order starts the next draft
	if w.state == StateSubmitted || w.state == StateSent {
		w.state = StateCatalogReady
		w.orderID = 0
		w.lastErr = nil
	}

	line := CartLine{
		Key:           item.Key(),
		CatalogItemID: item.ID,
		UnitID:        *item.UnitID,
		Quantity:      quantity,
		DerivedFrom:   item,
	}
	for i := range w.lines {
		if w.lines[i].Key == line.Key {
			w.lines[i] = line
			return nil
		}
	}
	w.lines = append(w.lines, line)
	return nil
}

func parseLineQuantity(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidQuantity)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	if !d.IsPositive() || !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(1_000_000_000)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return d.IntPart(), nil
}

// RemoveLine drops a line and the pending input typed for it
func (w *OrderWorkflow) RemoveLine(key models.LineKey) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy() {
		return ErrBusy
	}
	delete(w.pending, key)
	for i := range w.lines {
		if w.lines[i].Key == key {
			w.lines = append(w.lines[:i], w.lines[i+1:]...)
			return nil
		}
	}
	return ErrUnknownLine
}

// SetPendingQuantity remembers what the user typed before adding the line
func (w *OrderWorkflow) SetPendingQuantity(key models.LineKey, raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.supplierID == 0 {
		return ErrNoSupplier
	}
	if strings.TrimSpace(raw) == "" {
		delete(w.pending, key)
		return nil
	}
	w.pending[key] = raw
	return nil
}

// SetPaymentType selects (or clears, with nil) the payment type
func (w *OrderWorkflow) SetPaymentType(id *int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy() {
		return ErrBusy
	}
	if id != nil && *id == 0 {
		id = nil
	}
	w.paymentTypeID = id
	return nil
}

// Submit posts the pending order. On success the cart is cleared and the
// new order id returned; on failure the draft stays editable.
func (w *OrderWorkflow) Submit(ctx context.Context) (int64, error) {
	w.mu.Lock()
	if err := w.validateSubmitLocked(); err != nil {
		w.mu.Unlock()
		return 0, err
	}

	req := models.CreatePurchaseOrderRequest{
		Supplier:    w.supplierID,
		PaymentType: w.paymentTypeID,
		Items:       make([]models.CreatePurchaseOrderItem, 0, len(w.lines)),
	}
	for _, line := range w.lines {
		var price *string
		if line.DerivedFrom.UnitPrice != nil {
			p := mappers.FormatWireDecimal(*line.DerivedFrom.UnitPrice)
			price = &p
		}
		req.Items = append(req.Items, models.CreatePurchaseOrderItem{
			Artikl:        line.CatalogItemID,
			UnitOfMeasure: line.UnitID,
			Quantity:      strconv.FormatInt(line.Quantity, 10),
			Price:         price,
		})
	}
	gen := w.generation
	supplierID := w.supplierID
	lineCount := len(w.lines)
	total, _ := cartTotal(w.lines)
	w.state = StateSubmitting
	w.lastErr = nil
	w.mu.Unlock()

	orderID, err := w.gateway.CreatePurchaseOrder(ctx, req)

	w.mu.Lock()
	current := gen == w.generation
	if current {
		if err != nil {
			w.state = StateCatalogReady
			w.lastErr = err
		} else {
			w.state = StateSubmitted
			w.orderID = orderID
			w.lines = nil
			w.pending = make(map[models.LineKey]string)
		}
	}
	w.mu.Unlock()

	if err != nil {
		log.Printf("❌ purchase order for supplier %d rejected: %v", supplierID, err)
		w.cfg.Notifier.SubmitFailed(ctx, supplierID, lineCount, err)
		return 0, fmt.Errorf("failed to submit purchase order: %w", err)
	}
	log.Printf("✅ purchase order %d created for supplier %d (%d lines)", orderID, supplierID, lineCount)
	w.cfg.Notifier.Submitted(ctx, orderID, supplierID, lineCount, total)
	return orderID, nil
}

func (w *OrderWorkflow) validateSubmitLocked() error {
	switch {
	case w.busy():
		return ErrBusy
	case w.supplierID == 0:
		return ErrNoSupplier
	case w.state == StateCatalogLoading:
		return ErrCatalogNotReady
	case len(w.lines) == 0:
		return ErrEmptyCart
	case w.cfg.RequirePaymentType && w.paymentTypeID == nil:
		return ErrPaymentTypeMissing
	}
	return nil
}

// Send e-mails the just-submitted order to the supplier. Only offered from
// the submitted state; failures leave the order submitted.
func (w *OrderWorkflow) Send(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StateSubmitted:
	case StateSent:
		w.mu.Unlock()
		return ErrCannotSend
	case StateSubmitting, StateSending:
		w.mu.Unlock()
		return ErrBusy
	default:
		w.mu.Unlock()
		return ErrNotSubmitted
	}
	gen := w.generation
	orderID := w.orderID
	supplierID := w.supplierID
	w.state = StateSending
	w.lastErr = nil
	w.mu.Unlock()

	err := w.gateway.SendPurchaseOrder(ctx, orderID)

	w.mu.Lock()
	if gen == w.generation {
		if err != nil {
			w.state = StateSubmitted
			w.lastErr = err
		} else {
			w.state = StateSent
		}
	}
	w.mu.Unlock()

	if err != nil {
		log.Printf("❌ sending purchase order %d failed: %v", orderID, err)
		w.cfg.Notifier.SendFailed(ctx, orderID, err)
		return fmt.Errorf("failed to send purchase order %d: %w", orderID, err)
	}
	log.Printf("✅ purchase order %d sent", orderID)
	w.cfg.Notifier.Sent(ctx, orderID, supplierID)
	return nil
}

// Reset discards the pending order, as leaving the creation screen does
func (w *OrderWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.generation++
	w.state = StateNoSupplier
	w.supplierID = 0
	w.paymentTypeID = nil
	w.catalog = nil
	w.lines = nil
	w.pending = make(map[models.LineKey]string)
	w.orderID = 0
	w.lastErr = nil
}

func cartTotal(lines []CartLine) (*decimal.Decimal, int) {
	total := decimal.Zero
	unpriced := 0
	for _, line := range lines {
		lineTotal := line.LineTotal()
		if lineTotal == nil {
			unpriced++
			continue
		}
		total = total.Add(*lineTotal)
	}
	if unpriced > 0 {
		return nil, unpriced
	}
	return &total, 0
}

// WorkflowSnapshot is a consistent, render-ready copy of the workflow
type WorkflowSnapshot struct {
	State             WorkflowState               `json:"state"`
	Generation        uint64                      `json:"generation"`
	SupplierID        int64                       `json:"supplierId"`
	PaymentTypeID     *int64                      `json:"paymentTypeId"`
	Catalog           []Group[models.CatalogItem] `json:"catalog"`
	CatalogSize       int                         `json:"catalogSize"`
	Lines             []CartLine                  `json:"lines"`
	PendingQuantities map[string]string           `json:"pendingQuantities"`
	Total             *decimal.Decimal            `json:"total"`
	UnpricedLines     int                         `json:"unpricedLines"`
	OrderID           *int64                      `json:"orderId"`
	Error             string                      `json:"error,omitempty"`
	FieldErrors       map[string][]string         `json:"fieldErrors,omitempty"`
	CanSubmit         bool                        `json:"canSubmit"`
	CanSend           bool                        `json:"canSend"`
}

func (w *OrderWorkflow) Snapshot() WorkflowSnapshot {
	w.mu.Lock()
	catalog := make([]models.CatalogItem, len(w.catalog))
	copy(catalog, w.catalog)
	lines := make([]CartLine, len(w.lines))
	copy(lines, w.lines)
	pending := make(map[string]string, len(w.pending))
	for key, raw := range w.pending {
		pending[key.String()] = raw
	}
	snap := WorkflowSnapshot{
		State:             w.state,
		Generation:        w.generation,
		SupplierID:        w.supplierID,
		PaymentTypeID:     w.paymentTypeID,
		CatalogSize:       len(catalog),
		Lines:             lines,
		PendingQuantities: pending,
		CanSubmit:         w.validateSubmitLocked() == nil,
		CanSend:           w.state == StateSubmitted,
	}
	if w.orderID != 0 {
		id := w.orderID
		snap.OrderID = &id
	}
	lastErr := w.lastErr
	w.mu.Unlock()

	snap.Catalog = GroupCatalog(w.cfg.Grouper, catalog)
	snap.Total, snap.UnpricedLines = cartTotal(lines)
	if lastErr != nil {
		snap.Error = backend.UserMessage(lastErr)
		var apiErr *backend.APIError
		if errors.As(lastErr, &apiErr) {
			snap.FieldErrors = apiErr.FieldErrors()
		}
	}
	return snap
}
