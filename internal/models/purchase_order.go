package models

import (
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle stage of a server-confirmed purchase order
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"   // set by the backend on submission
	OrderStatusSent      OrderStatus = "sent"      // e-mailed to the supplier
	OrderStatusConfirmed OrderStatus = "confirmed" // confirmed by the supplier
	OrderStatusReceived  OrderStatus = "received"  // goods received
	OrderStatusCanceled  OrderStatus = "canceled"
)

var orderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusSent,
	OrderStatusConfirmed,
	OrderStatusReceived,
	OrderStatusCanceled,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusCreated:   "Kreirana",
	OrderStatusSent:      "Poslana",
	OrderStatusConfirmed: "Potvrđena",
	OrderStatusReceived:  "Primljena",
	OrderStatusCanceled:  "Otkazana",
}

// OrderStatuses returns the closed set of statuses in lifecycle order
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus accepts only members of the closed enum
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, status := range orderStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// Label is the fallback display label used when the backend sends none
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return "Status"
}

// CanSend reports whether the send action may be offered
func (s OrderStatus) CanSend() bool {
	return s == OrderStatusCreated
}

// Wire shapes of /api/purchase-orders/

type PurchaseOrderItemDTO struct {
	ID            int64      `json:"id"`
	Artikl        int64      `json:"artikl"`
	ArtiklName    *string    `json:"artikl_name"`
	BaseGroup     *string    `json:"base_group"`
	Quantity      WireNumber `json:"quantity"`
	UnitName      *string    `json:"unit_name"`
	UnitOfMeasure int64      `json:"unit_of_measure"`
	Price         WireNumber `json:"price"`
}

type PurchaseOrderDTO struct {
	ID              int64                  `json:"id"`
	Supplier        int64                  `json:"supplier"`
	SupplierName    *string                `json:"supplier_name"`
	Status          string                 `json:"status"`
	StatusDisplay   *string                `json:"status_display"`
	PaymentType     *int64                 `json:"payment_type"`
	PaymentTypeName *string                `json:"payment_type_name"`
	OrderedAt       *string                `json:"ordered_at"`
	TotalNet        WireNumber             `json:"total_net"`
	TotalGross      WireNumber             `json:"total_gross"`
	TotalDeposit    WireNumber             `json:"total_deposit"`
	Items           []PurchaseOrderItemDTO `json:"items"`
}

type StatusCountDTO struct {
	Count      WireNumber `json:"count"`
	TotalGross WireNumber `json:"total_gross"`
}

type PurchaseOrderSummaryDTO struct {
	Count        WireNumber                `json:"count"`
	TotalNet     WireNumber                `json:"total_net"`
	TotalGross   WireNumber                `json:"total_gross"`
	TotalDeposit WireNumber                `json:"total_deposit"`
	StatusCounts map[string]StatusCountDTO `json:"status_counts"`
}

type PurchaseOrderListDTO struct {
	Summary PurchaseOrderSummaryDTO `json:"summary"`
	Results []PurchaseOrderDTO      `json:"results"`
}

// CreatePurchaseOrderItem is one submitted line; quantity is a decimal string
// and price is a string or null.
type CreatePurchaseOrderItem struct {
	Artikl        int64   `json:"artikl"`
	UnitOfMeasure int64   `json:"unit_of_measure"`
	Quantity      string  `json:"quantity"`
	Price         *string `json:"price"`
}

type CreatePurchaseOrderRequest struct {
	Supplier    int64                     `json:"supplier"`
	PaymentType *int64                    `json:"payment_type,omitempty"`
	Items       []CreatePurchaseOrderItem `json:"items"`
}

type CreatePurchaseOrderResponse struct {
	ID int64 `json:"id"`
}

// View models

type PurchaseOrderItem struct {
	ID            int64            `json:"id"`
	CatalogItemID int64            `json:"catalogItemId"`
	Name          string           `json:"name"`
	GroupLabel    *string          `json:"groupLabel"`
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitName      string           `json:"unitName"`
	UnitID        int64            `json:"unitId"`
	UnitPrice     *decimal.Decimal `json:"unitPrice"`
}

// LineTotal is nil when the unit price is unknown
func (i PurchaseOrderItem) LineTotal() *decimal.Decimal {
	if i.UnitPrice == nil {
		return nil
	}
	total := i.Quantity.Mul(*i.UnitPrice)
	return &total
}

type PurchaseOrder struct {
	ID              int64               `json:"id"`
	SupplierID      int64               `json:"supplierId"`
	SupplierName    string              `json:"supplierName"`
	StatusCode      OrderStatus         `json:"statusCode"`
	StatusLabel     string              `json:"statusLabel"`
	PaymentTypeID   *int64              `json:"paymentTypeId"`
	PaymentTypeName *string             `json:"paymentTypeName"`
	OrderedAt       Date                `json:"orderedAt"`
	TotalNet        decimal.Decimal     `json:"totalNet"`
	TotalGross      decimal.Decimal     `json:"totalGross"`
	TotalDeposit    decimal.Decimal     `json:"totalDeposit"`
	Items           []PurchaseOrderItem `json:"items"`
}

// CanSend is true only for orders the backend still holds as created
func (o PurchaseOrder) CanSend() bool {
	return o.StatusCode.CanSend()
}

type StatusCount struct {
	Count      int64           `json:"count"`
	TotalGross decimal.Decimal `json:"totalGross"`
}

// PurchaseOrderSummary is computed by the backend over the whole filtered
// result set, not over the returned page.
type PurchaseOrderSummary struct {
	Count        int64                  `json:"count"`
	TotalNet     decimal.Decimal        `json:"totalNet"`
	TotalGross   decimal.Decimal        `json:"totalGross"`
	TotalDeposit decimal.Decimal        `json:"totalDeposit"`
	StatusCounts map[string]StatusCount `json:"statusCounts"`
}

type PurchaseOrderList struct {
	Summary PurchaseOrderSummary `json:"summary"`
	Results []PurchaseOrder      `json:"results"`
}
