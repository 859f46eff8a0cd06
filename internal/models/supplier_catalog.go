package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SupplierDTO is a row of GET /api/suppliers/
type SupplierDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	RmID int64  `json:"rm_id"`
}

// Supplier is immutable reference data fetched once per session
type Supplier struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ExternalRefID int64  `json:"externalRefId"`
}

// StockRowDTO is the stock of one catalog article in one warehouse
type StockRowDTO struct {
	WarehouseID   *int64     `json:"warehouse_id"`
	WarehouseName string     `json:"warehouse_name"`
	Quantity      WireNumber `json:"quantity"`
}

// CatalogItemDTO is a row of GET /api/suppliers/{id}/artikli/
type CatalogItemDTO struct {
	ArtiklID      int64         `json:"artikl_id"`
	ArtiklRmID    *int64        `json:"artikl_rm_id"`
	Name          string        `json:"name"`
	Code          *string       `json:"code"`
	Image         *string       `json:"image"`
	Image46x75    *string       `json:"image_46x75"`
	BaseGroup     *string       `json:"base_group"`
	UnitOfMeasure *int64        `json:"unit_of_measure"`
	UnitName      *string       `json:"unit_name"`
	Price         WireNumber    `json:"price"`
	Stocks        []StockRowDTO `json:"stocks"`
}

// CatalogResponseDTO wraps the supplier catalog listing
type CatalogResponseDTO struct {
	Results []CatalogItemDTO `json:"results"`
}

type StockRow struct {
	WarehouseID   *int64          `json:"warehouseId"`
	WarehouseName string          `json:"warehouseName"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// CatalogItem is a supplier-scoped purchasable article under one unit of measure.
// UnitPrice is nil when the supplier price list has no price; that is
// "unknown", never zero.
type CatalogItem struct {
	ID               int64            `json:"id"`
	ExternalRefID    *int64           `json:"externalRefId"`
	Name             string           `json:"name"`
	Code             *string          `json:"code"`
	ImageURL         *string          `json:"imageUrl"`
	ThumbnailURL     *string          `json:"thumbnailUrl"`
	GroupLabel       *string          `json:"groupLabel"`
	UnitID           *int64           `json:"unitId"`
	UnitName         *string          `json:"unitName"`
	UnitPrice        *decimal.Decimal `json:"unitPrice"`
	StockByWarehouse []StockRow       `json:"stockByWarehouse"`
}

// HasUnit reports whether the article can be ordered at all
func (i CatalogItem) HasUnit() bool {
	return i.UnitID != nil && *i.UnitID != 0
}

// Key is the cart identity of the article
func (i CatalogItem) Key() LineKey {
	var unit int64
	if i.UnitID != nil {
		unit = *i.UnitID
	}
	return LineKey{ItemID: i.ID, UnitID: unit}
}

// LineKey identifies a cart line: the same article under two units is two lines
type LineKey struct {
	ItemID int64
	UnitID int64
}

func (k LineKey) String() string {
	if k.UnitID == 0 {
		return fmt.Sprintf("%d-none", k.ItemID)
	}
	return fmt.Sprintf("%d-%d", k.ItemID, k.UnitID)
}

// ParseLineKey is the inverse of LineKey.String
func ParseLineKey(s string) (LineKey, error) {
	itemPart, unitPart, ok := strings.Cut(s, "-")
	if !ok {
		return LineKey{}, fmt.Errorf("invalid line key %q", s)
	}
	itemID, err := strconv.ParseInt(itemPart, 10, 64)
	if err != nil {
		return LineKey{}, fmt.Errorf("invalid item in line key %q: %w", s, err)
	}
	if unitPart == "none" {
		return LineKey{ItemID: itemID}, nil
	}
	unitID, err := strconv.ParseInt(unitPart, 10, 64)
	if err != nil {
		return LineKey{}, fmt.Errorf("invalid unit in line key %q: %w", s, err)
	}
	return LineKey{ItemID: itemID, UnitID: unitID}, nil
}

func (k LineKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PaymentTypeDTO is a row of GET /api/payment-types/
type PaymentTypeDTO struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
}

type PaymentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
