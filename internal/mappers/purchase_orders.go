package mappers

import (
	"github.com/shopspring/decimal"

	"orderportal/server/internal/models"
)

func MapPurchaseOrderItem(dto models.PurchaseOrderItemDTO) models.PurchaseOrderItem {
	return models.PurchaseOrderItem{
		ID:            dto.ID,
		CatalogItemID: dto.Artikl,
		Name:          stringOr(dto.ArtiklName, "Artikl"),
		GroupLabel:    nonEmpty(dto.BaseGroup),
		Quantity:      ParseQuantity(dto.Quantity),
		UnitName:      derefString(dto.UnitName),
		UnitID:        dto.UnitOfMeasure,
		UnitPrice:     ParseMoney(dto.Price),
	}
}

func MapPurchaseOrder(dto models.PurchaseOrderDTO) models.PurchaseOrder {
	items := make([]models.PurchaseOrderItem, 0, len(dto.Items))
	for _, item := range dto.Items {
		items = append(items, MapPurchaseOrderItem(item))
	}
	status := models.OrderStatus(dto.Status)
	return models.PurchaseOrder{
		ID:              dto.ID,
		SupplierID:      dto.Supplier,
		SupplierName:    stringOr(dto.SupplierName, "Dobavljac"),
		StatusCode:      status,
		StatusLabel:     stringOr(dto.StatusDisplay, status.Label()),
		PaymentTypeID:   dto.PaymentType,
		PaymentTypeName: nonEmpty(dto.PaymentTypeName),
		OrderedAt:       ParseDate(dto.OrderedAt),
		TotalNet:        ParseQuantity(dto.TotalNet),
		TotalGross:      ParseQuantity(dto.TotalGross),
		TotalDeposit:    ParseQuantity(dto.TotalDeposit),
		Items:           items,
	}
}

func MapPurchaseOrderSummary(dto models.PurchaseOrderSummaryDTO) models.PurchaseOrderSummary {
	counts := make(map[string]models.StatusCount, len(dto.StatusCounts))
	for status, c := range dto.StatusCounts {
		counts[status] = models.StatusCount{
			Count:      ParseCount(c.Count),
			TotalGross: ParseQuantity(c.TotalGross),
		}
	}
	return models.PurchaseOrderSummary{
		Count:        ParseCount(dto.Count),
		TotalNet:     ParseQuantity(dto.TotalNet),
		TotalGross:   ParseQuantity(dto.TotalGross),
		TotalDeposit: ParseQuantity(dto.TotalDeposit),
		StatusCounts: counts,
	}
}

func MapPurchaseOrderList(dto models.PurchaseOrderListDTO) models.PurchaseOrderList {
	orders := make([]models.PurchaseOrder, 0, len(dto.Results))
	for _, o := range dto.Results {
		orders = append(orders, MapPurchaseOrder(o))
	}
	return models.PurchaseOrderList{
		Summary: MapPurchaseOrderSummary(dto.Summary),
		Results: orders,
	}
}

// FormatWireDecimal renders a decimal the way the backend expects it in
// request bodies: plain notation, no exponent, no thousands separators.
func FormatWireDecimal(d decimal.Decimal) string {
	return d.String()
}
