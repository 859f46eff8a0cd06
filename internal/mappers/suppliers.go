package mappers

import (
	"orderportal/server/internal/models"
)

func MapSuppliers(items []models.SupplierDTO) []models.Supplier {
	out := make([]models.Supplier, 0, len(items))
	for _, s := range items {
		out = append(out, models.Supplier{
			ID:            s.ID,
			Name:          stringOr(&s.Name, "Dobavljac"),
			ExternalRefID: s.RmID,
		})
	}
	return out
}

func MapCatalogItem(dto models.CatalogItemDTO) models.CatalogItem {
	stocks := make([]models.StockRow, 0, len(dto.Stocks))
	for _, st := range dto.Stocks {
		stocks = append(stocks, models.StockRow{
			WarehouseID:   st.WarehouseID,
			WarehouseName: st.WarehouseName,
			Quantity:      ParseQuantity(st.Quantity),
		})
	}
	return models.CatalogItem{
		ID:               dto.ArtiklID,
		ExternalRefID:    dto.ArtiklRmID,
		Name:             stringOr(&dto.Name, "Artikl"),
		Code:             nonEmpty(dto.Code),
		ImageURL:         nonEmpty(dto.Image),
		ThumbnailURL:     nonEmpty(dto.Image46x75),
		GroupLabel:       nonEmpty(dto.BaseGroup),
		UnitID:           dto.UnitOfMeasure,
		UnitName:         nonEmpty(dto.UnitName),
		UnitPrice:        ParseMoney(dto.Price),
		StockByWarehouse: stocks,
	}
}

// MapCatalog maps the supplier catalog listing; a missing results key is an empty catalog
func MapCatalog(resp models.CatalogResponseDTO) []models.CatalogItem {
	out := make([]models.CatalogItem, 0, len(resp.Results))
	for _, item := range resp.Results {
		out = append(out, MapCatalogItem(item))
	}
	return out
}

func MapPaymentTypes(items []models.PaymentTypeDTO) []models.PaymentType {
	out := make([]models.PaymentType, 0, len(items))
	for _, pt := range items {
		out = append(out, models.PaymentType{
			ID:   pt.ID,
			Name: stringOr(pt.Name, "Tip placanja"),
		})
	}
	return out
}

func MapUser(dto models.UserDTO) models.User {
	user := models.User{
		ID:       dto.ID,
		Username: derefString(dto.Username),
		Email:    derefString(dto.Email),
	}
	first := derefString(dto.FirstName)
	last := derefString(dto.LastName)
	switch {
	case first != "" && last != "":
		full := first + " " + last
		user.FullName = &full
	case first != "":
		user.FullName = &first
	case last != "":
		user.FullName = &last
	}
	return user
}
