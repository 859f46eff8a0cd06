package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"orderportal/server/internal/format"
	"orderportal/server/internal/models"
)

const exportSheet = "Narudzbe"

var exportHeader = []any{"Broj", "Dobavljac", "Status", "Datum", "Tip placanja", "Neto", "Bruto", "Povratna naknada"}

// ExportService renders an order list as an xlsx workbook
type ExportService struct {
	loc *time.Location
}

func NewExportService(loc *time.Location) *ExportService {
	return &ExportService{loc: loc}
}

// OrdersWorkbook writes one row per order followed by the backend summary
func (s *ExportService) OrdersWorkbook(list models.PurchaseOrderList) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, o := range list.Results {
		paymentType := ""
		if o.PaymentTypeName != nil {
			paymentType = *o.PaymentTypeName
		}
		values := []any{
			o.ID,
			o.SupplierName,
			o.StatusLabel,
			format.FormatDate(o.OrderedAt, s.loc),
			paymentType,
			o.TotalNet.InexactFloat64(),
			o.TotalGross.InexactFloat64(),
			o.TotalDeposit.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write order %d: %w", o.ID, err)
		}
		row++
	}

	totals := []any{
		"Ukupno",
		fmt.Sprintf("%d", list.Summary.Count),
		"", "", "",
		list.Summary.TotalNet.InexactFloat64(),
		list.Summary.TotalGross.InexactFloat64(),
		list.Summary.TotalDeposit.InexactFloat64(),
	}
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		return nil, fmt.Errorf("write totals: %w", err)
	}

	if style, err := f.NewStyle(&excelize.Style{NumFmt: 4}); err == nil {
		_ = f.SetCellStyle(exportSheet, "F2", fmt.Sprintf("H%d", row+1), style)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "H1", bold)
	}
	_ = f.SetColWidth(exportSheet, "B", "B", 32)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
