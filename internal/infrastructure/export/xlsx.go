// Package export writes invoice lists as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
)

// SheetName is the worksheet holding the exported rows
const SheetName = "Invoices"

// ContentType is the MIME type of the produced file
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []interface{}{
	"ID", "Invoice No", "Client", "Amount", "Tax Amount", "Date", "Due Date",
	"Status", "Type", "Buyer", "Buyer Tax ID", "Seller", "Seller Tax ID",
}

// XLSXExporter implements port.Exporter with excelize
type XLSXExporter struct{}

// NewXLSXExporter creates an exporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Export writes one row per invoice in the given order, below a frozen header
func (e *XLSXExporter) Export(ctx context.Context, invoices []entity.Invoice, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return err
		}

		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			inv.ID,
			inv.InvoiceNo,
			inv.ClientName,
			inv.Amount.InexactFloat64(),
			inv.TaxAmount.InexactFloat64(),
			inv.Date.String(),
			inv.DueDate.String(),
			string(inv.Status),
			string(inv.Type),
			inv.BuyerName,
			inv.BuyerTaxID,
			inv.SellerName,
			inv.SellerTaxID,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if len(invoices) > 0 {
		last := len(invoices) + 1
		if err := f.SetCellStyle(SheetName, "D2", fmt.Sprintf("E%d", last), moneyStyle); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 42)
	_ = f.SetColWidth(SheetName, "B", lastCol, 16)
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

var _ port.Exporter = (*XLSXExporter)(nil)
