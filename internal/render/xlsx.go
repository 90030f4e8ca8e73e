package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/quotemaker-dev/quotemaker/internal/money"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// SheetName is the worksheet holding the document.
const SheetName = "Estimate"

// Worksheet layout.
const (
	headerRow     = 8
	firstItemRow  = headerRow + 1
	summaryRows   = 5 // blank, subtotal, discount, tax, total
	numFmtGrouped = 3 // #,##0
)

// ErrTooManyItems is returned when the items do not fit on one worksheet.
var ErrTooManyItems = errors.New("too many items for a worksheet")

var spreadsheetFonts = map[model.FontFamily]string{
	model.FontSystem:  "Calibri",
	model.FontSerif:   "Times New Roman",
	model.FontMono:    "Courier New",
	model.FontRounded: "Arial Rounded MT Bold",
}

// XLSX renders doc as a single-sheet workbook with numeric amounts.
func (r *Renderer) XLSX(ctx context.Context, doc model.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if last := firstItemRow + len(doc.Items) + summaryRows - 1; last > excelize.TotalRows {
		return nil, fmt.Errorf("%w: %d items", ErrTooManyItems, len(doc.Items))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if font, ok := spreadsheetFonts[doc.FontFamily]; ok {
		if err := f.SetDefaultFont(font); err != nil {
			return nil, fmt.Errorf("setting font: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtGrouped})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{NumFmt: numFmtGrouped, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}

	title := doc.Title
	if title == "" {
		title = untitled
	}
	cells := [][2]any{
		{"A1", title},
		{"A2", "Estimate No."}, {"B2", doc.EstimateNumber},
		{"A3", "Issue date"}, {"B3", doc.IssueDate},
		{"A4", "Valid until"}, {"B4", doc.DueDate},
		{"A5", "From"}, {"B5", doc.Sender.Name},
		{"A6", "To"}, {"B6", doc.Recipient.Name},
	}
	for _, c := range cells {
		if err := f.SetCellValue(SheetName, c[0].(string), c[1]); err != nil {
			return nil, fmt.Errorf("setting %s: %w", c[0], err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", bold); err != nil {
		return nil, fmt.Errorf("styling title: %w", err)
	}

	header := []any{"No.", "Description", "Quantity", "Unit price", "Amount"}
	if err := f.SetSheetRow(SheetName, cell(1, headerRow), &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := f.SetCellStyle(SheetName, cell(1, headerRow), cell(len(header), headerRow), bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	row := firstItemRow
	for i, it := range doc.Items {
		values := []any{i + 1, it.Description, it.Quantity, it.UnitPrice, it.Total}
		if err := f.SetSheetRow(SheetName, cell(1, row), &values); err != nil {
			return nil, fmt.Errorf("writing item %d: %w", i+1, err)
		}
		row++
	}
	if row > firstItemRow {
		if err := f.SetCellStyle(SheetName, cell(3, firstItemRow), cell(5, row-1), amount); err != nil {
			return nil, fmt.Errorf("styling items: %w", err)
		}
	}

	s := money.Summarize(doc)
	summary := []struct {
		label string
		value int64
	}{
		{"Subtotal", s.Subtotal},
		{fmt.Sprintf("Discount (%s%%)", money.DiscountPercent(doc.DiscountRate)), -s.Discount},
		{fmt.Sprintf("Tax (%s%%)", money.TaxPercent(doc.TaxRate)), s.Tax},
		{"Total", s.Total},
	}
	row++
	for _, line := range summary {
		if err := f.SetCellValue(SheetName, cell(4, row), line.label); err != nil {
			return nil, fmt.Errorf("writing summary: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell(5, row), line.value); err != nil {
			return nil, fmt.Errorf("writing summary: %w", err)
		}
		if err := f.SetCellStyle(SheetName, cell(5, row), cell(5, row), amount); err != nil {
			return nil, fmt.Errorf("styling summary: %w", err)
		}
		row++
	}
	if err := f.SetCellStyle(SheetName, cell(4, row-1), cell(5, row-1), total); err != nil {
		return nil, fmt.Errorf("styling total: %w", err)
	}

	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "C", "E", 16); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// cell names an in-range cell. XLSX checks the row bound up front and
// columns are 1-5, so the conversion error is always nil.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
