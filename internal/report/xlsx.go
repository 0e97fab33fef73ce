package report

import (
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/shopspring/decimal"
)

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetSales     = "Ventas"
	SheetByProduct = "Resumen por producto"
	SheetByDate    = "Resumen por fecha"
)

const (
	xlsxDateTimeLayout = "2006-01-02 15:04"
	xlsxDateLayout     = "2006-01-02"
	totalsLabel        = "Totales:"
	minColWidth        = 8
	maxColWidth        = 60
)

// cell returns the A1 reference of a 1-based column and row.
func cell(col, row int) string {
	return excelize.ToAlphaString(col-1) + strconv.Itoa(row)
}

// sheet writes cells of one worksheet and remembers the widest value per column.
type sheet struct {
	f      *excelize.File
	name   string
	widths map[int]int
}

func (s *sheet) value(col, row int, v interface{}) {
	var text string
	switch x := v.(type) {
	case decimal.Decimal:
		text = x.StringFixed(2)
		v = x.InexactFloat64()
	case string:
		text = x
	default:
		text = fmt.Sprint(x)
	}
	s.f.SetCellValue(s.name, cell(col, row), v)
	s.track(col, text)
}

// date writes t as a date serial. excelize converts through UTC, so the wall
// clock is rebased first to keep the local reading.
func (s *sheet) date(col, row int, t time.Time, layout string) {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	s.f.SetCellValue(s.name, cell(col, row), wall)
	s.track(col, t.Format(layout))
}

func (s *sheet) formula(col, row int, formula string) {
	s.f.SetCellFormula(s.name, cell(col, row), formula)
	s.track(col, "")
}

func (s *sheet) track(col int, text string) {
	if n := utf8.RuneCountInString(text); n > s.widths[col] {
		s.widths[col] = n
	}
}

func (s *sheet) header(titles ...string) {
	for i, t := range titles {
		s.value(i+1, 1, t)
	}
}

// sumRow writes SUM formulas of rows 2..lastRow for cols on row totalRow.
// With no data rows the totals are literal zeros.
func (s *sheet) sumRow(totalRow, lastRow int, cols ...int) {
	for _, c := range cols {
		if lastRow < 2 {
			s.value(c, totalRow, 0)
			continue
		}
		col := excelize.ToAlphaString(c - 1)
		s.formula(c, totalRow, fmt.Sprintf("SUM(%s2:%s%d)", col, col, lastRow))
	}
}

func (s *sheet) style(styleID, fromCol, fromRow, toCol, toRow int) {
	if toRow < fromRow {
		return
	}
	s.f.SetCellStyle(s.name, cell(fromCol, fromRow), cell(toCol, toRow), styleID)
}

func (s *sheet) autosize() {
	for col, n := range s.widths {
		w := n + 2
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}
		c := excelize.ToAlphaString(col - 1)
		s.f.SetColWidth(s.name, c, c, float64(w))
	}
}

// WriteXLSX writes the three-sheet workbook: line items with a per-row profit
// formula and totals, the per-product rollup and the per-date rollup.
func WriteXLSX(w io.Writer, lines []Line) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetSales)
	f.NewSheet(SheetByProduct)
	f.NewSheet(SheetByDate)

	bold, err := f.NewStyle(`{"font":{"bold":true}}`)
	if err != nil {
		return fmt.Errorf("report: failed to create header style: %w", err)
	}
	money, err := f.NewStyle(`{"number_format":4}`)
	if err != nil {
		return fmt.Errorf("report: failed to create money style: %w", err)
	}
	stamp, err := f.NewStyle(`{"custom_number_format":"yyyy-mm-dd hh:mm"}`)
	if err != nil {
		return fmt.Errorf("report: failed to create timestamp style: %w", err)
	}
	day, err := f.NewStyle(`{"custom_number_format":"yyyy-mm-dd"}`)
	if err != nil {
		return fmt.Errorf("report: failed to create date style: %w", err)
	}

	writeSalesSheet(&sheet{f: f, name: SheetSales, widths: map[int]int{}}, lines, bold, money, stamp)
	writeProductSheet(&sheet{f: f, name: SheetByProduct, widths: map[int]int{}}, ByProduct(lines), bold, money)
	writeDateSheet(&sheet{f: f, name: SheetByDate, widths: map[int]int{}}, ByDate(lines), bold, money, day)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: failed to write xlsx: %w", err)
	}
	return nil
}

func writeSalesSheet(s *sheet, lines []Line, bold, money, stamp int) {
	s.header("Fecha (local)", "Producto", "Cantidad", "Precio unit.", "Total", "Costo unit.", "Utilidad (aprox)")

	row := 2
	for _, l := range lines {
		s.date(1, row, l.Date, xlsxDateTimeLayout)
		s.value(2, row, l.Product)
		s.value(3, row, l.Quantity)
		s.value(4, row, l.UnitPrice)
		s.value(5, row, l.Total())
		s.value(6, row, l.UnitCost)
		s.formula(7, row, fmt.Sprintf("E%d-C%d*F%d", row, row, row))
		s.track(7, l.Profit().StringFixed(2))
		row++
	}

	last := row - 1
	s.value(2, row, totalsLabel)
	s.sumRow(row, last, 3, 5, 7)

	s.style(bold, 1, 1, 7, 1)
	s.style(stamp, 1, 2, 1, last)
	s.style(money, 4, 2, 7, row)
	s.autosize()
}

func writeProductSheet(s *sheet, rows []ProductSummary, bold, money int) {
	s.header("Producto", "Cantidad", "Ingreso", "Costo estimado", "Utilidad (aprox)", "Precio prom.", "Costo prom.")

	row := 2
	for _, p := range rows {
		s.value(1, row, p.Product)
		s.value(2, row, p.Quantity)
		s.value(3, row, p.Revenue)
		s.value(4, row, p.Cost)
		s.value(5, row, p.Profit)
		s.value(6, row, p.AvgPrice)
		s.value(7, row, p.AvgCost)
		row++
	}

	last := row - 1
	s.value(1, row, totalsLabel)
	s.sumRow(row, last, 2, 3, 4, 5)

	s.style(bold, 1, 1, 7, 1)
	s.style(money, 3, 2, 7, row)
	s.autosize()
}

func writeDateSheet(s *sheet, rows []DateSummary, bold, money, day int) {
	s.header("Fecha", "Cantidad", "Ingreso", "Costo estimado", "Utilidad (aprox)")

	row := 2
	for _, d := range rows {
		s.date(1, row, d.Date.Start(time.UTC), xlsxDateLayout)
		s.value(2, row, d.Quantity)
		s.value(3, row, d.Revenue)
		s.value(4, row, d.Cost)
		s.value(5, row, d.Profit)
		row++
	}

	last := row - 1
	s.value(1, row, totalsLabel)
	s.sumRow(row, last, 2, 3, 4, 5)

	s.style(bold, 1, 1, 5, 1)
	s.style(day, 1, 2, 1, last)
	s.style(money, 3, 2, 5, row)
	s.autosize()
}
