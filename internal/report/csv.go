package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// CSVContentType is the media type of WriteCSV output.
const CSVContentType = "text/csv; charset=utf-8"

// csvDateLayout is yyyy-MM-dd HH:mm.
const csvDateLayout = "2006-01-02 15:04"

type csvRow struct {
	Fecha      string `csv:"Fecha"`
	Producto   string `csv:"Producto"`
	Cantidad   int    `csv:"Cantidad"`
	PrecioUnit string `csv:"PrecioUnit"`
	Total      string `csv:"Total"`
}

// WriteCSV writes the header row and one row per line. Fields containing a
// comma, quote or newline are quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, lines []Line) error {
	rows := make([]*csvRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, &csvRow{
			Fecha:      l.Date.Format(csvDateLayout),
			Producto:   l.Product,
			Cantidad:   l.Quantity,
			PrecioUnit: l.UnitPrice.StringFixed(2),
			Total:      l.Total().StringFixed(2),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("report: failed to write csv: %w", err)
	}
	return nil
}
