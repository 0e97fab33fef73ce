// Package report turns a filtered sales list into export rows and rollups.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"inventory-sales-service/internal/domain"
)

// Line is one sale as it appears in an export.
type Line struct {
	Date      time.Time // in the report location
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
}

func (l Line) qty() decimal.Decimal { return decimal.NewFromInt(int64(l.Quantity)) }

// Total is unit price times quantity.
func (l Line) Total() decimal.Decimal { return l.UnitPrice.Mul(l.qty()) }

// Cost is unit cost times quantity.
func (l Line) Cost() decimal.Decimal { return l.UnitCost.Mul(l.qty()) }

// Profit is (unit price - unit cost) * quantity.
func (l Line) Profit() decimal.Decimal { return l.Total().Sub(l.Cost()) }

// ProjectSales keeps the order of sales and converts timestamps to loc.
func ProjectSales(sales []domain.Sale, loc *time.Location) []Line {
	if loc == nil {
		loc = time.Local
	}
	lines := make([]Line, 0, len(sales))
	for _, s := range sales {
		lines = append(lines, Line{
			Date:      s.CreatedAt.In(loc),
			Product:   s.DisplayName(),
			Quantity:  s.Quantity,
			UnitPrice: s.UnitPrice,
			UnitCost:  s.UnitCost(),
		})
	}
	return lines
}

// ProductSummary rolls up lines sharing a product name.
type ProductSummary struct {
	Product  string
	Quantity int
	Revenue  decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
	AvgPrice decimal.Decimal // weighted by quantity
	AvgCost  decimal.Decimal // weighted by quantity
}

// ByProduct groups by product name, highest revenue first. Ties are broken by name.
func ByProduct(lines []Line) []ProductSummary {
	index := map[string]int{}
	var out []ProductSummary
	for _, l := range lines {
		i, ok := index[l.Product]
		if !ok {
			i = len(out)
			index[l.Product] = i
			out = append(out, ProductSummary{Product: l.Product})
		}
		p := &out[i]
		p.Quantity += l.Quantity
		p.Revenue = p.Revenue.Add(l.Total())
		p.Cost = p.Cost.Add(l.Cost())
		p.Profit = p.Profit.Add(l.Profit())
	}

	for i := range out {
		divisor := decimal.NewFromInt(int64(max(1, out[i].Quantity)))
		out[i].AvgPrice = out[i].Revenue.Div(divisor)
		out[i].AvgCost = out[i].Cost.Div(divisor)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// DateSummary rolls up lines of one calendar day.
type DateSummary struct {
	Date     domain.Date
	Quantity int
	Revenue  decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
}

// ByDate groups by the calendar day of each line's Date, oldest first.
func ByDate(lines []Line) []DateSummary {
	index := map[domain.Date]int{}
	var out []DateSummary
	for _, l := range lines {
		day := domain.DateOf(l.Date, l.Date.Location())
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DateSummary{Date: day})
		}
		d := &out[i]
		d.Quantity += l.Quantity
		d.Revenue = d.Revenue.Add(l.Total())
		d.Cost = d.Cost.Add(l.Cost())
		d.Profit = d.Profit.Add(l.Profit())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// FileName is ventas_yyyyMMdd_HHmm.<ext> for now.
func FileName(now time.Time, ext string) string {
	return "ventas_" + now.Format("20060102_1504") + "." + ext
}
