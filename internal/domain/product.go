package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item of the catalog.
// Cost and price are stored as NUMERIC(18,2); decimal.Decimal keeps them exact.
type Product struct {
	ID          int64
	Name        string
	Description *string // Pointer for nullable fields
	Cost        decimal.Decimal
	Price       decimal.Decimal
	Stock       int
	Image       Image
	CreatedAt   time.Time
}

// ProfitPerUnit is price minus cost.
func (p Product) ProfitPerUnit() decimal.Decimal {
	return p.Price.Sub(p.Cost)
}

// TotalCost is cost times stock.
func (p Product) TotalCost() decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// TotalSaleValue is price times stock.
func (p Product) TotalSaleValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// ProductTotals aggregates a (possibly filtered) product list.
type ProductTotals struct {
	Count          int
	TotalCost      decimal.Decimal
	TotalSaleValue decimal.Decimal
}

// SummarizeProducts computes ProductTotals over products.
func SummarizeProducts(products []Product) ProductTotals {
	t := ProductTotals{Count: len(products)}
	for _, p := range products {
		t.TotalCost = t.TotalCost.Add(p.TotalCost())
		t.TotalSaleValue = t.TotalSaleValue.Add(p.TotalSaleValue())
	}
	return t
}

// ProductOption is the slim projection used by the sale form's product picker.
type ProductOption struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}
