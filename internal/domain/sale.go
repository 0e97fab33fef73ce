package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a historical record of units sold. UnitPrice, CostAtSale and
// ProductNameSnapshot never change after insertion.
type Sale struct {
	ID                  int64
	ProductID           int64
	Quantity            int
	UnitPrice           decimal.Decimal
	CostAtSale          decimal.NullDecimal // null on rows older than the snapshot migration
	ProductNameSnapshot *string             // same
	CreatedAt           time.Time

	// Product is the live catalog row, nil once the product has been deleted.
	Product *Product
}

// Total is unit price times quantity.
func (s Sale) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// DisplayName prefers the frozen name and falls back to the live product.
func (s Sale) DisplayName() string {
	if s.ProductNameSnapshot != nil {
		return *s.ProductNameSnapshot
	}
	if s.Product != nil {
		return s.Product.Name
	}
	return ""
}

// UnitCost prefers the frozen cost, then the live cost, then zero.
func (s Sale) UnitCost() decimal.Decimal {
	if s.CostAtSale.Valid {
		return s.CostAtSale.Decimal
	}
	if s.Product != nil {
		return s.Product.Cost
	}
	return decimal.Zero
}

// SaleInput is what the caller supplies to record a sale; snapshots come from the product.
type SaleInput struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// SalesTotals aggregates a (possibly filtered) sale list.
type SalesTotals struct {
	Count int
	Total decimal.Decimal
}

// SummarizeSales computes SalesTotals over sales.
func SummarizeSales(sales []Sale) SalesTotals {
	t := SalesTotals{Count: len(sales)}
	for _, s := range sales {
		t.Total = t.Total.Add(s.Total())
	}
	return t
}
