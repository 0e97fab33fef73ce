package domain

import "github.com/shopspring/decimal"

// InventoryValuation is computed over the whole catalog.
type InventoryValuation struct {
	ItemCount      int
	TotalStock     int64
	TotalCost      decimal.Decimal
	TotalSaleValue decimal.Decimal
}

// PotentialProfit is sale value minus cost of the current stock.
func (v InventoryValuation) PotentialProfit() decimal.Decimal {
	return v.TotalSaleValue.Sub(v.TotalCost)
}

// SalesWindow is revenue and realized profit of sales since some instant.
// Profit uses each sale's frozen cost (see Sale.UnitCost).
type SalesWindow struct {
	Count   int
	Revenue decimal.Decimal
	Profit  decimal.Decimal
}

// Dashboard is the home page model. It is recomputed on every request.
type Dashboard struct {
	Inventory   InventoryValuation
	Today       SalesWindow
	Last7Days   SalesWindow
	RecentSales []Sale
}
