package store

import (
	"context"
	"time"

	"inventory-sales-service/internal/domain"
)

// ListProductsParams holds parameters for listing products.
type ListProductsParams struct {
	SearchQuery *string // substring of name or description
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	// ListProducts returns the matching products, newest first.
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error)
	// ListProductOptions returns every product ordered by name.
	ListProductOptions(ctx context.Context) ([]domain.ProductOption, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	InventoryValuation(ctx context.Context) (domain.InventoryValuation, error)
}

// ListSalesParams holds parameters for listing sales.
type ListSalesParams struct {
	SearchQuery *string    // substring of the live product name or the name snapshot
	From        *time.Time // inclusive
	Until       *time.Time // exclusive
	Limit       int        // 0 means no limit
}

// SaleStorer defines the database operations for sales.
type SaleStorer interface {
	// CreateSale decrements stock and inserts the sale with snapshots in one transaction.
	CreateSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error)
	// ListSales returns the matching sales, newest first.
	ListSales(ctx context.Context, params ListSalesParams) ([]domain.Sale, error)
	RecentSales(ctx context.Context, limit int) ([]domain.Sale, error)
	SalesSince(ctx context.Context, since time.Time) (domain.SalesWindow, error)
}
