package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-sales-service/internal/database"
	"inventory-sales-service/internal/domain"
)

// saleMaxRetries bounds retries of the sale transaction on deadlocks and
// serialization failures.
const saleMaxRetries = 3

// --- SaleStorer Implementation ---

// CreateSale decrements stock only if enough units remain, then inserts the
// sale with the product's name and cost frozen as they were before the
// decrement. Either both writes happen or neither does.
func (s *PostgresStore) CreateSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	decrementQuery := `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
		RETURNING name, cost;
	`
	existsQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1);`
	insertQuery := `
		INSERT INTO sales (product_id, quantity, unit_price, cost_at_sale, product_name_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`

	var sale *domain.Sale
	err := database.WithRetry(ctx, s.db, saleMaxRetries, func(tx *sql.Tx) error {
		var (
			name string
			cost decimal.Decimal
		)
		err := tx.QueryRowContext(ctx, decrementQuery, input.Quantity, input.ProductID).Scan(&name, &cost)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, existsQuery, input.ProductID).Scan(&exists); err != nil {
				return fmt.Errorf("store: CreateSale failed to check product: %w", err)
			}
			if !exists {
				return ErrProductNotFound
			}
			return ErrInsufficientStock
		}
		if err != nil {
			return fmt.Errorf("store: CreateSale failed to decrement stock: %w", err)
		}

		created := &domain.Sale{
			ProductID:           input.ProductID,
			Quantity:            input.Quantity,
			UnitPrice:           input.UnitPrice,
			CostAtSale:          decimal.NewNullDecimal(cost),
			ProductNameSnapshot: &name,
		}
		if err := tx.QueryRowContext(ctx, insertQuery,
			created.ProductID, created.Quantity, created.UnitPrice, cost, name,
		).Scan(&created.ID, &created.CreatedAt); err != nil {
			return fmt.Errorf("store: CreateSale failed to insert sale: %w", err)
		}
		sale = created
		return nil
	})
	if err != nil {
		if database.IsCheckViolation(err) {
			return nil, ErrInsufficientStock
		}
		return nil, err
	}

	s.logger.Debug("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
	)
	return sale, nil
}

func (s *PostgresStore) ListSales(ctx context.Context, params ListSalesParams) ([]domain.Sale, error) {
	var (
		conditions []string
		queryArgs  []any
	)
	nextArg := func(v any) string {
		queryArgs = append(queryArgs, v)
		return "$" + strconv.Itoa(len(queryArgs))
	}

	if params.SearchQuery != nil && *params.SearchQuery != "" {
		ph := nextArg(likePattern(*params.SearchQuery))
		conditions = append(conditions,
			fmt.Sprintf(`(p.name LIKE %[1]s ESCAPE '\' OR s.product_name_snapshot LIKE %[1]s ESCAPE '\')`, ph))
	}
	if params.From != nil {
		conditions = append(conditions, "s.created_at >= "+nextArg(*params.From))
	}
	if params.Until != nil {
		conditions = append(conditions, "s.created_at < "+nextArg(*params.Until))
	}

	var b strings.Builder
	b.WriteString(`SELECT s.id, s.product_id, s.quantity, s.unit_price, s.cost_at_sale, s.product_name_snapshot, s.created_at,`)
	b.WriteString(` p.id, p.name, p.description, p.cost, p.price, p.stock, p.image_url, p.image_path, p.created_at`)
	b.WriteString(` FROM sales s LEFT JOIN products p ON p.id = s.product_id`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY s.created_at DESC, s.id DESC")
	if params.Limit > 0 {
		b.WriteString(" LIMIT " + nextArg(params.Limit))
	}
	b.WriteString(";")

	rows, err := s.db.QueryContext(ctx, b.String(), queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListSales failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSaleWithProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListSales failed to scan sale row: %w", err)
		}
		sales = append(sales, *sale)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSales iteration error: %w", err)
	}
	return sales, nil
}

// RecentSales returns the newest limit sales.
func (s *PostgresStore) RecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.ListSales(ctx, ListSalesParams{Limit: limit})
}

// SalesSince sums revenue and profit of sales created at or after since.
// Profit uses the frozen cost, falling back to the live cost for rows that
// predate the snapshot columns.
func (s *PostgresStore) SalesSince(ctx context.Context, since time.Time) (domain.SalesWindow, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(s.unit_price * s.quantity), 0),
			COALESCE(SUM((s.unit_price - COALESCE(s.cost_at_sale, p.cost, 0)) * s.quantity), 0)
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.created_at >= $1;
	`
	var w domain.SalesWindow
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&w.Count, &w.Revenue, &w.Profit); err != nil {
		return domain.SalesWindow{}, fmt.Errorf("store: SalesSince failed to scan row: %w", err)
	}
	return w, nil
}

func scanSaleWithProduct(sc rowScanner) (*domain.Sale, error) {
	var (
		sale domain.Sale

		pID          sql.NullInt64
		pName        sql.NullString
		pDescription sql.NullString
		pCost        decimal.NullDecimal
		pPrice       decimal.NullDecimal
		pStock       sql.NullInt64
		pImageURL    sql.NullString
		pImagePath   sql.NullString
		pCreatedAt   sql.NullTime
	)
	if err := sc.Scan(
		&sale.ID, &sale.ProductID, &sale.Quantity, &sale.UnitPrice, &sale.CostAtSale,
		&sale.ProductNameSnapshot, &sale.CreatedAt,
		&pID, &pName, &pDescription, &pCost, &pPrice, &pStock, &pImageURL, &pImagePath, &pCreatedAt,
	); err != nil {
		return nil, err
	}
	if pID.Valid {
		sale.Product = &domain.Product{
			ID:          pID.Int64,
			Name:        pName.String,
			Description: nullStringPtr(pDescription),
			Cost:        pCost.Decimal,
			Price:       pPrice.Decimal,
			Stock:       int(pStock.Int64),
			Image:       domain.ImageFromColumns(nullStringPtr(pImageURL), nullStringPtr(pImagePath)),
			CreatedAt:   pCreatedAt.Time,
		}
	}
	return &sale, nil
}
