package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"inventory-sales-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrProductNotFound   = errors.New("store: product not found")
	ErrInsufficientStock = errors.New("store: insufficient stock")
	ErrInvalidQuantity   = errors.New("store: quantity must be greater than zero")
)

// PostgresStore implements the ProductStorer and SaleStorer interfaces using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// likePattern wraps s for a LIKE ... ESCAPE '\' substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const productColumns = `id, name, description, cost, price, stock, image_url, image_path, created_at`

func scanProduct(sc rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		imageURL  sql.NullString
		imagePath sql.NullString
	)
	if err := sc.Scan(
		&p.ID, &p.Name, &p.Description, &p.Cost, &p.Price, &p.Stock,
		&imageURL, &imagePath, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Image = domain.ImageFromColumns(nullStringPtr(imageURL), nullStringPtr(imagePath))
	return &p, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// --- ProductStorer Implementation ---

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (name, description, cost, price, stock, image_url, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns + `;
	`
	imageURL, imagePath := product.Image.Columns()
	created, err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Cost, product.Price, product.Stock,
		imageURL, imagePath,
	))
	if err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1;
	`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	var queryArgs []any
	whereCondition := ""
	if params.SearchQuery != nil && *params.SearchQuery != "" {
		whereCondition = ` WHERE (name LIKE $1 ESCAPE '\' OR description LIKE $1 ESCAPE '\')`
		queryArgs = append(queryArgs, likePattern(*params.SearchQuery))
	}

	query := "SELECT " + productColumns + " FROM products" + whereCondition + " ORDER BY id DESC;"
	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ListProductOptions(ctx context.Context) ([]domain.ProductOption, error) {
	query := `SELECT id, name, price, stock FROM products ORDER BY name ASC, id ASC;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductOptions failed to query products: %w", err)
	}
	defer rows.Close()

	options := make([]domain.ProductOption, 0)
	for rows.Next() {
		var o domain.ProductOption
		if err := rows.Scan(&o.ID, &o.Name, &o.Price, &o.Stock); err != nil {
			return nil, fmt.Errorf("store: ListProductOptions failed to scan row: %w", err)
		}
		options = append(options, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProductOptions iteration error: %w", err)
	}
	return options, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, cost = $3, price = $4, stock = $5, image_url = $6, image_path = $7
		WHERE id = $8
		RETURNING ` + productColumns + `;
	`
	imageURL, imagePath := product.Image.Columns()
	updated, err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Cost, product.Price, product.Stock,
		imageURL, imagePath, product.ID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	return updated, nil
}

// DeleteProduct removes the row. Sales keep their product_id and snapshots.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) InventoryValuation(ctx context.Context) (domain.InventoryValuation, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(stock), 0), COALESCE(SUM(cost * stock), 0), COALESCE(SUM(price * stock), 0)
		FROM products;
	`
	var v domain.InventoryValuation
	if err := s.db.QueryRowContext(ctx, query).Scan(&v.ItemCount, &v.TotalStock, &v.TotalCost, &v.TotalSaleValue); err != nil {
		return domain.InventoryValuation{}, fmt.Errorf("store: InventoryValuation failed to scan row: %w", err)
	}
	return v, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("Closing database connection pool")
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection pool", zap.Error(err))
		return err
	}
	s.logger.Info("Database connection pool closed")
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
