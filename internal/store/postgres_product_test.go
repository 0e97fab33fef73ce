package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sales-service/internal/domain"
)

var productRowColumns = []string{"id", "name", "description", "cost", "price", "stock", "image_url", "image_path", "created_at"}

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewPostgresStore(db, nil)
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%Widget%`, likePattern("Widget"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	productToCreate := &domain.Product{
		Name:        "Pen",
		Description: PtrTo("Blue ink"),
		Cost:        dec("1.00"),
		Price:       dec("2.50"),
		Stock:       10,
		Image:       domain.URLImage("https://cdn.example.com/pen.png"),
	}

	query := regexp.QuoteMeta(`INSERT INTO products (name, description, cost, price, stock, image_url, image_path) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, name`)

	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(1), "Pen", "Blue ink", "1.00", "2.50", 10, "https://cdn.example.com/pen.png", nil, now)

	mock.ExpectQuery(query).
		WithArgs("Pen", PtrTo("Blue ink"), dec("1.00"), dec("2.50"), 10, PtrTo("https://cdn.example.com/pen.png"), nil).
		WillReturnRows(rows)

	created, err := store.CreateProduct(context.Background(), productToCreate)

	require.NoError(t, err, "CreateProduct should not return an error")
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Pen", created.Name)
	assert.Equal(t, PtrTo("Blue ink"), created.Description)
	assert.True(t, dec("2.50").Equal(created.Price))
	assert.Equal(t, domain.ImageURL, created.Image.Kind)
	assert.Equal(t, now.Unix(), created.CreatedAt.Unix())

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_CreateProduct_StoredImageClearsURL(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	productToCreate := &domain.Product{
		Name:  "Mug",
		Cost:  dec("3"),
		Price: dec("7"),
		Stock: 2,
		Image: domain.StoredImage("/uploads/mug-abc.png"),
	}

	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(2), "Mug", nil, "3.00", "7.00", 2, nil, "/uploads/mug-abc.png", now)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WithArgs("Mug", nil, dec("3"), dec("7"), 2, nil, PtrTo("/uploads/mug-abc.png")).
		WillReturnRows(rows)

	created, err := store.CreateProduct(context.Background(), productToCreate)

	require.NoError(t, err)
	assert.Nil(t, created.Description)
	assert.Equal(t, domain.StoredImage("/uploads/mug-abc.png"), created.Image)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`SELECT id, name, description, cost, price, stock, image_url, image_path, created_at FROM products WHERE id = $1;`)

	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(7), "Widget", nil, "4.10", "9.99", 3, "https://x/y.png", "/uploads/w.png", now)
	mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(rows)

	product, err := store.GetProductByID(context.Background(), 7)

	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, int64(7), product.ID)
	assert.True(t, dec("4.10").Equal(product.Cost))
	assert.Equal(t, 3, product.Stock)
	assert.Equal(t, domain.ImageStoredFile, product.Image.Kind, "stored path wins over url")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1;`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	product, err := store.GetProductByID(context.Background(), 99)

	require.Error(t, err, "Expected an error for not found product")
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")
	assert.Nil(t, product)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(2), "Beta", nil, "1.00", "2.00", 1, nil, nil, now).
		AddRow(int64(1), "Alpha", "desc", "1.00", "2.00", 5, nil, nil, now)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products ORDER BY id DESC;`)).
		WithoutArgs().
		WillReturnRows(rows)

	products, err := store.ListProducts(context.Background(), ListProductsParams{})

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Beta", products[0].Name)
	assert.Equal(t, "Alpha", products[1].Name)
	assert.True(t, products[0].Image.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_Search(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`FROM products WHERE (name LIKE $1 ESCAPE '\' OR description LIKE $1 ESCAPE '\') ORDER BY id DESC;`)
	mock.ExpectQuery(query).
		WithArgs("%Widget%").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	products, err := store.ListProducts(context.Background(), ListProductsParams{SearchQuery: PtrTo("Widget")})

	require.NoError(t, err)
	assert.NotNil(t, products, "empty result is an empty slice")
	assert.Empty(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProductOptions(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
		AddRow(int64(3), "Apple", "0.50", 100).
		AddRow(int64(1), "Pen", "2.50", 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, price, stock FROM products ORDER BY name ASC, id ASC;`)).
		WillReturnRows(rows)

	options, err := store.ListProductOptions(context.Background())

	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Apple", options[0].Name)
	assert.True(t, dec("2.50").Equal(options[1].Price))
	assert.Equal(t, 0, options[1].Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	createdAt := time.Now().Add(-time.Hour)
	productToUpdate := &domain.Product{
		ID:    5,
		Name:  "Pen XL",
		Cost:  dec("1.20"),
		Price: dec("3.00"),
		Stock: 8,
		Image: domain.NoImage(),
	}

	query := regexp.QuoteMeta(`UPDATE products SET name = $1, description = $2, cost = $3, price = $4, stock = $5, image_url = $6, image_path = $7 WHERE id = $8 RETURNING`)
	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(5), "Pen XL", nil, "1.20", "3.00", 8, nil, nil, createdAt)

	mock.ExpectQuery(query).
		WithArgs("Pen XL", nil, dec("1.20"), dec("3.00"), 8, nil, nil, int64(5)).
		WillReturnRows(rows)

	updated, err := store.UpdateProduct(context.Background(), productToUpdate)

	require.NoError(t, err)
	assert.Equal(t, "Pen XL", updated.Name)
	assert.Equal(t, createdAt.Unix(), updated.CreatedAt.Unix(), "created_at is never rewritten")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products SET`)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.UpdateProduct(context.Background(), &domain.Product{ID: 99, Name: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_Success(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1;`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeleteProduct(context.Background(), 1)

	require.NoError(t, err, "DeleteProduct should not return an error on success")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1;`)).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(context.Background(), 99)

	require.Error(t, err, "DeleteProduct should return an error if no rows were affected")
	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InventoryValuation(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"count", "stock", "cost", "value"}).
		AddRow(int64(2), int64(14), "22.00", "41.00")
	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(SUM(cost * stock), 0), COALESCE(SUM(price * stock), 0) FROM products;`)).
		WillReturnRows(rows)

	v, err := store.InventoryValuation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, v.ItemCount)
	assert.Equal(t, int64(14), v.TotalStock)
	assert.True(t, dec("22").Equal(v.TotalCost))
	assert.True(t, dec("19").Equal(v.PotentialProfit()))
	require.NoError(t, mock.ExpectationsWereMet())
}
