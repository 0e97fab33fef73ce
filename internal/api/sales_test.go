package api

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sales-service/internal/domain"
	"inventory-sales-service/internal/report"
	"inventory-sales-service/internal/store"
)

func TestSalesFilter_IgnoresInvalidDates(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/sales?q=+pen+&from=2024-03-01&to=nope", nil)
	require.NoError(t, err)

	f := salesFilter(r)

	assert.Equal(t, "pen", f.Search)
	require.NotNil(t, f.From)
	assert.Equal(t, "2024-03-01", f.From.String())
	assert.Nil(t, f.To)
	assert.Equal(t, "?from=2024-03-01&q=pen", exportQuery(f))
	assert.Equal(t, "", exportQuery(domain.SalesFilter{}))
}

func TestHTTPHandler_ListSales_AppliesFilter(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, bogota)
	until := time.Date(2024, 3, 8, 0, 0, 0, 0, bogota)
	env.sales.On("ListSales", mock.Anything, mock.MatchedBy(func(p store.ListSalesParams) bool {
		return p.SearchQuery != nil && *p.SearchQuery == "Pen" &&
			p.From != nil && p.From.Equal(from) &&
			p.Until != nil && p.Until.Equal(until)
	})).Return([]domain.Sale{
		{ID: 2, Quantity: 3, UnitPrice: dec("2.50"), ProductNameSnapshot: PtrTo("Pen"), CreatedAt: fixedNow},
		{ID: 1, Quantity: 1, UnitPrice: dec("2.00"), ProductNameSnapshot: PtrTo("Pen"), CreatedAt: fixedNow.Add(-time.Hour)},
	}, nil).Once()

	res, body := env.get(t, "/sales?q=Pen&from=2024-03-01&to=2024-03-07")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "2 ventas · Total 9.50")
	assert.Contains(t, body, "2024-03-07 15:30")
	assert.Contains(t, body, "/sales/export.csv?from=2024-03-01&amp;q=Pen&amp;to=2024-03-07")
	env.sales.AssertExpectations(t)
}

func TestHTTPHandler_CreateSaleForm_PreselectsProduct(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.products.On("ListProductOptions", mock.Anything).Return([]domain.ProductOption{
		{ID: 1, Name: "Pen", Price: dec("2.50"), Stock: 10},
		{ID: 2, Name: "Lamp", Price: dec("10.00"), Stock: 0},
	}, nil).Once()

	res, body := env.get(t, "/sales/create?productId=2")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `value="2" data-price="10.00" selected`)
	assert.Contains(t, body, `name="Quantity" value="1"`)
}

func TestHTTPHandler_CreateSale_AccumulatesErrors(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(pen(), nil).Once()
	env.products.On("ListProductOptions", mock.Anything).Return([]domain.ProductOption{}, nil).Once()

	res, body := env.postForm(t, "/sales/create", url.Values{
		"ProductId": {"1"},
		"Quantity":  {"0"},
		"UnitPrice": {"-1"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, msgSaleQuantity)
	assert.Contains(t, body, msgSalePrice)
	env.sales.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateSale_MissingProductAndTooManyUnits(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(pen(), nil).Once()
	env.products.On("GetProductByID", mock.Anything, int64(404)).Return(nil, store.ErrProductNotFound).Once()
	env.products.On("ListProductOptions", mock.Anything).Return([]domain.ProductOption{}, nil).Twice()

	res, body := env.postForm(t, "/sales/create", url.Values{"ProductId": {"1"}, "Quantity": {"11"}})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Stock insuficiente. Disponible: 10")

	res, body = env.postForm(t, "/sales/create", url.Values{"ProductId": {"404"}, "Quantity": {"x"}})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, msgSaleProductNotFound)
	assert.Contains(t, body, msgSaleQuantity)

	env.sales.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
	env.products.AssertExpectations(t)
}

func TestHTTPHandler_CreateSale_DefaultsToListPrice(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(pen(), nil).Once()
	env.sales.On("CreateSale", mock.Anything, mock.MatchedBy(func(in domain.SaleInput) bool {
		return in.ProductID == 1 && in.Quantity == 3 && in.UnitPrice.Equal(dec("2.50"))
	})).Return(&domain.Sale{
		ID:                  10,
		ProductID:           1,
		Quantity:            3,
		UnitPrice:           dec("2.50"),
		ProductNameSnapshot: PtrTo("Pen"),
	}, nil).Once()

	res, _ := env.postForm(t, "/sales/create", url.Values{"ProductId": {"1"}, "Quantity": {"3"}, "UnitPrice": {""}})

	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/sales", res.Header.Get("Location"))
	env.sales.AssertExpectations(t)
}

func TestHTTPHandler_CreateSale_LostRaceReportsStock(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	drained := pen()
	drained.Stock = 1
	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(pen(), nil).Once()
	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(drained, nil).Once()
	env.products.On("ListProductOptions", mock.Anything).Return([]domain.ProductOption{}, nil).Once()
	env.sales.On("CreateSale", mock.Anything, mock.Anything).Return(nil, store.ErrInsufficientStock).Once()

	res, body := env.postForm(t, "/sales/create", url.Values{"ProductId": {"1"}, "Quantity": {"5"}, "UnitPrice": {"2.50"}})

	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Stock insuficiente. Disponible: 1")
}

func TestHTTPHandler_SellOne_ZeroStock(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	empty := pen()
	empty.Stock = 0
	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(empty, nil).Once()
	env.products.On("ListProducts", mock.Anything, store.ListProductsParams{}).Return([]domain.Product{*empty}, nil).Once()

	res, _ := env.postForm(t, "/sales/sell-one/1", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/products", res.Header.Get("Location"))
	env.sales.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)

	_, body := env.get(t, "/products")
	assert.Contains(t, body, `class="flash flash-error"`)
	assert.Contains(t, body, "No hay stock de")
}

func TestHTTPHandler_SellOne_Success(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.products.On("GetProductByID", mock.Anything, int64(1)).Return(pen(), nil).Once()
	env.sales.On("CreateSale", mock.Anything, domain.SaleInput{ProductID: 1, Quantity: 1, UnitPrice: dec("2.50")}).
		Return(&domain.Sale{ID: 3, ProductID: 1, Quantity: 1, UnitPrice: dec("2.50")}, nil).Once()
	env.products.On("ListProducts", mock.Anything, store.ListProductsParams{}).Return([]domain.Product{}, nil).Once()

	res, _ := env.postForm(t, "/sales/sell-one/1", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	_, body := env.get(t, "/products")
	assert.Contains(t, body, `class="flash flash-ok"`)
	assert.Contains(t, body, "Vendiste 1 unidad de")

	// flashes are shown once
	env.products.On("ListProducts", mock.Anything, store.ListProductsParams{}).Return([]domain.Product{}, nil).Once()
	_, body = env.get(t, "/products")
	assert.NotContains(t, body, "Vendiste 1 unidad de")
	env.sales.AssertExpectations(t)
}

func TestHTTPHandler_ExportCSV(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.sales.On("ListSales", mock.Anything, mock.MatchedBy(func(p store.ListSalesParams) bool {
		return p.SearchQuery == nil && p.From != nil && p.Until == nil
	})).Return([]domain.Sale{
		{ID: 1, Quantity: 2, UnitPrice: dec("2.50"), ProductNameSnapshot: PtrTo("Pen, blue"), CreatedAt: fixedNow},
	}, nil).Once()

	res, body := env.get(t, "/sales/export.csv?from=2024-03-01")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, report.CSVContentType, res.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ventas_20240307_1530.csv"`, res.Header.Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Fecha,Producto,Cantidad,PrecioUnit,Total", lines[0])
	assert.Equal(t, `2024-03-07 15:30,"Pen, blue",2,2.50,5.00`, lines[1])
	env.sales.AssertExpectations(t)
}

func TestHTTPHandler_ExportXLSX(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.login(t)

	env.sales.On("ListSales", mock.Anything, store.ListSalesParams{}).Return([]domain.Sale{}, nil).Once()

	res, body := env.get(t, "/sales/export.xlsx")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, report.XLSXContentType, res.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ventas_20240307_1530.xlsx"`, res.Header.Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix([]byte(body), []byte("PK")), "xlsx is a zip archive")
}
