package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-sales-service/internal/auth"
	"inventory-sales-service/internal/domain"
	"inventory-sales-service/internal/report"
	"inventory-sales-service/internal/store"
)

const (
	msgSaleProductNotFound = "Producto no encontrado."
	msgSaleQuantity        = "Cantidad debe ser mayor a 0."
	msgSalePrice           = "Precio inválido."
	msgSaleStock           = "Stock insuficiente. Disponible: %d"
)

type salesIndexView struct {
	Query       string
	From        string
	To          string
	Sales       []domain.Sale
	Totals      domain.SalesTotals
	ExportQuery string
}

type saleFormValues struct {
	ProductID string
	Quantity  string
	UnitPrice string
}

type saleFormView struct {
	Values   saleFormValues
	Errors   FieldErrors
	Products []domain.ProductOption
}

// salesFilter reads q/from/to. Unparseable dates are ignored.
func salesFilter(r *http.Request) domain.SalesFilter {
	q := r.URL.Query()
	f := domain.SalesFilter{Search: q.Get("q")}
	if d, err := domain.ParseDate(strings.TrimSpace(q.Get("from"))); err == nil {
		f.From = &d
	}
	if d, err := domain.ParseDate(strings.TrimSpace(q.Get("to"))); err == nil {
		f.To = &d
	}
	return f.Normalized()
}

func (h *HTTPHandler) listParams(f domain.SalesFilter) store.ListSalesParams {
	params := store.ListSalesParams{}
	if f.Search != "" {
		s := f.Search
		params.SearchQuery = &s
	}
	params.From, params.Until = f.Bounds(h.loc)
	return params
}

// exportQuery repeats the active filter on the export links.
func exportQuery(f domain.SalesFilter) string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.From != nil {
		v.Set("from", f.From.String())
	}
	if f.To != nil {
		v.Set("to", f.To.String())
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func dateString(d *domain.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// --- Sale Handlers ---

func (h *HTTPHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	f := salesFilter(r)

	sales, err := h.saleStore.ListSales(r.Context(), h.listParams(f))
	if err != nil {
		h.serverError(w, r, "ListSales store operation failed", err)
		return
	}

	h.render(w, r, http.StatusOK, "sales_index", "Ventas", salesIndexView{
		Query:       f.Search,
		From:        dateString(f.From),
		To:          dateString(f.To),
		Sales:       sales,
		Totals:      domain.SummarizeSales(sales),
		ExportQuery: exportQuery(f),
	})
}

func (h *HTTPHandler) CreateSaleForm(w http.ResponseWriter, r *http.Request) {
	values := saleFormValues{Quantity: "1"}
	if id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64); err == nil && id > 0 {
		values.ProductID = strconv.FormatInt(id, 10)
	}
	h.renderSaleForm(w, r, http.StatusOK, values, FieldErrors{})
}

func (h *HTTPHandler) renderSaleForm(w http.ResponseWriter, r *http.Request, status int, values saleFormValues, errs FieldErrors) {
	options, err := h.productStore.ListProductOptions(r.Context())
	if err != nil {
		h.serverError(w, r, "ListProductOptions store operation failed", err)
		return
	}
	h.render(w, r, status, "sales_form", "Nueva venta", saleFormView{
		Values:   values,
		Errors:   errs,
		Products: options,
	})
}

// CreateSale validates the whole form before touching stock so every
// problem is reported at once.
func (h *HTTPHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.badRequest(w, r, "Formulario inválido.")
		return
	}
	values := saleFormValues{
		ProductID: strings.TrimSpace(r.PostFormValue("ProductId")),
		Quantity:  strings.TrimSpace(r.PostFormValue("Quantity")),
		UnitPrice: strings.TrimSpace(r.PostFormValue("UnitPrice")),
	}
	errs := FieldErrors{}
	ctx := r.Context()

	var product *domain.Product
	productID, err := strconv.ParseInt(values.ProductID, 10, 64)
	if err != nil || productID <= 0 {
		errs.Add("ProductId", msgSaleProductNotFound)
	} else if product, err = h.productStore.GetProductByID(ctx, productID); err != nil {
		if !errors.Is(err, store.ErrProductNotFound) {
			h.serverError(w, r, "GetProductByID store operation failed", err, zap.Int64("product_id", productID))
			return
		}
		product = nil
		errs.Add("ProductId", msgSaleProductNotFound)
	}

	quantity, problem := parseInt(values.Quantity)
	if problem != "" || quantity <= 0 {
		errs.Add("Quantity", msgSaleQuantity)
	}

	var unitPrice decimal.Decimal
	switch {
	case values.UnitPrice == "" && product != nil:
		unitPrice = product.Price
	case values.UnitPrice == "":
		// reported against the product instead
	default:
		if unitPrice, problem = parseDecimal(values.UnitPrice); problem != "" || unitPrice.IsNegative() {
			errs.Add("UnitPrice", msgSalePrice)
		}
	}

	if product != nil && quantity > 0 && quantity > product.Stock {
		errs.Add("Quantity", fmt.Sprintf(msgSaleStock, product.Stock))
	}

	if errs.Any() {
		h.renderSaleForm(w, r, http.StatusUnprocessableEntity, values, errs)
		return
	}

	sale, err := h.saleStore.CreateSale(ctx, domain.SaleInput{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			// stock moved between the read above and the conditional update
			errs.Add("Quantity", h.stockMessage(r, product.ID))
		case errors.Is(err, store.ErrProductNotFound):
			errs.Add("ProductId", msgSaleProductNotFound)
		default:
			h.serverError(w, r, "CreateSale store operation failed", err, zap.Int64("product_id", product.ID))
			return
		}
		h.renderSaleForm(w, r, http.StatusUnprocessableEntity, values, errs)
		return
	}

	h.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity))
	h.flash(w, r, auth.FlashOK, fmt.Sprintf("Venta registrada: %d x '%s'.", sale.Quantity, sale.DisplayName()))
	h.redirect(w, r, "/sales")
}

// stockMessage rereads the stock for the insufficient-stock message.
func (h *HTTPHandler) stockMessage(r *http.Request, productID int64) string {
	p, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		return fmt.Sprintf(msgSaleStock, 0)
	}
	return fmt.Sprintf(msgSaleStock, p.Stock)
}

// SellOne sells a single unit at the listed price and returns to the catalog.
func (h *HTTPHandler) SellOne(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	if product.Stock <= 0 {
		h.flash(w, r, auth.FlashError, fmt.Sprintf("No hay stock de '%s'.", product.Name))
		h.redirect(w, r, "/products")
		return
	}

	sale, err := h.saleStore.CreateSale(r.Context(), domain.SaleInput{
		ProductID: product.ID,
		Quantity:  1,
		UnitPrice: product.Price,
	})
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		h.flash(w, r, auth.FlashError, fmt.Sprintf("No hay stock de '%s'.", product.Name))
	case errors.Is(err, store.ErrProductNotFound):
		h.notFound(w, r)
		return
	case err != nil:
		h.serverError(w, r, "SellOne store operation failed", err, zap.Int64("product_id", product.ID))
		return
	default:
		h.logger.Info("Sold one unit", zap.Int64("sale_id", sale.ID), zap.Int64("product_id", product.ID))
		h.flash(w, r, auth.FlashOK, fmt.Sprintf("Vendiste 1 unidad de '%s'.", product.Name))
	}
	h.redirect(w, r, "/products")
}

// --- Exports ---

func (h *HTTPHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", report.CSVContentType, report.WriteCSV)
}

func (h *HTTPHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", report.XLSXContentType, report.WriteXLSX)
}

// export runs the list query with the same filter and streams the encoded file.
func (h *HTTPHandler) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(w io.Writer, lines []report.Line) error) {
	f := salesFilter(r)
	sales, err := h.saleStore.ListSales(r.Context(), h.listParams(f))
	if err != nil {
		h.serverError(w, r, "Export store operation failed", err, zap.String("format", ext))
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, report.ProjectSales(sales, h.loc)); err != nil {
		h.serverError(w, r, "Failed to encode export", err, zap.String("format", ext))
		return
	}

	name := report.FileName(h.now().In(h.loc), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write export", zap.Error(err))
	}
	h.logger.Info("Sales exported", zap.String("format", ext), zap.Int("rows", len(sales)))
}
