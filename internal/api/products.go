package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-sales-service/internal/auth"
	"inventory-sales-service/internal/domain"
	"inventory-sales-service/internal/store"
	"inventory-sales-service/internal/uploads"
)

// multipartOverhead is allowed on top of the image limit for the other form fields.
const multipartOverhead = 1 << 20

var errBodyTooLarge = errors.New("api: request body too large")

// ProductInput is a validated product form.
type ProductInput struct {
	Name        string          `form:"Name" validate:"required,max=120"`
	Description string          `form:"Description" validate:"max=500"`
	Cost        decimal.Decimal `form:"Cost" validate:"gte=0"`
	Price       decimal.Decimal `form:"Price" validate:"gte=0"`
	Stock       int             `form:"Stock" validate:"gte=0"`
	ImageURL    string          `form:"ImageUrl" validate:"omitempty,url,max=2048"`
}

// productFormValues are the submitted strings, echoed back on a failed submit.
type productFormValues struct {
	Name        string
	Description string
	Cost        string
	Price       string
	Stock       string
	ImageURL    string
}

func valuesFromProduct(p *domain.Product) productFormValues {
	v := productFormValues{
		Name:     p.Name,
		Cost:     p.Cost.StringFixed(2),
		Price:    p.Price.StringFixed(2),
		Stock:    strconv.Itoa(p.Stock),
		ImageURL: p.Image.URL(),
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	return v
}

type productFormView struct {
	Action string
	IsEdit bool
	ID     int64
	Values productFormValues
	Errors FieldErrors
	Image  domain.Image
}

type productsIndexView struct {
	Query    string
	Products []domain.Product
	Totals   domain.ProductTotals
}

// uploadedImage is the optional file part of a product form.
type uploadedImage struct {
	header  *multipart.FileHeader
	present bool
}

// parseProductForm reads and validates the form, accumulating every problem.
func (h *HTTPHandler) parseProductForm(w http.ResponseWriter, r *http.Request) (ProductInput, productFormValues, uploadedImage, FieldErrors, error) {
	errs := FieldErrors{}
	if h.maxUploadBytes > 0 {
		limit := h.maxUploadBytes + multipartOverhead
		if r.ContentLength > limit {
			return ProductInput{}, productFormValues{}, uploadedImage{}, nil, errBodyTooLarge
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ProductInput{}, productFormValues{}, uploadedImage{}, nil, errBodyTooLarge
		}
		return ProductInput{}, productFormValues{}, uploadedImage{}, nil, err
	}

	values := productFormValues{
		Name:        strings.TrimSpace(r.FormValue("Name")),
		Description: strings.TrimSpace(r.FormValue("Description")),
		Cost:        r.FormValue("Cost"),
		Price:       r.FormValue("Price"),
		Stock:       r.FormValue("Stock"),
		ImageURL:    strings.TrimSpace(r.FormValue("ImageUrl")),
	}

	input := ProductInput{Name: values.Name, Description: values.Description, ImageURL: values.ImageURL}
	var problem string
	if input.Cost, problem = parseDecimal(values.Cost); problem != "" {
		errs.Add("Cost", problem)
	}
	if input.Price, problem = parseDecimal(values.Price); problem != "" {
		errs.Add("Price", problem)
	}
	if input.Stock, problem = parseInt(values.Stock); problem != "" {
		errs.Add("Stock", problem)
	}
	if err := collectValidation(h.validate, input, errs); err != nil {
		return input, values, uploadedImage{}, nil, err
	}

	var img uploadedImage
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["ImageFile"]; len(files) > 0 && files[0].Size > 0 {
			fh := files[0]
			if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
				errs.Add("ImageFile", msgImageTooLarge)
			} else {
				img = uploadedImage{header: fh, present: true}
			}
		}
	}
	return input, values, img, errs, nil
}

// saveImage stores img and returns the variant to persist. A false result
// means the response has been written.
func (h *HTTPHandler) saveImage(w http.ResponseWriter, r *http.Request, img uploadedImage, errs FieldErrors) (domain.Image, bool) {
	if h.images == nil {
		h.serverError(w, r, "Image upload received but no image store is configured", errors.New("api: nil ImageSaver"))
		return domain.Image{}, false
	}
	f, err := img.header.Open()
	if err != nil {
		h.serverError(w, r, "Failed to open uploaded image", err)
		return domain.Image{}, false
	}
	defer f.Close()

	path, err := h.images.Save(img.header.Filename, f)
	switch {
	case err == nil:
		return domain.StoredImage(path), true
	case errors.Is(err, uploads.ErrTooLarge):
		errs.Add("ImageFile", msgImageTooLarge)
		return domain.Image{}, true
	case errors.Is(err, uploads.ErrEmpty):
		return domain.Image{}, true
	default:
		h.serverError(w, r, "Failed to store uploaded image", err, zap.String("file", img.header.Filename))
		return domain.Image{}, false
	}
}

// formError answers a product form that could not be read at all.
func (h *HTTPHandler) formError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		h.renderError(w, r, http.StatusRequestEntityTooLarge, msgImageTooLarge)
		return
	}
	h.badRequest(w, r, "Formulario inválido.")
}

func descriptionPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- Product Handlers ---

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	params := store.ListProductsParams{}
	if q != "" {
		params.SearchQuery = &q
	}

	products, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		h.serverError(w, r, "ListProducts store operation failed", err)
		return
	}

	h.render(w, r, http.StatusOK, "products_index", "Productos", productsIndexView{
		Query:    q,
		Products: products,
		Totals:   domain.SummarizeProducts(products),
	})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "products_details", product.Name, product)
}

func (h *HTTPHandler) CreateProductForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "products_form", "Nuevo producto", productFormView{
		Action: "/products/create",
		Values: productFormValues{Cost: "0.00", Price: "0.00", Stock: "0"},
		Errors: FieldErrors{},
	})
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, values, img, errs, err := h.parseProductForm(w, r)
	if err != nil {
		h.formError(w, r, err)
		return
	}

	view := productFormView{Action: "/products/create", Values: values, Errors: errs}
	if errs.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, "products_form", "Nuevo producto", view)
		return
	}

	image := domain.URLImage(input.ImageURL)
	if img.present {
		stored, ok := h.saveImage(w, r, img, errs)
		if !ok {
			return
		}
		if errs.Any() {
			h.render(w, r, http.StatusUnprocessableEntity, "products_form", "Nuevo producto", view)
			return
		}
		if !stored.IsZero() {
			image = stored
		}
	}

	created, err := h.productStore.CreateProduct(r.Context(), &domain.Product{
		Name:        input.Name,
		Description: descriptionPtr(input.Description),
		Cost:        input.Cost,
		Price:       input.Price,
		Stock:       input.Stock,
		Image:       image,
	})
	if err != nil {
		h.serverError(w, r, "CreateProduct store operation failed", err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", created.ID), zap.Stringer("image", created.Image.Kind))
	h.flash(w, r, auth.FlashOK, fmt.Sprintf("Producto '%s' creado.", created.Name))
	h.redirect(w, r, "/products")
}

func (h *HTTPHandler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "products_form", "Editar producto", productFormView{
		Action: fmt.Sprintf("/products/%d/edit", product.ID),
		IsEdit: true,
		ID:     product.ID,
		Values: valuesFromProduct(product),
		Errors: FieldErrors{},
		Image:  product.Image,
	})
}

func (h *HTTPHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r, "productId")
	if !ok {
		h.badRequest(w, r, "Identificador de producto inválido.")
		return
	}

	input, values, img, errs, err := h.parseProductForm(w, r)
	if err != nil {
		h.formError(w, r, err)
		return
	}
	if formID := r.FormValue("Id"); formID != "" && formID != strconv.FormatInt(productID, 10) {
		h.badRequest(w, r, "El identificador del formulario no coincide.")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, "GetProductByID store operation failed", err, zap.Int64("product_id", productID))
		return
	}

	view := productFormView{
		Action: fmt.Sprintf("/products/%d/edit", productID),
		IsEdit: true,
		ID:     productID,
		Values: values,
		Errors: errs,
		Image:  product.Image,
	}
	if errs.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, "products_form", "Editar producto", view)
		return
	}

	product.Name = input.Name
	product.Description = descriptionPtr(input.Description)
	product.Cost = input.Cost
	product.Price = input.Price
	product.Stock = input.Stock

	switch {
	case r.FormValue("removeImage") == "true":
		product.Image = domain.NoImage()
	case img.present:
		stored, ok := h.saveImage(w, r, img, errs)
		if !ok {
			return
		}
		if errs.Any() {
			h.render(w, r, http.StatusUnprocessableEntity, "products_form", "Editar producto", view)
			return
		}
		if !stored.IsZero() {
			product.Image = stored
		}
	case input.ImageURL != "":
		product.Image = domain.URLImage(input.ImageURL)
	}

	updated, err := h.productStore.UpdateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, "UpdateProduct store operation failed", err, zap.Int64("product_id", productID))
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", updated.ID), zap.Stringer("image", updated.Image.Kind))
	h.flash(w, r, auth.FlashOK, fmt.Sprintf("Producto '%s' actualizado.", updated.Name))
	h.redirect(w, r, "/products")
}

func (h *HTTPHandler) DeleteProductForm(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "products_delete", "Eliminar producto", product)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r, "productId")
	if !ok {
		h.badRequest(w, r, "Identificador de producto inválido.")
		return
	}

	if err := h.productStore.DeleteProduct(r.Context(), productID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, "DeleteProduct store operation failed", err, zap.Int64("product_id", productID))
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", productID))
	h.flash(w, r, auth.FlashOK, "Producto eliminado.")
	h.redirect(w, r, "/products")
}

// loadProduct resolves {productId}, writing 400/404/500 itself when it fails.
func (h *HTTPHandler) loadProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	productID, ok := parseID(r, "productId")
	if !ok {
		h.badRequest(w, r, "Identificador de producto inválido.")
		return nil, false
	}
	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.notFound(w, r)
			return nil, false
		}
		h.serverError(w, r, "GetProductByID store operation failed", err, zap.Int64("product_id", productID))
		return nil, false
	}
	return product, true
}
