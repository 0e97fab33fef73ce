package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"inventory-sales-service/internal/auth"
	"inventory-sales-service/internal/store"
)

// ImageSaver stores an uploaded image and returns the path it is served from.
type ImageSaver interface {
	Save(originalName string, r io.Reader) (string, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of HTTPHandler.
type Deps struct {
	Products store.ProductStorer
	Sales    store.SaleStorer
	Verifier auth.Verifier
	Sessions *auth.SessionManager
	Images   ImageSaver
	DB       Pinger // optional, used by /healthz

	UploadsDir     string // served under /uploads/
	MaxUploadBytes int64
	Location       *time.Location
	Logger         *zap.Logger
	Now            func() time.Time
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	productStore store.ProductStorer
	saleStore    store.SaleStorer
	verifier     auth.Verifier
	sessions     *auth.SessionManager
	images       ImageSaver
	db           Pinger

	uploadsDir     string
	maxUploadBytes int64
	loc            *time.Location
	now            func() time.Time

	validate *validator.Validate
	views    map[string]*template.Template
	logger   *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(d Deps) (*HTTPHandler, error) {
	if d.Products == nil || d.Sales == nil || d.Verifier == nil || d.Sessions == nil {
		return nil, errors.New("api: products, sales, verifier and sessions are required")
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	views, err := parseViews(d.Location)
	if err != nil {
		return nil, err
	}

	return &HTTPHandler{
		productStore:   d.Products,
		saleStore:      d.Sales,
		verifier:       d.Verifier,
		sessions:       d.Sessions,
		images:         d.Images,
		db:             d.DB,
		uploadsDir:     d.UploadsDir,
		maxUploadBytes: d.MaxUploadBytes,
		loc:            d.Location,
		now:            d.Now,
		validate:       newValidator(),
		views:          views,
		logger:         d.Logger,
	}, nil
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("Failed to encode JSON response", zap.Error(err))
		}
	}
}

// parseID reads a positive int64 URL parameter.
func parseID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// --- Health ---

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			h.respondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadsHandler serves stored images without directory listings.
func (h *HTTPHandler) uploadsHandler() http.Handler {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadsDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service. Everything except
// health, login and uploaded images requires a session.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	if h.uploadsDir != "" {
		r.Handle("/uploads/*", h.uploadsHandler())
	}

	r.Route("/account", func(r chi.Router) {
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireSession)

		r.Get("/", h.Dashboard)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/create", h.CreateProductForm)
			r.Post("/create", h.CreateProduct)
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Get("/edit", h.EditProductForm)
				r.Post("/edit", h.EditProduct)
				r.Get("/delete", h.DeleteProductForm)
				r.Post("/delete", h.DeleteProduct)
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Get("/create", h.CreateSaleForm)
			r.Post("/create", h.CreateSale)
			r.Post("/sell-one/{productId}", h.SellOne)
			r.Get("/export.csv", h.ExportCSV)
			r.Get("/export.xlsx", h.ExportXLSX)
		})
	})

	r.NotFound(h.notFound)
}
