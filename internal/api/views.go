package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-sales-service/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

const displayTimeLayout = "2006-01-02 15:04"

var pageNames = []string{
	"error",
	"login",
	"dashboard",
	"products_index",
	"products_form",
	"products_details",
	"products_delete",
	"sales_index",
	"sales_form",
}

// page is the model every template receives; Data carries the page-specific view.
type page struct {
	Title     string
	User      *auth.Identity
	Flashes   []auth.Flash
	CSRFField template.HTML
	Data      any
}

type errorView struct {
	Status  int
	Message string
}

// parseViews parses each page together with the shared layout.
func parseViews(loc *time.Location) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"localTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format(displayTimeLayout)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	views := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("api: failed to parse template %s: %w", name, err)
		}
		views[name] = t
	}
	return views, nil
}

// render executes the named page into a buffer first so a template failure
// never leaves a half-written response.
func (h *HTTPHandler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := h.views[name]
	if !ok {
		h.logger.Error("Unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p := page{Title: title, CSRFField: csrf.TemplateField(r), Data: data}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		p.User = &id
	}
	flashes, err := h.sessions.Flashes(w, r)
	if err != nil {
		h.logger.Warn("Failed to read flash messages", zap.Error(err))
	}
	p.Flashes = flashes

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		h.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (h *HTTPHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", http.StatusText(status), errorView{Status: status, Message: message})
}

func (h *HTTPHandler) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "El recurso solicitado no existe.")
}

func (h *HTTPHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	h.renderError(w, r, http.StatusBadRequest, message)
}

// serverError logs err with fields and renders a generic 500 page.
func (h *HTTPHandler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.String("path", r.URL.Path))
	h.logger.Error(msg, fields...)
	h.renderError(w, r, http.StatusInternalServerError, "Ocurrió un error inesperado. Intenta de nuevo.")
}

// flash queues a message for the next page. Failures are logged only.
func (h *HTTPHandler) flash(w http.ResponseWriter, r *http.Request, kind auth.FlashKind, message string) {
	if err := h.sessions.AddFlash(w, r, kind, message); err != nil {
		h.logger.Warn("Failed to store flash message", zap.Error(err))
	}
}
