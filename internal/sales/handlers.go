package sales

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mercadito/internal/common"
)

const maxListLimit = 1000

// Handler exposes sale endpoints.
type Handler struct {
	service *Service
	debug   bool
	write   []func(http.Handler) http.Handler
}

// HandlerConfig configures the Handler dependencies. WriteMiddleware wraps POST /api/ventas only,
// typically with the idempotency guard.
type HandlerConfig struct {
	Service         *Service
	Debug           bool
	WriteMiddleware []func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, debug: cfg.Debug, write: cfg.WriteMiddleware}
}

// Routes mounts the sale endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.With(h.write...).Post("/", h.Create)
	r.Post("/cotizar", h.Quote)
}

// Create handles POST /api/ventas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	in, err := req.Parse()
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	sale, err := h.service.Record(r.Context(), in)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.SuccessMessage(w, http.StatusCreated, "Venta registrada correctamente con ofertas aplicadas", sale)
}

// List handles GET /api/ventas.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 0)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	sales, err := h.service.List(r.Context(), limit)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.Success(w, http.StatusOK, sales)
}

// Quote handles POST /api/ventas/cotizar.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	lines, err := ParseLines(req.Products)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	quote, err := h.service.Quote(r.Context(), lines)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.Success(w, http.StatusOK, quote)
}
