package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mercadito/internal/common"
)

// Handler exposes tab endpoints.
type Handler struct {
	service *Service
	debug   bool
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	Debug   bool
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, debug: cfg.Debug}
}

// Routes mounts the tab endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Detail)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/compras", h.History)
	r.Post("/{id}/compras", h.AddPurchase)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	common.WriteError(w, r, err, h.debug)
}

// Create handles POST /api/cuentas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusCreated, account)
}

// List handles GET /api/cuentas?q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, accounts)
}

// Detail handles GET /api/cuentas/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, detail)
}

// History handles GET /api/cuentas/{id}/compras.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, history)
}

// AddPurchase handles POST /api/cuentas/{id}/compras.
func (h *Handler) AddPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req PurchaseRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	lines, err := ParseLines(req.Products)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	purchases, err := h.service.AddPurchase(r.Context(), id, lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusCreated, purchases)
}

// Delete handles DELETE /api/cuentas/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
