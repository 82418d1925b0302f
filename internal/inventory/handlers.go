package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mercadito/internal/common"
)

// Handler exposes product endpoints.
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

// Routes mounts the product endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Patch)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	common.WriteError(w, r, err, h.debug)
}

// List handles GET /api/productos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, products)
}

// Get handles GET /api/productos/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, product)
}

// Create handles POST /api/productos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusCreated, product)
}

// Update handles PUT /api/productos/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.SuccessMessage(w, http.StatusOK, "Producto actualizado correctamente", product)
}

// Patch handles PATCH /api/productos/{id}.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body map[string]json.RawMessage
	if err := common.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := ParsePatch(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.service.Patch(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Success(w, http.StatusOK, product)
}

// Delete handles DELETE /api/productos/{id}.
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
	common.SuccessMessage(w, http.StatusOK, "Producto eliminado correctamente", nil)
}
