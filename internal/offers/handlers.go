package offers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mercadito/internal/common"
)

// Handler exposes offer endpoints.
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

// Routes mounts the offer endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/ofertas.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.Success(w, http.StatusOK, offers)
}

// Create handles POST /api/ofertas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	offer, err := h.service.Create(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.SuccessMessage(w, http.StatusCreated, "Oferta creada correctamente", offer)
}

// Delete handles DELETE /api/ofertas/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.SuccessMessage(w, http.StatusOK, "Oferta eliminada correctamente", nil)
}
