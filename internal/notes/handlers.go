package notes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mercadito/internal/common"
)

// Handler exposes note endpoints.
type Handler struct {
	service *Service
	debug   bool
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// Routes mounts the note endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.Success(w, http.StatusOK, notes)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	note, err := h.service.Create(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.Success(w, http.StatusCreated, map[string]int64{"id": note.ID})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(r, "id")
	if err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		common.WriteError(w, r, err, h.debug)
		return
	}
	common.SuccessMessage(w, http.StatusOK, "Nota eliminada correctamente", nil)
}
