package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digi-assistant/digi/backend/internal/model/persona"
	"github.com/digi-assistant/digi/backend/pkg/utils"
)

// Handler serves the public part of the assistant persona.
type Handler struct {
	persona persona.Persona
}

// New creates the persona handler.
func New(p persona.Persona) *Handler {
	return &Handler{persona: p}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handlePersona)
}

// handlePersona returns the display name and greeting. The prompt fields
// stay server side.
func (h *Handler) handlePersona(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.persona)
}
