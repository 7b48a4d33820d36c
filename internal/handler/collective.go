package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/donorshield/internal/auth"
	"github.com/sakif/donorshield/internal/service"
)

// CollectiveHandler serves collective pages.
type CollectiveHandler struct {
	collectives *service.CollectiveService
	logger      *slog.Logger
}

func NewCollectiveHandler(collectives *service.CollectiveService, logger *slog.Logger) *CollectiveHandler {
	return &CollectiveHandler{collectives: collectives, logger: logger}
}

// HandleGet returns a collective page redacted for the viewer.
//
// HTTP: GET /api/collectives/{slug}
// Auth: optional. Without a token the page is rendered for the public.
func (h *CollectiveHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	viewerID, _ := auth.ViewerIDFromContext(r.Context())

	g, err := h.collectives.Get(r.Context(), slug, viewerID)
	if err != nil {
		h.logger.Warn("collective page failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}
