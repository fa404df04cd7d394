package api

import (
	"context"
	"net/http"

	"github.com/okian/cinematch/pkg/logger"
)

// TitlesDependencies defines the interface for listing titles.
type TitlesDependencies interface {
	Titles(ctx context.Context) ([]string, error)
}

// TitlesHandler handles title listing requests.
type TitlesHandler struct {
	deps TitlesDependencies
	log  logger.Logger
}

// NewTitlesHandler creates a new titles handler.
func NewTitlesHandler(deps TitlesDependencies, log logger.Logger) *TitlesHandler {
	return &TitlesHandler{deps: deps, log: log}
}

type titlesResponse struct {
	Titles []string `json:"titles"`
}

// HandleGetTitles handles GET /api/titles requests.
func (h *TitlesHandler) HandleGetTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.deps.Titles(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.log, Wrap("list titles", err))
		return
	}
	writeJSON(w, http.StatusOK, titlesResponse{Titles: titles})
}
