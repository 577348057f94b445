package handler

import (
	"log/slog"
	"net/http"

	"github.com/sportpools/matchpool/internal/engine"
)

// ErrorsHandler exposes the engine's in-memory error history for dashboards
// and operator debugging.
type ErrorsHandler struct {
	history *engine.ErrorHistory
	logger  *slog.Logger
}

// NewErrorsHandler creates an ErrorsHandler backed by the given history
// buffer.
func NewErrorsHandler(history *engine.ErrorHistory, logger *slog.Logger) *ErrorsHandler {
	return &ErrorsHandler{
		history: history,
		logger:  logger,
	}
}

// ListRecent returns the recorded engine errors, oldest first.
// GET /api/errors/recent
func (h *ErrorsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	errs := h.history.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": errs,
		"count":  len(errs),
	})
}
