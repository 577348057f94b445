package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sportpools/matchpool/internal/domain"
)

// SettlementService defines the methods that the settlement handler requires
// from the service layer.
type SettlementService interface {
	SettleMarket(ctx context.Context, marketID string) (domain.SettlementRecord, error)
	ListSettlements(ctx context.Context, opts domain.ListOpts) ([]domain.SettlementRecord, error)
}

// SettlementHandler serves settlement-related HTTP endpoints.
type SettlementHandler struct {
	settlements SettlementService
	logger      *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlements SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		logger:      logger,
	}
}

// listSettlementsResponse wraps the list endpoint output with metadata.
type listSettlementsResponse struct {
	Settlements []domain.SettlementRecord `json:"settlements"`
	Limit       int                       `json:"limit"`
	Offset      int                       `json:"offset"`
}

// SettleMarket runs settlement for a single market. Settlement is idempotent:
// a market that was already settled returns 409 without touching the record.
// POST /api/markets/{id}/settle
func (h *SettlementHandler) SettleMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	rec, err := h.settlements.SettleMarket(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, domain.ErrAlreadySettled):
			writeError(w, http.StatusConflict, "market already settled")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "settlement already in progress")
		case errors.Is(err, domain.ErrNotResolvable):
			writeError(w, http.StatusUnprocessableEntity, "market is not resolvable yet")
		default:
			h.logger.ErrorContext(r.Context(), "handler: settle market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "settlement failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListSettlements returns recent settlement records, newest first.
// GET /api/settlements?limit=50&offset=0
func (h *SettlementHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	recs, err := h.settlements.ListSettlements(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list settlements failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	writeJSON(w, http.StatusOK, listSettlementsResponse{
		Settlements: recs,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}
