package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sportpools/matchpool/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	GetMarket(ctx context.Context, id string) (domain.MarketSnapshot, error)
	ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.MarketSnapshot, error)
	Count(ctx context.Context) (int64, error)
	MarketState(ctx context.Context, id, viewer string) (domain.DisplayState, error)
	Payout(ctx context.Context, id, viewer string) (domain.PayoutResult, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.MarketSnapshot `json:"markets"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

// ListMarkets returns markets with pagination, optionally filtered by status.
// GET /api/markets?status=open&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var status domain.MarketStatus
	if v := r.URL.Query().Get("status"); v != "" {
		status = domain.MarketStatus(v)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown market status")
			return
		}
	}

	markets, err := h.markets.ListMarkets(r.Context(), status, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// GetState returns the display state of a market from the perspective of the
// optional viewer wallet.
// GET /api/markets/{id}/state?viewer=<wallet>
func (h *MarketHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	state, err := h.markets.MarketState(r.Context(), id, viewerParam(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: market state failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute market state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"state":     state.String(),
	})
}

// GetPayout returns the payout view of a market for the optional viewer
// wallet. The service never fails on computation problems: degraded results
// carry kind "none" with an error severity, so this endpoint only errors on
// lookup failures.
// GET /api/markets/{id}/payout?viewer=<wallet>
func (h *MarketHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	res, err := h.markets.Payout(r.Context(), id, viewerParam(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: payout failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute payout")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
