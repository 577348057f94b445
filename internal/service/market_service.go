// Package service implements the application services sitting between the
// HTTP/feed layers and the stores: market reads with cache-aside, and the
// settlement workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/engine"
)

// MarketService handles market reads, display-state classification, and
// payout views.
type MarketService struct {
	markets      domain.MarketStore
	participants domain.ParticipantStore
	cache        domain.MarketCache
	scores       domain.MatchCache
	payouts      domain.PayoutCache
	calc         *engine.Calculator
	payoutTTL    time.Duration
	logger       *slog.Logger
}

// NewMarketService creates a MarketService. The caches may be nil, which
// turns every read into a store read and disables payout memoization.
func NewMarketService(
	markets domain.MarketStore,
	participants domain.ParticipantStore,
	cache domain.MarketCache,
	scores domain.MatchCache,
	payouts domain.PayoutCache,
	calc *engine.Calculator,
	payoutTTL time.Duration,
	logger *slog.Logger,
) *MarketService {
	if payoutTTL <= 0 {
		payoutTTL = 15 * time.Second
	}
	return &MarketService{
		markets:      markets,
		participants: participants,
		cache:        cache,
		scores:       scores,
		payouts:      payouts,
		calc:         calc,
		payoutTTL:    payoutTTL,
		logger:       logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return m, nil
}

// ListMarkets returns markets from the persistent store, optionally filtered
// by status. An empty status returns all markets.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	markets, err := s.markets.List(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the persistent store.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// MarketState classifies the market into its display state from the
// perspective of the optional viewer wallet.
func (s *MarketService) MarketState(ctx context.Context, id, viewer string) (domain.DisplayState, error) {
	market, participant, match, err := s.assemble(ctx, id, viewer)
	if err != nil {
		return 0, err
	}
	return engine.Classify(market, participant, viewer, match), nil
}

// Payout computes the payout view for the optional viewer wallet, memoizing
// results per (market, viewer) for a short TTL. Computation failures degrade
// to a fallback result rather than an error; only lookup failures error.
func (s *MarketService) Payout(ctx context.Context, id, viewer string) (domain.PayoutResult, error) {
	if s.payouts != nil {
		if res, err := s.payouts.Get(ctx, id, viewer); err == nil {
			return res, nil
		}
	}

	market, participant, match, err := s.assemble(ctx, id, viewer)
	if err != nil {
		return domain.PayoutResult{}, err
	}

	res, engErr := s.calc.CalculatePayoutSafe(market, participant, viewer, match)
	if engErr != nil {
		s.logger.WarnContext(ctx, "payout degraded to fallback",
			slog.String("market_id", id),
			slog.String("kind", string(engErr.Kind)),
			slog.String("error", engErr.Message),
		)
	}

	if s.payouts != nil {
		if cacheErr := s.payouts.Set(ctx, id, viewer, res, s.payoutTTL); cacheErr != nil {
			s.logger.WarnContext(ctx, "payout cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return res, nil
}

// assemble gathers the classifier inputs: the market snapshot, the viewer's
// participant record (nil when absent), and the latest score snapshot for the
// market's match (nil when the feed has not reported it).
func (s *MarketService) assemble(ctx context.Context, id, viewer string) (domain.MarketSnapshot, *domain.ParticipantSnapshot, *domain.MatchSnapshot, error) {
	market, err := s.GetMarket(ctx, id)
	if err != nil {
		return domain.MarketSnapshot{}, nil, nil, err
	}

	var participant *domain.ParticipantSnapshot
	if viewer != "" {
		p, err := s.participants.Get(ctx, id, viewer)
		switch {
		case err == nil:
			participant = &p
		case errors.Is(err, domain.ErrNotFound):
			// Viewer has not joined.
		default:
			return domain.MarketSnapshot{}, nil, nil, fmt.Errorf("market_service: get participant: %w", err)
		}
	}

	var match *domain.MatchSnapshot
	if s.scores != nil && market.MatchID != "" {
		m, err := s.scores.Get(ctx, market.MatchID)
		switch {
		case err == nil:
			match = &m
		case errors.Is(err, domain.ErrNotFound):
			// No score seen yet; the classifier treats this as "not finished".
		default:
			s.logger.WarnContext(ctx, "score lookup failed",
				slog.String("match_id", market.MatchID),
				slog.String("error", err.Error()),
			)
		}
	}

	return market, participant, match, nil
}
