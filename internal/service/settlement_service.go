package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/engine"
	"github.com/sportpools/matchpool/internal/notify"
)

const (
	// SettlementsChannel is the signal bus channel announcing settlements.
	SettlementsChannel = "settlements"

	// settlementsStream is the durable stream settlements are appended to so
	// consumers that were offline can catch up.
	settlementsStream = "stream:settlements"

	// settleLockTTL bounds how long a crashed worker can block a market.
	settleLockTTL = 30 * time.Second
)

// SettlementService runs the settlement workflow: lock, validate, compute the
// fee split, persist the record, mark the market resolved, invalidate caches,
// publish, audit, and notify.
type SettlementService struct {
	markets      domain.MarketStore
	participants domain.ParticipantStore
	settlements  domain.SettlementStore
	audit        domain.AuditStore
	cache        domain.MarketCache
	payouts      domain.PayoutCache
	scores       domain.MatchCache
	locks        domain.LockManager
	bus          domain.SignalBus
	notifier     *notify.Notifier
	policy       engine.FeePolicy
	advisor      *engine.RecoveryAdvisor
	logger       *slog.Logger
}

// SettlementDeps bundles the dependencies of a SettlementService. The caches,
// lock manager, bus, notifier, and advisor may be nil; the corresponding step
// is skipped.
type SettlementDeps struct {
	Markets      domain.MarketStore
	Participants domain.ParticipantStore
	Settlements  domain.SettlementStore
	Audit        domain.AuditStore
	Cache        domain.MarketCache
	Payouts      domain.PayoutCache
	Scores       domain.MatchCache
	Locks        domain.LockManager
	Bus          domain.SignalBus
	Notifier     *notify.Notifier
	Advisor      *engine.RecoveryAdvisor
}

// NewSettlementService creates a SettlementService with the given policy and
// dependencies. The policy must already be validated.
func NewSettlementService(policy engine.FeePolicy, deps SettlementDeps, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		markets:      deps.Markets,
		participants: deps.Participants,
		settlements:  deps.Settlements,
		audit:        deps.Audit,
		cache:        deps.Cache,
		payouts:      deps.Payouts,
		scores:       deps.Scores,
		locks:        deps.Locks,
		bus:          deps.Bus,
		notifier:     deps.Notifier,
		policy:       policy,
		advisor:      deps.Advisor,
		logger:       logger.With(slog.String("component", "settlement_service")),
	}
}

// SettleMatch settles every market attached to a finished match. It is the
// entry point for the result feeder. Markets that are already settled are
// skipped; the first hard failure aborts and is returned.
func (s *SettlementService) SettleMatch(ctx context.Context, match domain.MatchSnapshot) error {
	outcome, ok := match.Winner()
	if !ok {
		return fmt.Errorf("settlement: match %s: %w", match.MatchID, domain.ErrNotResolvable)
	}

	markets, err := s.markets.GetByMatchID(ctx, match.MatchID)
	if err != nil {
		return fmt.Errorf("settlement: markets for match %s: %w", match.MatchID, err)
	}
	if len(markets) == 0 {
		return nil
	}

	for _, m := range markets {
		if _, err := s.settle(ctx, m, outcome); err != nil {
			if errors.Is(err, domain.ErrAlreadySettled) {
				continue
			}
			s.recordFailure(ctx, m.ID, err)
			return err
		}
		s.advisorReset(m.ID)
	}
	return nil
}

// SettleMarket settles a single market by ID, deriving the outcome from the
// latest cached score via the market store's match reference. It is the entry
// point for the manual settle endpoint. Markets whose match has not finished
// return domain.ErrNotResolvable.
func (s *SettlementService) SettleMarket(ctx context.Context, marketID string) (domain.SettlementRecord, error) {
	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SettlementRecord{}, domain.ErrNotFound
		}
		return domain.SettlementRecord{}, fmt.Errorf("settlement: get market %q: %w", marketID, err)
	}

	outcome, err := s.resolveOutcome(ctx, market)
	if err != nil {
		return domain.SettlementRecord{}, err
	}

	rec, err := s.settle(ctx, market, outcome)
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadySettled) {
			s.recordFailure(ctx, marketID, err)
		}
		return domain.SettlementRecord{}, err
	}
	s.advisorReset(marketID)
	return rec, nil
}

// ListSettlements returns recent settlement records, newest first.
func (s *SettlementService) ListSettlements(ctx context.Context, opts domain.ListOpts) ([]domain.SettlementRecord, error) {
	recs, err := s.settlements.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement: list recent: %w", err)
	}
	return recs, nil
}

// resolveOutcome determines the winning outcome for a market: the stored
// outcome when the market is already resolved, otherwise the winner derived
// from the match score.
func (s *SettlementService) resolveOutcome(ctx context.Context, market domain.MarketSnapshot) (domain.Outcome, error) {
	if market.HasOutcome() {
		return market.Outcome, nil
	}

	match, err := s.scoresFor(ctx, market)
	if err != nil {
		return "", err
	}
	outcome, ok := match.Winner()
	if !ok {
		return "", fmt.Errorf("settlement: market %s: %w", market.ID, domain.ErrNotResolvable)
	}
	return outcome, nil
}

func (s *SettlementService) scoresFor(ctx context.Context, market domain.MarketSnapshot) (domain.MatchSnapshot, error) {
	if s.scores == nil || market.MatchID == "" {
		return domain.MatchSnapshot{}, fmt.Errorf("settlement: market %s: %w", market.ID, domain.ErrNotResolvable)
	}
	match, err := s.scores.Get(ctx, market.MatchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.MatchSnapshot{}, fmt.Errorf("settlement: no score for match %s: %w", market.MatchID, domain.ErrNotResolvable)
		}
		return domain.MatchSnapshot{}, fmt.Errorf("settlement: score for match %s: %w", market.MatchID, err)
	}
	return match, nil
}

// settle performs the settlement of one market under a per-market lock. The
// persisted fee split uses exactly the integer arithmetic the payout engine
// exposes, so displayed and paid amounts cannot diverge.
func (s *SettlementService) settle(ctx context.Context, market domain.MarketSnapshot, outcome domain.Outcome) (domain.SettlementRecord, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "settle:"+market.ID, settleLockTTL)
		if err != nil {
			return domain.SettlementRecord{}, err
		}
		defer unlock()
	}

	if _, err := s.settlements.GetByMarket(ctx, market.ID); err == nil {
		return domain.SettlementRecord{}, domain.ErrAlreadySettled
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.SettlementRecord{}, fmt.Errorf("settlement: check existing for %s: %w", market.ID, err)
	}

	if err := engine.ValidateSnapshot(market); err != nil {
		return domain.SettlementRecord{}, fmt.Errorf("settlement: market %s: %w", market.ID, err)
	}

	winnerCount, err := s.winnerCount(ctx, market, outcome)
	if err != nil {
		return domain.SettlementRecord{}, err
	}

	split, perWinner, remainder, err := s.policy.SettleSplit(market.TotalPool, winnerCount)
	if err != nil {
		return domain.SettlementRecord{}, fmt.Errorf("settlement: split for %s: %w", market.ID, err)
	}

	// Conservation check. Both identities hold by construction; a violation
	// means memory corruption or a broken build and must stop settlement.
	if split.CreatorFee+split.PlatformFee+split.ParticipantPool != split.TotalPool {
		return domain.SettlementRecord{}, fmt.Errorf("settlement: fee split does not conserve pool for %s", market.ID)
	}
	if winnerCount > 0 && perWinner*winnerCount+remainder != split.ParticipantPool {
		return domain.SettlementRecord{}, fmt.Errorf("settlement: winner shares do not conserve participant pool for %s", market.ID)
	}

	rec := domain.SettlementRecord{
		ID:              uuid.NewString(),
		MarketID:        market.ID,
		MatchID:         market.MatchID,
		Outcome:         outcome,
		TotalPool:       split.TotalPool,
		CreatorFee:      split.CreatorFee,
		PlatformFee:     split.PlatformFee,
		ParticipantPool: split.ParticipantPool,
		WinnerCount:     winnerCount,
		PerWinner:       perWinner,
		Remainder:       remainder,
		SettledAt:       time.Now().UTC(),
	}

	if err := s.settlements.Insert(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return domain.SettlementRecord{}, domain.ErrAlreadySettled
		}
		return domain.SettlementRecord{}, fmt.Errorf("settlement: insert record for %s: %w", market.ID, err)
	}

	if err := s.markets.SetResolved(ctx, market.ID, outcome); err != nil {
		// The record is in; a failed status flip is repairable, not fatal.
		s.logger.ErrorContext(ctx, "mark resolved failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidate(ctx, market.ID)
	s.announce(ctx, rec)

	s.logger.InfoContext(ctx, "market settled",
		slog.String("market_id", market.ID),
		slog.String("match_id", market.MatchID),
		slog.String("outcome", string(outcome)),
		slog.Uint64("total_pool", rec.TotalPool),
		slog.Uint64("winner_count", rec.WinnerCount),
		slog.Uint64("per_winner", rec.PerWinner),
	)

	return rec, nil
}

// winnerCount counts participants who predicted the winning outcome and have
// not withdrawn. The store is authoritative; the snapshot counters are only
// used to flag drift.
func (s *SettlementService) winnerCount(ctx context.Context, market domain.MarketSnapshot, outcome domain.Outcome) (uint64, error) {
	winners, err := s.participants.ListByOutcome(ctx, market.ID, outcome)
	if err != nil {
		return 0, fmt.Errorf("settlement: winners for %s: %w", market.ID, err)
	}
	count := uint64(len(winners))

	if snap := market.PredictionCount(outcome); snap != count {
		s.logger.WarnContext(ctx, "winner count drift between snapshot and store",
			slog.String("market_id", market.ID),
			slog.Uint64("snapshot", snap),
			slog.Uint64("store", count),
		)
	}
	return count, nil
}

func (s *SettlementService) invalidate(ctx context.Context, marketID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, marketID); err != nil {
			s.logger.WarnContext(ctx, "market cache invalidate failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.payouts != nil {
		if err := s.payouts.InvalidateMarket(ctx, marketID); err != nil {
			s.logger.WarnContext(ctx, "payout cache invalidate failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// announce publishes the settlement on the bus, appends it to the durable
// stream, writes the audit entry, and notifies subscribers. All steps are
// best-effort; the settlement record is already durable.
func (s *SettlementService) announce(ctx context.Context, rec domain.SettlementRecord) {
	payload, err := json.Marshal(rec)
	if err == nil && s.bus != nil {
		if pubErr := s.bus.Publish(ctx, SettlementsChannel, payload); pubErr != nil {
			s.logger.WarnContext(ctx, "publish settlement failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", pubErr.Error()),
			)
		}
		if appErr := s.bus.StreamAppend(ctx, settlementsStream, payload); appErr != nil {
			s.logger.WarnContext(ctx, "stream append failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", appErr.Error()),
			)
		}
	}

	if s.audit != nil {
		detail := map[string]any{
			"market_id":    rec.MarketID,
			"match_id":     rec.MatchID,
			"outcome":      string(rec.Outcome),
			"total_pool":   rec.TotalPool,
			"winner_count": rec.WinnerCount,
			"per_winner":   rec.PerWinner,
			"remainder":    rec.Remainder,
		}
		if err := s.audit.Log(ctx, "settlement.completed", detail); err != nil {
			s.logger.WarnContext(ctx, "audit log failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		title, message := notify.SettledMessage(rec)
		if err := s.notifier.Notify(ctx, notify.EventMarketSettled, title, message); err != nil {
			s.logger.WarnContext(ctx, "settlement notification failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// recordFailure feeds the failure into the recovery advisor and notifies
// operators when the advisor says retries are exhausted.
func (s *SettlementService) recordFailure(ctx context.Context, marketID string, cause error) {
	if s.advisor == nil {
		return
	}
	engErr := s.advisor.Advise("settle:"+marketID, cause.Error())
	s.logger.ErrorContext(ctx, "settlement failed",
		slog.String("market_id", marketID),
		slog.String("kind", string(engErr.Kind)),
		slog.String("recovery", string(engErr.Recovery)),
		slog.String("error", cause.Error()),
	)

	if s.notifier != nil && engErr.Recovery != engine.RecoveryRetryAuto {
		title, message := notify.FailedMessage(marketID, cause)
		if err := s.notifier.Notify(ctx, notify.EventSettlementFailed, title, message); err != nil {
			s.logger.WarnContext(ctx, "failure notification failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *SettlementService) advisorReset(marketID string) {
	if s.advisor != nil {
		s.advisor.Reset("settle:" + marketID)
	}
}
