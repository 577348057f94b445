package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/engine"
)

func testPolicy() engine.FeePolicy {
	return engine.FeePolicy{CreatorBps: 200, PlatformBps: 300}
}

// liveMarket builds a consistent live market: 4 participants at 250m lamports
// each, predictions 2 home / 1 draw / 1 away.
func liveMarket(id, matchID string) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ID:               id,
		Creator:          "creator-wallet",
		MatchID:          matchID,
		EntryFee:         250_000_000,
		TotalPool:        1_000_000_000,
		ParticipantCount: 4,
		HomeCount:        2,
		DrawCount:        1,
		AwayCount:        1,
		Status:           domain.MarketLive,
	}
}

func marketParticipants(marketID string) []domain.ParticipantSnapshot {
	return []domain.ParticipantSnapshot{
		{MarketID: marketID, Wallet: "w-1", Prediction: domain.OutcomeHome},
		{MarketID: marketID, Wallet: "w-2", Prediction: domain.OutcomeHome},
		{MarketID: marketID, Wallet: "w-3", Prediction: domain.OutcomeDraw},
		{MarketID: marketID, Wallet: "w-4", Prediction: domain.OutcomeAway},
	}
}

type settleFixture struct {
	svc         *SettlementService
	markets     *memMarkets
	settlements *memSettlements
	audit       *memAudit
	bus         *memBus
	locks       *memLocks
	scores      *memScores
}

func newSettleFixture(t *testing.T, markets ...domain.MarketSnapshot) *settleFixture {
	t.Helper()

	f := &settleFixture{
		markets:     newMemMarkets(markets...),
		settlements: newMemSettlements(),
		audit:       &memAudit{},
		bus:         newMemBus(),
		locks:       &memLocks{},
		scores:      &memScores{},
	}

	participants := &memParticipants{}
	for _, m := range markets {
		participants.entries = append(participants.entries, marketParticipants(m.ID)...)
	}

	f.svc = NewSettlementService(testPolicy(), SettlementDeps{
		Markets:      f.markets,
		Participants: participants,
		Settlements:  f.settlements,
		Audit:        f.audit,
		Scores:       f.scores,
		Locks:        f.locks,
		Bus:          f.bus,
		Advisor:      engine.NewRecoveryAdvisor(3, engine.NewErrorHistory(10)),
	}, slog.New(slog.DiscardHandler))

	return f
}

func TestSettleMarketComputesExactSplit(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(2), AwayScore: i64(1), Finished: true,
	}))

	rec, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.OutcomeHome, rec.Outcome)
	assert.Equal(t, uint64(1_000_000_000), rec.TotalPool)
	assert.Equal(t, uint64(20_000_000), rec.CreatorFee)   // 200 bps
	assert.Equal(t, uint64(30_000_000), rec.PlatformFee)  // 300 bps
	assert.Equal(t, uint64(950_000_000), rec.ParticipantPool)
	assert.Equal(t, uint64(2), rec.WinnerCount)
	assert.Equal(t, uint64(475_000_000), rec.PerWinner)
	assert.Equal(t, uint64(0), rec.Remainder)

	// The market is flipped to resolved with the winning outcome.
	m, err := f.markets.GetByID(context.Background(), "mkt-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketResolved, m.Status)
	assert.Equal(t, domain.OutcomeHome, m.Outcome)

	// The settlement is announced and audited.
	assert.Len(t, f.bus.published[SettlementsChannel], 1)
	assert.Len(t, f.bus.streamed[settlementsStream], 1)
	assert.Equal(t, []string{"settlement.completed"}, f.audit.events)
}

func TestSettleMarketIsIdempotent(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(0), AwayScore: i64(0), Finished: true,
	}))

	_, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	require.NoError(t, err)

	_, err = f.svc.SettleMarket(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	// Only one record and one announcement exist.
	assert.Len(t, f.bus.published[SettlementsChannel], 1)
	assert.Len(t, f.audit.events, 1)
}

func TestSettleMarketNoWinnersKeepsParticipantPool(t *testing.T) {
	m := liveMarket("mkt-1", "match-1")
	m.HomeCount, m.DrawCount, m.AwayCount = 4, 0, 0

	f := newSettleFixture(t)
	require.NoError(t, f.markets.Upsert(context.Background(), m))
	f.svc.participants = &memParticipants{} // nobody predicted away
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(0), AwayScore: i64(3), Finished: true,
	}))

	rec, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeAway, rec.Outcome)
	assert.Equal(t, uint64(0), rec.WinnerCount)
	assert.Equal(t, uint64(0), rec.PerWinner)
	assert.Equal(t, rec.ParticipantPool, rec.Remainder)
}

func TestSettleMarketUnfinishedMatchNotResolvable(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(1), AwayScore: i64(0), Finished: false,
	}))

	_, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrNotResolvable)
}

func TestSettleMarketMissingScoreNotResolvable(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))

	_, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrNotResolvable)
}

func TestSettleMarketNotFound(t *testing.T) {
	f := newSettleFixture(t)

	_, err := f.svc.SettleMarket(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleMarketLockHeld(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(2), AwayScore: i64(1), Finished: true,
	}))

	_, err := f.locks.Acquire(context.Background(), "settle:mkt-1", settleLockTTL)
	require.NoError(t, err)

	_, err = f.svc.SettleMarket(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestSettleMatchSettlesAllAttachedMarkets(t *testing.T) {
	f := newSettleFixture(t,
		liveMarket("mkt-1", "match-1"),
		liveMarket("mkt-2", "match-1"),
		liveMarket("mkt-3", "match-other"),
	)

	err := f.svc.SettleMatch(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(1), AwayScore: i64(1), Finished: true,
	})
	require.NoError(t, err)

	_, err = f.settlements.GetByMarket(context.Background(), "mkt-1")
	assert.NoError(t, err)
	_, err = f.settlements.GetByMarket(context.Background(), "mkt-2")
	assert.NoError(t, err)
	_, err = f.settlements.GetByMarket(context.Background(), "mkt-3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleMatchWithoutScoresNotResolvable(t *testing.T) {
	f := newSettleFixture(t, liveMarket("mkt-1", "match-1"))

	err := f.svc.SettleMatch(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", Finished: true,
	})
	assert.ErrorIs(t, err, domain.ErrNotResolvable)
}

func TestSettleMatchSkipsAlreadySettled(t *testing.T) {
	f := newSettleFixture(t,
		liveMarket("mkt-1", "match-1"),
		liveMarket("mkt-2", "match-1"),
	)

	match := domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(3), AwayScore: i64(0), Finished: true,
	}
	require.NoError(t, f.svc.SettleMatch(context.Background(), match))

	// Replaying the same result must not error or duplicate anything.
	require.NoError(t, f.svc.SettleMatch(context.Background(), match))
	assert.Len(t, f.bus.published[SettlementsChannel], 2)
}

func TestSettleMarketRejectsInvalidSnapshot(t *testing.T) {
	m := liveMarket("mkt-1", "match-1")
	m.TotalPool = 5 // wildly inconsistent with entryFee * participants

	f := newSettleFixture(t)
	require.NoError(t, f.markets.Upsert(context.Background(), m))
	require.NoError(t, f.scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(2), AwayScore: i64(0), Finished: true,
	}))

	_, err := f.svc.SettleMarket(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
}
