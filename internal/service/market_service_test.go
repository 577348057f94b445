package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/engine"
)

func newMarketService(t *testing.T, markets *memMarkets, participants *memParticipants, scores *memScores, payouts *memPayoutCache) *MarketService {
	t.Helper()

	calc, err := engine.NewCalculator(testPolicy(), engine.NewErrorHistory(10))
	require.NoError(t, err)

	var payoutCache domain.PayoutCache
	if payouts != nil {
		payoutCache = payouts
	}
	return NewMarketService(
		markets, participants, nil, scores, payoutCache,
		calc, time.Second, slog.New(slog.DiscardHandler),
	)
}

func TestGetMarketFallsBackToStore(t *testing.T) {
	markets := newMemMarkets(liveMarket("mkt-1", "match-1"))
	svc := newMarketService(t, markets, &memParticipants{}, &memScores{}, nil)

	m, err := svc.GetMarket(context.Background(), "mkt-1")
	require.NoError(t, err)
	assert.Equal(t, "mkt-1", m.ID)

	_, err = svc.GetMarket(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMarketsFiltersByStatus(t *testing.T) {
	open := liveMarket("mkt-open", "match-1")
	open.Status = domain.MarketOpen
	markets := newMemMarkets(open, liveMarket("mkt-live", "match-2"))
	svc := newMarketService(t, markets, &memParticipants{}, &memScores{}, nil)

	live, err := svc.ListMarkets(context.Background(), domain.MarketLive, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "mkt-live", live[0].ID)

	all, err := svc.ListMarkets(context.Background(), "", domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarketStateClassifiesPerViewer(t *testing.T) {
	open := liveMarket("mkt-1", "match-1")
	open.Status = domain.MarketOpen
	markets := newMemMarkets(open)
	participants := &memParticipants{entries: []domain.ParticipantSnapshot{
		{MarketID: "mkt-1", Wallet: "w-1", Prediction: domain.OutcomeHome},
	}}
	svc := newMarketService(t, markets, participants, &memScores{}, nil)

	state, err := svc.MarketState(context.Background(), "mkt-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateOpenGuest, state)

	state, err = svc.MarketState(context.Background(), "mkt-1", "w-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateOpenParticipant, state)

	state, err = svc.MarketState(context.Background(), "mkt-1", "creator-wallet")
	require.NoError(t, err)
	assert.Equal(t, domain.StateOpenCreator, state)
}

func TestMarketStateUsesLatestScore(t *testing.T) {
	markets := newMemMarkets(liveMarket("mkt-1", "match-1"))
	participants := &memParticipants{entries: []domain.ParticipantSnapshot{
		{MarketID: "mkt-1", Wallet: "w-1", Prediction: domain.OutcomeHome},
	}}
	scores := &memScores{}
	require.NoError(t, scores.Set(context.Background(), domain.MatchSnapshot{
		MatchID: "match-1", HomeScore: i64(2), AwayScore: i64(0), Finished: true,
	}))
	svc := newMarketService(t, markets, participants, scores, nil)

	state, err := svc.MarketState(context.Background(), "mkt-1", "w-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateEndedWinner, state)
}

func TestPayoutMemoizesPerViewer(t *testing.T) {
	open := liveMarket("mkt-1", "match-1")
	open.Status = domain.MarketOpen
	markets := newMemMarkets(open)
	participants := &memParticipants{entries: []domain.ParticipantSnapshot{
		{MarketID: "mkt-1", Wallet: "w-1", Prediction: domain.OutcomeHome},
	}}
	payouts := &memPayoutCache{}
	svc := newMarketService(t, markets, participants, &memScores{}, payouts)

	first, err := svc.Payout(context.Background(), "mkt-1", "w-1")
	require.NoError(t, err)
	assert.NotEqual(t, domain.PayoutNone, first.Kind)

	second, err := svc.Payout(context.Background(), "mkt-1", "w-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, payouts.sets, "second read must come from the cache")
}

func TestPayoutDegradesOnBadSnapshot(t *testing.T) {
	bad := liveMarket("mkt-1", "match-1")
	bad.TotalPool = 5
	markets := newMemMarkets(bad)
	svc := newMarketService(t, markets, &memParticipants{}, &memScores{}, nil)

	res, err := svc.Payout(context.Background(), "mkt-1", "")
	require.NoError(t, err, "computation failures must degrade, not error")
	assert.Equal(t, domain.PayoutNone, res.Kind)
	assert.Equal(t, domain.SeverityError, res.Severity)
}

func TestPayoutUnknownMarket(t *testing.T) {
	svc := newMarketService(t, newMemMarkets(), &memParticipants{}, &memScores{}, nil)

	_, err := svc.Payout(context.Background(), "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
