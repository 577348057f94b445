package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
)

func makeCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(FeePolicy{CreatorBps: 200, PlatformBps: 300}, nil)
	require.NoError(t, err)
	return calc
}

func TestNewCalculator_RejectsInvalidPolicy(t *testing.T) {
	_, err := NewCalculator(FeePolicy{CreatorBps: 9000, PlatformBps: 1500}, nil)
	assert.Error(t, err)
}

// Worked example: entry fee 0.1 unit, pool 0.3, counts 1/1/1, creator 200 bps,
// platform 300 bps. A joiner predicting Home shares the post-join participant
// pool with the existing Home predictor.
func TestJoinerPotential(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")

	got, err := calc.JoinerPotential(market, domain.OutcomeHome)
	require.NoError(t, err)
	assert.Equal(t, uint64(190_000_000), got)
}

// With no existing Draw predictors the joiner keeps the whole new pool.
func TestJoinerPotential_UncontestedOutcome(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.DrawCount = 0
	market.ParticipantCount = 2
	market.TotalPool = 200_000_000

	got, err := calc.JoinerPotential(market, domain.OutcomeDraw)
	require.NoError(t, err)
	// floor(300,000,000 * 9500 / 10000) = 285,000,000 shared with nobody.
	assert.Equal(t, uint64(285_000_000), got)
}

func TestJoinerPotential_SpecUncontestedExample(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.DrawCount = 0

	got, err := calc.JoinerPotential(market, domain.OutcomeDraw)
	require.NoError(t, err)
	assert.Equal(t, uint64(380_000_000), got)
}

func TestJoinerPotential_EmptyMarketPaysEntryFee(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.ParticipantCount = 0
	market.TotalPool = 0
	market.HomeCount, market.DrawCount, market.AwayCount = 0, 0, 0

	got, err := calc.JoinerPotential(market, domain.OutcomeAway)
	require.NoError(t, err)
	assert.Equal(t, market.EntryFee, got)
}

// Joiner potential never exceeds the post-join participant pool and is
// non-increasing in the chosen outcome's existing count.
func TestJoinerPotential_Monotonicity(t *testing.T) {
	calc := makeCalculator(t)

	for count := uint64(0); count <= 20; count++ {
		market := domain.MarketSnapshot{
			ID:               "mkt-mono",
			Creator:          creatorWallet,
			EntryFee:         100_000_000,
			TotalPool:        100_000_000 * (count + 5),
			ParticipantCount: count + 5,
			HomeCount:        count,
			DrawCount:        3,
			AwayCount:        2,
			Status:           domain.MarketOpen,
		}
		got, err := calc.JoinerPotential(market, domain.OutcomeHome)
		require.NoError(t, err)

		split, err := calc.Policy().Split(market.TotalPool + market.EntryFee)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, split.ParticipantPool)

		if count > 0 {
			// Pool grows with count here, so compare against the same
			// pool recomputed at the previous count to isolate the axis.
			prevMarket := market
			prevMarket.HomeCount = count - 1
			prevGot, err := calc.JoinerPotential(prevMarket, domain.OutcomeHome)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, prevGot, got)
		}
	}
}

func TestParticipantPotential(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")

	got, err := calc.ParticipantPotential(market, domain.OutcomeHome)
	require.NoError(t, err)
	// floor(300,000,000 * 9500 / 10000) = 285,000,000 / 1 holder.
	assert.Equal(t, uint64(285_000_000), got)
}

func TestActualWinnings(t *testing.T) {
	calc := makeCalculator(t)
	market := domain.MarketSnapshot{
		ID:               "mkt-res",
		Creator:          creatorWallet,
		EntryFee:         1_000_000_000,
		TotalPool:        5_000_000_000,
		ParticipantCount: 5,
		HomeCount:        2,
		DrawCount:        2,
		AwayCount:        1,
		Status:           domain.MarketResolved,
		Outcome:          domain.OutcomeHome,
	}

	won, err := calc.ActualWinnings(market, domain.OutcomeHome)
	require.NoError(t, err)
	// floor(5,000,000,000 * 9500 / 10000) / 2 = 2,375,000,000.
	assert.Equal(t, uint64(2_375_000_000), won)

	lost, err := calc.ActualWinnings(market, domain.OutcomeAway)
	require.NoError(t, err)
	assert.Zero(t, lost)
}

func TestCreatorReward(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.TotalPool = 5_000_000_000

	reward, err := calc.CreatorReward(market)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), reward)
}

func TestAveragePotential(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")

	avg, perOutcome, err := calc.AveragePotential(market)
	require.NoError(t, err)

	// Every outcome has one holder, so each projects the same share.
	assert.Equal(t, uint64(190_000_000), perOutcome[domain.OutcomeHome])
	assert.Equal(t, uint64(190_000_000), perOutcome[domain.OutcomeDraw])
	assert.Equal(t, uint64(190_000_000), perOutcome[domain.OutcomeAway])
	assert.Equal(t, uint64(190_000_000), avg)
}

func TestAveragePotential_UnevenCounts(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.HomeCount, market.DrawCount, market.AwayCount = 3, 0, 0
	market.ParticipantCount = 3

	avg, perOutcome, err := calc.AveragePotential(market)
	require.NoError(t, err)

	// pool' = 400,000,000; participant pool 380,000,000.
	assert.Equal(t, uint64(95_000_000), perOutcome[domain.OutcomeHome])  // /4
	assert.Equal(t, uint64(380_000_000), perOutcome[domain.OutcomeDraw]) // /1
	assert.Equal(t, uint64(380_000_000), perOutcome[domain.OutcomeAway]) // /1
	assert.Equal(t, uint64(285_000_000), avg)
}

func TestCalculatePayout_ResolvedWinner(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketResolved, domain.OutcomeHome)
	p := makeParticipant(viewerWallet, domain.OutcomeHome)

	res, err := calc.CalculatePayout(market, p, viewerWallet, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateResolvedWinner, res.State)
	assert.Equal(t, domain.PayoutActual, res.Kind)
	assert.Equal(t, domain.PayoutStatusWon, res.Status)
	assert.Equal(t, domain.SeveritySuccess, res.Severity)
	assert.Equal(t, uint64(285_000_000), res.Amount)
	require.NotNil(t, res.Breakdown)
	assert.Equal(t, uint64(1), res.Breakdown.WinnerCount)
}

func TestCalculatePayout_ResolvedLoser(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketResolved, domain.OutcomeHome)
	p := makeParticipant(viewerWallet, domain.OutcomeAway)

	res, err := calc.CalculatePayout(market, p, viewerWallet, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateResolvedLoser, res.State)
	assert.Equal(t, domain.PayoutNone, res.Kind)
	assert.Equal(t, domain.PayoutStatusLost, res.Status)
	assert.Equal(t, domain.SeverityError, res.Severity)
	assert.Zero(t, res.Amount)
}

func TestCalculatePayout_OpenGuestProjectsAverage(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")

	res, err := calc.CalculatePayout(market, nil, "", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateOpenGuest, res.State)
	assert.Equal(t, domain.PayoutPotential, res.Kind)
	assert.Equal(t, domain.PayoutStatusProjected, res.Status)
	assert.Equal(t, uint64(190_000_000), res.Amount)
	require.NotNil(t, res.Breakdown)
	assert.Len(t, res.Breakdown.PerOutcome, 3)
}

func TestCalculatePayout_CreatorParticipantBreakdown(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	p := makeParticipant(creatorWallet, domain.OutcomeDraw)

	res, err := calc.CalculatePayout(market, p, creatorWallet, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateOpenCreatorParticipant, res.State)
	require.NotNil(t, res.Breakdown)
	// Never an opaque total: both components must be visible and sum up.
	assert.Equal(t, res.Breakdown.ParticipantShare+res.Breakdown.CreatorShare, res.Amount)
	assert.Equal(t, uint64(285_000_000), res.Breakdown.ParticipantShare)
	assert.Equal(t, uint64(6_000_000), res.Breakdown.CreatorShare)
}

func TestCalculatePayout_EndedCreatorParticipant(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketLive, "")
	p := makeParticipant(creatorWallet, domain.OutcomeHome)

	// Creator's prediction won: both components present.
	res, err := calc.CalculatePayout(market, p, creatorWallet, finishedMatch(2, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.StateEndedCreatorParticipant, res.State)
	assert.Equal(t, uint64(285_000_000), res.Breakdown.ParticipantShare)
	assert.Equal(t, uint64(6_000_000), res.Breakdown.CreatorShare)

	// Creator's prediction lost: reward only.
	res, err = calc.CalculatePayout(market, p, creatorWallet, finishedMatch(0, 2))
	require.NoError(t, err)
	assert.Zero(t, res.Breakdown.ParticipantShare)
	assert.Equal(t, uint64(6_000_000), res.Amount)
}

func TestCalculatePayout_ResolvedCreatorWhoWon(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketResolved, domain.OutcomeDraw)
	p := makeParticipant(creatorWallet, domain.OutcomeDraw)

	res, err := calc.CalculatePayout(market, p, creatorWallet, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateResolvedCreator, res.State)
	assert.Equal(t, domain.PayoutActual, res.Kind)
	assert.Equal(t, domain.PayoutStatusDistributed, res.Status)
	assert.Equal(t, uint64(285_000_000+6_000_000), res.Amount)
	assert.Equal(t, uint64(285_000_000), res.Breakdown.ParticipantShare)
	assert.Equal(t, uint64(6_000_000), res.Breakdown.CreatorShare)
}

// Every display state must produce a payout record; no state may be left
// without a handler.
func TestCalculatePayout_Exhaustive(t *testing.T) {
	calc := makeCalculator(t)

	cases := map[domain.DisplayState]struct {
		market      domain.MarketSnapshot
		participant *domain.ParticipantSnapshot
		viewer      string
		match       *domain.MatchSnapshot
	}{
		domain.StateOpenGuest:                {makeMarket(domain.MarketOpen, ""), nil, "", nil},
		domain.StateOpenBrowsing:             {makeMarket(domain.MarketOpen, ""), nil, viewerWallet, nil},
		domain.StateOpenParticipant:          {makeMarket(domain.MarketOpen, ""), makeParticipant(viewerWallet, domain.OutcomeHome), viewerWallet, nil},
		domain.StateOpenCreator:              {makeMarket(domain.MarketOpen, ""), nil, creatorWallet, nil},
		domain.StateOpenCreatorParticipant:   {makeMarket(domain.MarketOpen, ""), makeParticipant(creatorWallet, domain.OutcomeHome), creatorWallet, nil},
		domain.StateEndedCreator:             {makeMarket(domain.MarketLive, ""), nil, creatorWallet, finishedMatch(1, 0)},
		domain.StateEndedCreatorParticipant:  {makeMarket(domain.MarketLive, ""), makeParticipant(creatorWallet, domain.OutcomeHome), creatorWallet, finishedMatch(1, 0)},
		domain.StateEndedWinner:              {makeMarket(domain.MarketLive, ""), makeParticipant(viewerWallet, domain.OutcomeHome), viewerWallet, finishedMatch(1, 0)},
		domain.StateEndedLoser:               {makeMarket(domain.MarketLive, ""), makeParticipant(viewerWallet, domain.OutcomeAway), viewerWallet, finishedMatch(1, 0)},
		domain.StateResolvedCreator:          {makeMarket(domain.MarketResolved, domain.OutcomeHome), nil, creatorWallet, nil},
		domain.StateResolvedWinner:           {makeMarket(domain.MarketResolved, domain.OutcomeHome), makeParticipant(viewerWallet, domain.OutcomeHome), viewerWallet, nil},
		domain.StateResolvedLoser:            {makeMarket(domain.MarketResolved, domain.OutcomeHome), makeParticipant(viewerWallet, domain.OutcomeAway), viewerWallet, nil},
	}

	require.Len(t, cases, len(domain.DisplayStates))

	for state, in := range cases {
		res, err := calc.CalculatePayout(in.market, in.participant, in.viewer, in.match)
		require.NoError(t, err, "state %s", state)
		assert.Equal(t, state, res.State, "inputs did not reach state %s", state)
		assert.NotEmpty(t, res.Message, "state %s", state)
		assert.NotEmpty(t, res.Status, "state %s", state)
		assert.NotEmpty(t, res.Severity, "state %s", state)
	}
}

func TestCalculatePayout_Idempotent(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketResolved, domain.OutcomeHome)
	p := makeParticipant(viewerWallet, domain.OutcomeHome)

	first, err := calc.CalculatePayout(market, p, viewerWallet, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := calc.CalculatePayout(market, p, viewerWallet, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
