package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
)

func TestCalculatePayoutSafe_ValidInput(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketResolved, domain.OutcomeHome)
	p := makeParticipant(viewerWallet, domain.OutcomeHome)

	res, engErr := calc.CalculatePayoutSafe(market, p, viewerWallet, nil)

	assert.Nil(t, engErr)
	assert.Equal(t, domain.StateResolvedWinner, res.State)
	assert.Equal(t, uint64(285_000_000), res.Amount)
}

// Prediction counts off by five from the participant count must yield a
// none/error fallback, never a thrown failure.
func TestCalculatePayoutSafe_CorruptCounts(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.ParticipantCount = 8
	market.TotalPool = 800_000_000

	res, engErr := calc.CalculatePayoutSafe(market, nil, "", nil)

	require.NotNil(t, engErr)
	assert.Equal(t, ErrorValidation, engErr.Kind)
	assert.Equal(t, SeverityHigh, engErr.Severity)
	assert.Equal(t, RecoveryRefresh, engErr.Recovery)
	assert.False(t, engErr.Retryable)

	assert.Equal(t, domain.PayoutNone, res.Kind)
	assert.Equal(t, domain.SeverityError, res.Severity)
	assert.Equal(t, domain.PayoutStatusInvalid, res.Status)
	assert.Zero(t, res.Amount)
}

func TestCalculatePayoutSafe_RecordsHistory(t *testing.T) {
	history := NewErrorHistory(10)
	calc, err := NewCalculator(FeePolicy{CreatorBps: 200, PlatformBps: 300}, history)
	require.NoError(t, err)

	market := makeMarket(domain.MarketOpen, "")
	market.Status = "paused"

	_, engErr := calc.CalculatePayoutSafe(market, nil, "", nil)
	require.NotNil(t, engErr)

	assert.Equal(t, 1, history.Len())
	assert.Equal(t, engErr.Kind, history.Snapshot()[0].Kind)
}

func TestCalculatePayoutSafe_OverflowingPool(t *testing.T) {
	calc := makeCalculator(t)
	market := makeMarket(domain.MarketOpen, "")
	market.EntryFee = 1<<63 - 1
	market.TotalPool = 1<<64 - 2 // entry fee x 2, passes validation
	market.ParticipantCount = 2
	market.HomeCount, market.DrawCount, market.AwayCount = 1, 1, 0

	// The post-join pool would overflow uint64; the safe entry point
	// converts that into a calculation fallback instead of wrapping.
	res, engErr := calc.CalculatePayoutSafe(market, nil, "", nil)

	require.NotNil(t, engErr)
	assert.Equal(t, ErrorCalculation, engErr.Kind)
	assert.Equal(t, domain.PayoutNone, res.Kind)
	assert.Zero(t, res.Amount)
}

func TestCalculatePayoutSafe_NeverPanics(t *testing.T) {
	calc := makeCalculator(t)

	assert.NotPanics(t, func() {
		calc.CalculatePayoutSafe(domain.MarketSnapshot{}, nil, "", nil)
		calc.CalculatePayoutSafe(makeMarket(domain.MarketLive, ""), nil, viewerWallet, &domain.MatchSnapshot{Finished: true})
	})
}
