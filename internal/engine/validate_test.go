package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sportpools/matchpool/internal/domain"
)

func TestValidateSnapshot(t *testing.T) {
	assert.NoError(t, ValidateSnapshot(makeMarket(domain.MarketOpen, "")))
	assert.NoError(t, ValidateSnapshot(makeMarket(domain.MarketResolved, domain.OutcomeHome)))
}

func TestValidateSnapshot_CountTolerance(t *testing.T) {
	// Off by one is a benign race and passes.
	m := makeMarket(domain.MarketOpen, "")
	m.ParticipantCount = 4
	m.TotalPool = 400_000_000
	assert.NoError(t, ValidateSnapshot(m))

	// Off by five is corruption.
	m = makeMarket(domain.MarketOpen, "")
	m.ParticipantCount = 8
	m.TotalPool = 800_000_000
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)
}

func TestValidateSnapshot_PoolDrift(t *testing.T) {
	// Pool within one entry fee of the expected total: a join in flight.
	m := makeMarket(domain.MarketOpen, "")
	m.TotalPool = 400_000_000
	assert.NoError(t, ValidateSnapshot(m))

	// Pool two entry fees adrift: stale or partial update.
	m.TotalPool = 500_000_000
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)
}

func TestValidateSnapshot_StatusOutcomeConsistency(t *testing.T) {
	m := makeMarket(domain.MarketResolved, "")
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)

	m = makeMarket(domain.MarketOpen, domain.OutcomeHome)
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)

	m = makeMarket(domain.MarketLive, domain.OutcomeAway)
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)
}

func TestValidateSnapshot_UnknownStatus(t *testing.T) {
	m := makeMarket(domain.MarketOpen, "")
	m.Status = "paused"
	assert.ErrorIs(t, ValidateSnapshot(m), domain.ErrInvalidSnapshot)
}

func TestValidateSnapshot_CancelledMarket(t *testing.T) {
	m := makeMarket(domain.MarketCancelled, "")
	assert.NoError(t, ValidateSnapshot(m))
}
