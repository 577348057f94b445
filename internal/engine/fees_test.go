package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeePolicy_Validate(t *testing.T) {
	assert.NoError(t, FeePolicy{CreatorBps: 200, PlatformBps: 300}.Validate())
	assert.NoError(t, FeePolicy{CreatorBps: 5000, PlatformBps: 5000}.Validate())
	assert.NoError(t, FeePolicy{}.Validate())
	assert.Error(t, FeePolicy{CreatorBps: 9000, PlatformBps: 1001}.Validate())
}

func TestFeePolicy_Split(t *testing.T) {
	policy := FeePolicy{CreatorBps: 200, PlatformBps: 300}

	split, err := policy.Split(400_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(8_000_000), split.CreatorFee)
	assert.Equal(t, uint64(12_000_000), split.PlatformFee)
	assert.Equal(t, uint64(380_000_000), split.ParticipantPool)
	assert.Equal(t, uint64(400_000_000), split.TotalPool)
}

// Conservation: the three components must sum to the pool exactly, for every
// pool size, including ones where the bps division truncates.
func TestFeePolicy_Split_Conservation(t *testing.T) {
	policies := []FeePolicy{
		{CreatorBps: 200, PlatformBps: 300},
		{CreatorBps: 1, PlatformBps: 1},
		{CreatorBps: 0, PlatformBps: 0},
		{CreatorBps: 3333, PlatformBps: 3333},
		{CreatorBps: 9999, PlatformBps: 1},
	}
	pools := []uint64{0, 1, 3, 7, 9999, 10_000, 10_001, 123_456_789,
		5_000_000_000, 1 << 40, 1<<63 - 1}

	for _, p := range policies {
		for _, pool := range pools {
			split, err := p.Split(pool)
			require.NoError(t, err)
			assert.Equal(t, pool, split.CreatorFee+split.PlatformFee+split.ParticipantPool,
				"policy %+v pool %d", p, pool)
		}
	}
}

func TestFeePolicy_CreatorReward(t *testing.T) {
	policy := FeePolicy{CreatorBps: 200, PlatformBps: 300}

	reward, err := policy.CreatorReward(5_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), reward)
}

func TestFeePolicy_SettleSplit(t *testing.T) {
	policy := FeePolicy{CreatorBps: 200, PlatformBps: 300}

	split, perWinner, remainder, err := policy.SettleSplit(400_000_000, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(126_666_666), perWinner)
	assert.Equal(t, uint64(2), remainder)
	assert.Equal(t, split.ParticipantPool, perWinner*3+remainder)
}

func TestFeePolicy_SettleSplit_NoWinners(t *testing.T) {
	policy := FeePolicy{CreatorBps: 200, PlatformBps: 300}

	split, perWinner, remainder, err := policy.SettleSplit(400_000_000, 0)
	require.NoError(t, err)
	assert.Zero(t, perWinner)
	assert.Equal(t, split.ParticipantPool, remainder)
}

func TestMulDiv(t *testing.T) {
	// Products beyond 64 bits must still divide correctly.
	got, err := mulDiv(1<<63, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<62), got)

	_, err = mulDiv(1, 1, 0)
	assert.ErrorIs(t, err, errDivideZero)

	// Quotient overflowing 64 bits must be rejected, not truncated.
	_, err = mulDiv(1<<63, 4, 1)
	assert.ErrorIs(t, err, errOverflow)
}
