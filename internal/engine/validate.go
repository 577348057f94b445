package engine

import (
	"fmt"

	"github.com/sportpools/matchpool/internal/domain"
)

// countTolerance absorbs the benign race between the per-outcome counters and
// the participant counter: the sums may disagree by one while an entry is
// being recorded.
const countTolerance = 1

// ValidateSnapshot checks a market snapshot before any arithmetic runs on it.
// A failure means the snapshot is stale, partially updated, or corrupt, and
// the caller must short-circuit to a fallback payout rather than compute on
// untrusted numbers. All returned errors wrap domain.ErrInvalidSnapshot.
func ValidateSnapshot(m domain.MarketSnapshot) error {
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidSnapshot, m.Status)
	}

	switch m.Status {
	case domain.MarketResolved:
		if !m.HasOutcome() {
			return fmt.Errorf("%w: resolved market %s has no outcome", domain.ErrInvalidSnapshot, m.ID)
		}
	case domain.MarketOpen, domain.MarketLive:
		if m.Outcome != "" {
			return fmt.Errorf("%w: %s market %s carries outcome %q", domain.ErrInvalidSnapshot, m.Status, m.ID, m.Outcome)
		}
	}

	countSum, err := addU64(m.HomeCount, m.DrawCount)
	if err == nil {
		countSum, err = addU64(countSum, m.AwayCount)
	}
	if err != nil {
		return fmt.Errorf("%w: prediction counts overflow", domain.ErrInvalidSnapshot)
	}
	if absDiff(countSum, m.ParticipantCount) > countTolerance {
		return fmt.Errorf("%w: prediction counts sum to %d but participant count is %d",
			domain.ErrInvalidSnapshot, countSum, m.ParticipantCount)
	}

	// The pool must track entryFee * participants within one entry fee, or a
	// partial pool update slipped through.
	expected, err := mulU64(m.EntryFee, m.ParticipantCount)
	if err != nil {
		return fmt.Errorf("%w: pool size overflows", domain.ErrInvalidSnapshot)
	}
	if absDiff(m.TotalPool, expected) > m.EntryFee {
		return fmt.Errorf("%w: pool %d does not match entry fee %d x %d participants",
			domain.ErrInvalidSnapshot, m.TotalPool, m.EntryFee, m.ParticipantCount)
	}

	return nil
}
