package engine

import "github.com/sportpools/matchpool/internal/domain"

// Classify deduces exactly one display state from a market snapshot, an
// optional participant record, an optional viewer wallet, and an optional
// match-result snapshot. It is total and idempotent: identical inputs always
// produce the same state and no combination of inputs can make it fail.
//
// Decision order, first match wins:
//
//  1. Open market: branch on viewer presence, creator, participant.
//  2. Live market with a finished match: same role axis, winners and losers
//     split by comparing the prediction against the derived match winner.
//  3. Resolved market: role axis against the stored outcome.
//  4. Everything else (cancelled markets, live markets whose match has not
//     finished, role-less viewers after match end) falls back to
//     StateOpenGuest. The fallback covers combinations the enumeration does
//     not name and is relied upon by callers, so it must not be narrowed.
//     Whether cancelled markets deserve their own state is an open product
//     question; until it is answered they take the fallback path.
func Classify(
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
	viewer string,
	match *domain.MatchSnapshot,
) domain.DisplayState {
	isCreator := market.IsCreator(viewer)
	joined := participant != nil && !participant.Withdrawn

	switch {
	case market.Status == domain.MarketOpen:
		switch {
		case viewer == "":
			return domain.StateOpenGuest
		case isCreator && joined:
			return domain.StateOpenCreatorParticipant
		case isCreator:
			return domain.StateOpenCreator
		case joined:
			return domain.StateOpenParticipant
		default:
			return domain.StateOpenBrowsing
		}

	case market.Status == domain.MarketLive && match != nil && match.Finished:
		winner, hasWinner := match.Winner()
		switch {
		case isCreator && joined:
			return domain.StateEndedCreatorParticipant
		case isCreator:
			return domain.StateEndedCreator
		case joined:
			if hasWinner && participant.Prediction == winner {
				return domain.StateEndedWinner
			}
			return domain.StateEndedLoser
		}
		// Authenticated non-participants and guests have no awaiting state.

	case market.Status == domain.MarketResolved:
		switch {
		case isCreator:
			return domain.StateResolvedCreator
		case joined:
			if market.HasOutcome() && participant.Prediction == market.Outcome {
				return domain.StateResolvedWinner
			}
			return domain.StateResolvedLoser
		}
	}

	return domain.StateOpenGuest
}
