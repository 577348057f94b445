package engine

import (
	"fmt"

	"github.com/sportpools/matchpool/internal/domain"
)

// Calculator computes payout amounts and user-facing result records for every
// display state. It is stateless apart from the read-only fee policy and an
// optional error-history buffer used by the safe entry point; all methods are
// safe for concurrent use.
type Calculator struct {
	policy  FeePolicy
	history *ErrorHistory
}

// NewCalculator creates a Calculator after validating the fee policy. An
// invalid policy is a fatal configuration error, so this is the only
// constructor and there is no way to swap the policy afterwards. The history
// buffer may be nil when diagnostics are not wanted.
func NewCalculator(policy FeePolicy, history *ErrorHistory) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy, history: history}, nil
}

// Policy returns the fee policy the calculator was built with.
func (c *Calculator) Policy() FeePolicy {
	return c.policy
}

// JoinerPotential returns the winnings a prospective joiner predicting o
// would receive if that prediction won: the participant pool of the
// post-join pool divided by the outcome's count with the joiner included.
// When the market has no participants yet there is no pool to divide and the
// result is simply the entry fee.
func (c *Calculator) JoinerPotential(m domain.MarketSnapshot, o domain.Outcome) (uint64, error) {
	if m.ParticipantCount == 0 {
		return m.EntryFee, nil
	}
	pool, err := addU64(m.TotalPool, m.EntryFee)
	if err != nil {
		return 0, fmt.Errorf("engine: joiner pool: %w", err)
	}
	split, err := c.policy.Split(pool)
	if err != nil {
		return 0, err
	}
	// The +1 counts the joiner among the winners and keeps the divisor
	// positive even for an outcome nobody has picked yet.
	return split.ParticipantPool / (m.PredictionCount(o) + 1), nil
}

// ParticipantPotential returns the winnings an existing participant holding o
// stands to receive from the current pool. The divisor already includes the
// participant, so it is at least 1 on any snapshot that passes validation; a
// zero count on a corrupt snapshot yields zero rather than a panic.
func (c *Calculator) ParticipantPotential(m domain.MarketSnapshot, o domain.Outcome) (uint64, error) {
	split, err := c.policy.Split(m.TotalPool)
	if err != nil {
		return 0, err
	}
	count := m.PredictionCount(o)
	if count == 0 {
		return 0, nil
	}
	return split.ParticipantPool / count, nil
}

// AveragePotential computes the prospective-joiner winnings independently for
// Home, Draw, and Away and returns their floor mean plus the per-outcome
// figures. Non-participants see this instead of a single "most popular
// outcome" number, which understates the payout available on unpopular
// outcomes and nudges users into chasing the crowd.
func (c *Calculator) AveragePotential(m domain.MarketSnapshot) (uint64, map[domain.Outcome]uint64, error) {
	perOutcome := make(map[domain.Outcome]uint64, len(domain.Outcomes))
	var sum uint64
	for _, o := range domain.Outcomes {
		w, err := c.JoinerPotential(m, o)
		if err != nil {
			return 0, nil, err
		}
		perOutcome[o] = w
		sum, err = addU64(sum, w)
		if err != nil {
			return 0, nil, fmt.Errorf("engine: average potential: %w", err)
		}
	}
	return sum / uint64(len(domain.Outcomes)), perOutcome, nil
}

// ActualWinnings returns the realized payout for a resolved market given the
// viewer's prediction. It is zero when the market has no outcome or the
// prediction missed.
func (c *Calculator) ActualWinnings(m domain.MarketSnapshot, predicted domain.Outcome) (uint64, error) {
	if !m.HasOutcome() || m.Outcome != predicted {
		return 0, nil
	}
	return c.ParticipantPotential(m, m.Outcome)
}

// CreatorReward returns the creator's fee on the current pool.
func (c *Calculator) CreatorReward(m domain.MarketSnapshot) (uint64, error) {
	return c.policy.CreatorReward(m.TotalPool)
}

// CalculatePayout classifies the viewer's display state and computes the
// payout record for it. Each state maps to exactly one formula plus fixed
// status, message, and severity metadata. It returns an error only when the
// integer arithmetic itself fails (overflow on absurd inputs); use
// CalculatePayoutSafe when the snapshot has not been validated upstream.
func (c *Calculator) CalculatePayout(
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
	viewer string,
	match *domain.MatchSnapshot,
) (domain.PayoutResult, error) {
	state := Classify(market, participant, viewer, match)

	switch state {
	case domain.StateOpenGuest, domain.StateOpenBrowsing:
		return c.projectedResult(state, market)

	case domain.StateOpenParticipant:
		amount, err := c.ParticipantPotential(market, participant.Prediction)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		split, err := c.policy.Split(market.TotalPool)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		return result(state, domain.PayoutPotential, amount, domain.PayoutStatusActive,
			"Potential winnings if your prediction holds.", domain.SeverityInfo,
			&domain.PayoutBreakdown{
				ParticipantShare: amount,
				TotalPool:        split.TotalPool,
				ParticipantPool:  split.ParticipantPool,
				WinnerCount:      market.PredictionCount(participant.Prediction),
			}), nil

	case domain.StateOpenCreator:
		reward, err := c.CreatorReward(market)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		return result(state, domain.PayoutCreatorReward, reward, domain.PayoutStatusProjected,
			"Creator reward you will receive when this market pays out.", domain.SeverityInfo,
			&domain.PayoutBreakdown{CreatorShare: reward, TotalPool: market.TotalPool}), nil

	case domain.StateOpenCreatorParticipant:
		return c.combinedResult(state, market, participant,
			domain.PayoutStatusActive,
			"Potential winnings plus your creator reward.")

	case domain.StateEndedCreator:
		reward, err := c.CreatorReward(market)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		return result(state, domain.PayoutCreatorReward, reward, domain.PayoutStatusPending,
			"Creator reward, distributed once the market resolves.", domain.SeverityInfo,
			&domain.PayoutBreakdown{CreatorShare: reward, TotalPool: market.TotalPool}), nil

	case domain.StateEndedCreatorParticipant:
		msg := "Creator reward pending; your prediction is settled at resolution."
		return c.combinedEndedResult(state, market, participant, match, msg)

	case domain.StateEndedWinner:
		amount, err := c.ParticipantPotential(market, participant.Prediction)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		split, err := c.policy.Split(market.TotalPool)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		return result(state, domain.PayoutPotential, amount, domain.PayoutStatusWonPending,
			"Your prediction hit. Winnings are paid out at resolution.", domain.SeveritySuccess,
			&domain.PayoutBreakdown{
				ParticipantShare: amount,
				TotalPool:        split.TotalPool,
				ParticipantPool:  split.ParticipantPool,
				WinnerCount:      market.PredictionCount(participant.Prediction),
			}), nil

	case domain.StateEndedLoser:
		return result(state, domain.PayoutNone, 0, domain.PayoutStatusLostPending,
			"The match did not go your way. No payout at resolution.", domain.SeverityWarning,
			nil), nil

	case domain.StateResolvedCreator:
		return c.resolvedCreatorResult(state, market, participant)

	case domain.StateResolvedWinner:
		amount, err := c.ActualWinnings(market, participant.Prediction)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		split, err := c.policy.Split(market.TotalPool)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		return result(state, domain.PayoutActual, amount, domain.PayoutStatusWon,
			"You won. Winnings have been distributed.", domain.SeveritySuccess,
			&domain.PayoutBreakdown{
				ParticipantShare: amount,
				TotalPool:        split.TotalPool,
				ParticipantPool:  split.ParticipantPool,
				WinnerCount:      market.PredictionCount(market.Outcome),
			}), nil

	case domain.StateResolvedLoser:
		return result(state, domain.PayoutNone, 0, domain.PayoutStatusLost,
			"Your prediction missed. Better luck next match.", domain.SeverityError,
			nil), nil
	}

	// Unknown states cannot come out of Classify; treat them like the
	// classifier fallback so a future state addition fails loudly in tests
	// rather than silently in production.
	return c.projectedResult(domain.StateOpenGuest, market)
}

// projectedResult builds the averaged three-outcome projection shown to
// viewers with no stake in the market.
func (c *Calculator) projectedResult(state domain.DisplayState, market domain.MarketSnapshot) (domain.PayoutResult, error) {
	avg, perOutcome, err := c.AveragePotential(market)
	if err != nil {
		return domain.PayoutResult{}, err
	}
	msg := "Average winnings across outcomes if you join now."
	if state == domain.StateOpenGuest {
		msg = "Connect a wallet to join. Average winnings across outcomes shown."
	}
	return result(state, domain.PayoutPotential, avg, domain.PayoutStatusProjected,
		msg, domain.SeverityInfo,
		&domain.PayoutBreakdown{
			TotalPool:  market.TotalPool,
			PerOutcome: perOutcome,
		}), nil
}

// combinedResult sums the open-market participant potential and the creator
// reward, exposing both components in the breakdown.
func (c *Calculator) combinedResult(
	state domain.DisplayState,
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
	status domain.PayoutStatus,
	msg string,
) (domain.PayoutResult, error) {
	share, err := c.ParticipantPotential(market, participant.Prediction)
	if err != nil {
		return domain.PayoutResult{}, err
	}
	reward, err := c.CreatorReward(market)
	if err != nil {
		return domain.PayoutResult{}, err
	}
	total, err := addU64(share, reward)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("engine: combined payout: %w", err)
	}
	return result(state, domain.PayoutPotential, total, status, msg, domain.SeverityInfo,
		&domain.PayoutBreakdown{
			ParticipantShare: share,
			CreatorShare:     reward,
			TotalPool:        market.TotalPool,
			WinnerCount:      market.PredictionCount(participant.Prediction),
		}), nil
}

// combinedEndedResult is the creator+participant payout after the match has
// finished: the creator reward is certain, the participant share counts only
// if the prediction matches the derived match winner.
func (c *Calculator) combinedEndedResult(
	state domain.DisplayState,
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
	match *domain.MatchSnapshot,
	msg string,
) (domain.PayoutResult, error) {
	reward, err := c.CreatorReward(market)
	if err != nil {
		return domain.PayoutResult{}, err
	}

	var share uint64
	if match != nil {
		if winner, ok := match.Winner(); ok && winner == participant.Prediction {
			share, err = c.ParticipantPotential(market, participant.Prediction)
			if err != nil {
				return domain.PayoutResult{}, err
			}
		}
	}

	total, err := addU64(share, reward)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("engine: combined payout: %w", err)
	}
	return result(state, domain.PayoutPotential, total, domain.PayoutStatusPending,
		msg, domain.SeverityInfo,
		&domain.PayoutBreakdown{
			ParticipantShare: share,
			CreatorShare:     reward,
			TotalPool:        market.TotalPool,
			WinnerCount:      market.PredictionCount(participant.Prediction),
		}), nil
}

// resolvedCreatorResult pays the distributed creator reward, plus the actual
// winnings when the creator also participated and predicted correctly.
func (c *Calculator) resolvedCreatorResult(
	state domain.DisplayState,
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
) (domain.PayoutResult, error) {
	reward, err := c.CreatorReward(market)
	if err != nil {
		return domain.PayoutResult{}, err
	}

	kind := domain.PayoutCreatorReward
	msg := "Creator reward has been distributed."
	var share uint64
	if participant != nil && !participant.Withdrawn {
		share, err = c.ActualWinnings(market, participant.Prediction)
		if err != nil {
			return domain.PayoutResult{}, err
		}
		if share > 0 {
			kind = domain.PayoutActual
			msg = "Creator reward plus winnings have been distributed."
		}
	}

	total, err := addU64(share, reward)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("engine: resolved creator payout: %w", err)
	}
	return result(state, kind, total, domain.PayoutStatusDistributed,
		msg, domain.SeveritySuccess,
		&domain.PayoutBreakdown{
			ParticipantShare: share,
			CreatorShare:     reward,
			TotalPool:        market.TotalPool,
			WinnerCount:      market.PredictionCount(market.Outcome),
		}), nil
}

// result assembles a PayoutResult with the state name denormalized for JSON
// consumers.
func result(
	state domain.DisplayState,
	kind domain.PayoutKind,
	amount uint64,
	status domain.PayoutStatus,
	msg string,
	sev domain.Severity,
	breakdown *domain.PayoutBreakdown,
) domain.PayoutResult {
	return domain.PayoutResult{
		State:     state,
		StateName: state.String(),
		Kind:      kind,
		Amount:    amount,
		Breakdown: breakdown,
		Status:    status,
		Message:   msg,
		Severity:  sev,
	}
}
