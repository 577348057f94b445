package engine

import (
	"fmt"

	"github.com/sportpools/matchpool/internal/domain"
)

// CalculatePayoutSafe is the never-fails entry point. It validates the market
// snapshot before any arithmetic, recovers from panics, and on any failure
// returns a fallback PayoutResult (kind none, severity error) together with
// the classified EngineError for logging. The second return value is nil on
// success.
func (c *Calculator) CalculatePayoutSafe(
	market domain.MarketSnapshot,
	participant *domain.ParticipantSnapshot,
	viewer string,
	match *domain.MatchSnapshot,
) (res domain.PayoutResult, engErr *EngineError) {
	defer func() {
		if r := recover(); r != nil {
			e := c.recordFailure(fmt.Sprintf("panic in payout calculation: %v", r))
			res, engErr = fallbackResult(e), &e
		}
	}()

	if err := ValidateSnapshot(market); err != nil {
		e := c.recordFailure(err.Error())
		return fallbackResult(e), &e
	}

	res, err := c.CalculatePayout(market, participant, viewer, match)
	if err != nil {
		e := c.recordFailure(err.Error())
		return fallbackResult(e), &e
	}
	return res, nil
}

// recordFailure classifies a failure message and appends it to the history
// buffer when one is attached.
func (c *Calculator) recordFailure(message string) EngineError {
	e := ClassifyError(message)
	if c.history != nil {
		c.history.Append(e)
	}
	return e
}

// History returns the calculator's error-history buffer, which may be nil.
func (c *Calculator) History() *ErrorHistory {
	return c.history
}

// fallbackResult is what the safe entry point returns instead of propagating
// a fault: a zero-amount record the UI can always render.
func fallbackResult(e EngineError) domain.PayoutResult {
	msg := "Payout is temporarily unavailable. Refresh to try again."
	if e.Retryable {
		msg = "Payout could not be computed. Retry in a moment."
	}
	return domain.PayoutResult{
		State:     domain.StateOpenGuest,
		StateName: domain.StateOpenGuest.String(),
		Kind:      domain.PayoutNone,
		Amount:    0,
		Status:    domain.PayoutStatusInvalid,
		Message:   msg,
		Severity:  domain.SeverityError,
	}
}
