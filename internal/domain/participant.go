package domain

import "time"

// ParticipantSnapshot is the decoded record of one user's entry in a market.
// At most one exists per (market, wallet) pair; a nil snapshot means the user
// has not joined.
type ParticipantSnapshot struct {
	MarketID   string
	Wallet     string
	Prediction Outcome
	Withdrawn  bool
	JoinedAt   time.Time
}
