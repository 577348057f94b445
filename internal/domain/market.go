// Package domain defines the core types of the matchpool settlement backend:
// market, participant, and match snapshots, display states, payout results,
// and the store/cache interfaces implemented by the infrastructure packages.
package domain

import "time"

// Outcome is one of the three possible results of a football match.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Outcomes lists all valid outcomes in display order.
var Outcomes = [3]Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeHome, OutcomeDraw, OutcomeAway:
		return true
	default:
		return false
	}
}

// MarketStatus is the lifecycle phase of a prediction market.
type MarketStatus string

const (
	MarketOpen      MarketStatus = "open"
	MarketLive      MarketStatus = "live"
	MarketResolved  MarketStatus = "resolved"
	MarketCancelled MarketStatus = "cancelled"
)

// Valid reports whether s is one of the four known lifecycle phases.
func (s MarketStatus) Valid() bool {
	switch s {
	case MarketOpen, MarketLive, MarketResolved, MarketCancelled:
		return true
	default:
		return false
	}
}

// MarketSnapshot is an immutable, already-decoded view of a prediction market
// supplied by the caller on every engine call. All monetary amounts are in
// lamports (the smallest currency unit).
//
// Invariant: Status == MarketResolved implies Outcome is set; Status in
// {MarketOpen, MarketLive} implies Outcome is empty. The per-outcome counts
// must sum to ParticipantCount within a tolerance of 1 (benign races between
// count updates are absorbed rather than rejected).
type MarketSnapshot struct {
	ID               string
	Creator          string
	MatchID          string
	EntryFee         uint64
	TotalPool        uint64
	ParticipantCount uint64
	HomeCount        uint64
	DrawCount        uint64
	AwayCount        uint64
	Status           MarketStatus
	Outcome          Outcome // set only when Status == MarketResolved
	CreatedAt        time.Time
}

// PredictionCount returns the number of participants who predicted o.
// Unknown outcomes count zero.
func (m MarketSnapshot) PredictionCount(o Outcome) uint64 {
	switch o {
	case OutcomeHome:
		return m.HomeCount
	case OutcomeDraw:
		return m.DrawCount
	case OutcomeAway:
		return m.AwayCount
	default:
		return 0
	}
}

// HasOutcome reports whether the market carries a resolved outcome.
func (m MarketSnapshot) HasOutcome() bool {
	return m.Outcome.Valid()
}

// IsCreator reports whether wallet is the market creator. An empty wallet
// never matches.
func (m MarketSnapshot) IsCreator(wallet string) bool {
	return wallet != "" && wallet == m.Creator
}
