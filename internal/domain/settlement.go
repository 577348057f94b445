package domain

import "time"

// SettlementRecord is the persisted result of settling one market. The fee
// split stored here is computed with the same integer arithmetic the payout
// engine uses, so "what the UI showed" and "what got paid" never diverge.
type SettlementRecord struct {
	ID              string
	MarketID        string
	MatchID         string
	Outcome         Outcome
	TotalPool       uint64
	CreatorFee      uint64
	PlatformFee     uint64
	ParticipantPool uint64
	WinnerCount     uint64
	PerWinner       uint64
	// Remainder is what floor division leaves in the participant pool after
	// paying every winner PerWinner. It stays in the market account.
	Remainder uint64
	SettledAt time.Time
}
