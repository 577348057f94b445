package domain

// PayoutKind tags what a payout amount represents.
type PayoutKind string

const (
	PayoutPotential     PayoutKind = "potential"
	PayoutActual        PayoutKind = "actual"
	PayoutCreatorReward PayoutKind = "creator_reward"
	PayoutNone          PayoutKind = "none"
)

// PayoutStatus is the machine-readable status tag attached to a payout result.
type PayoutStatus string

const (
	PayoutStatusProjected   PayoutStatus = "projected"
	PayoutStatusActive      PayoutStatus = "active"
	PayoutStatusPending     PayoutStatus = "pending"
	PayoutStatusWonPending  PayoutStatus = "won_pending"
	PayoutStatusLostPending PayoutStatus = "lost_pending"
	PayoutStatusWon         PayoutStatus = "won"
	PayoutStatusLost        PayoutStatus = "lost"
	PayoutStatusDistributed PayoutStatus = "distributed"
	PayoutStatusInvalid     PayoutStatus = "invalid"
)

// Severity is the display hint for how a payout result should be rendered.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// PayoutBreakdown explains how a payout amount was composed. The UI must be
// able to show the components separately, so combined creator+participant
// payouts are never collapsed into an opaque total.
type PayoutBreakdown struct {
	ParticipantShare uint64            `json:"participant_share"`
	CreatorShare     uint64            `json:"creator_share"`
	TotalPool        uint64            `json:"total_pool"`
	ParticipantPool  uint64            `json:"participant_pool"`
	WinnerCount      uint64            `json:"winner_count"`
	PerOutcome       map[Outcome]uint64 `json:"per_outcome,omitempty"`
}

// PayoutResult is the user-facing result of a payout calculation. It is
// created fresh per invocation and never mutated.
type PayoutResult struct {
	State     DisplayState     `json:"-"`
	StateName string           `json:"state"`
	Kind      PayoutKind       `json:"kind"`
	Amount    uint64           `json:"amount"`
	Breakdown *PayoutBreakdown `json:"breakdown,omitempty"`
	Status    PayoutStatus     `json:"status"`
	Message   string           `json:"message"`
	Severity  Severity         `json:"severity"`
}
