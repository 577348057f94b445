package domain

// DisplayState is the classified combination of market lifecycle, viewer role,
// and outcome correctness that drives which payout formula applies. It is
// derived on every call and never stored.
//
// The enumeration crosses three axes: phase (open / ended awaiting resolution
// / resolved), role (guest, authenticated browser, participant, creator,
// creator+participant), and win/loss where a match result exists. Any
// combination outside the twelve named values falls back to StateOpenGuest;
// callers only ever dispatch on the known values.
type DisplayState int

const (
	// StateOpenGuest: market open, no authenticated viewer. Also the
	// fallback for every unrecognized (status, role) combination,
	// including cancelled markets.
	StateOpenGuest DisplayState = iota
	// StateOpenBrowsing: market open, authenticated viewer who has neither
	// created nor joined it.
	StateOpenBrowsing
	// StateOpenParticipant: market open, viewer has joined.
	StateOpenParticipant
	// StateOpenCreator: market open, viewer created it but has not joined.
	StateOpenCreator
	// StateOpenCreatorParticipant: market open, viewer created and joined.
	StateOpenCreatorParticipant
	// StateEndedCreator: match finished, resolution pending, viewer is the
	// non-participating creator.
	StateEndedCreator
	// StateEndedCreatorParticipant: match finished, resolution pending,
	// viewer is the creator and a participant.
	StateEndedCreatorParticipant
	// StateEndedWinner: match finished, resolution pending, viewer's
	// prediction matches the match result.
	StateEndedWinner
	// StateEndedLoser: match finished, resolution pending, viewer's
	// prediction does not match the match result.
	StateEndedLoser
	// StateResolvedCreator: market resolved, viewer is the creator.
	StateResolvedCreator
	// StateResolvedWinner: market resolved, viewer predicted the outcome.
	StateResolvedWinner
	// StateResolvedLoser: market resolved, viewer predicted wrong.
	StateResolvedLoser
)

// DisplayStates lists every display state, for exhaustiveness checks.
var DisplayStates = [...]DisplayState{
	StateOpenGuest,
	StateOpenBrowsing,
	StateOpenParticipant,
	StateOpenCreator,
	StateOpenCreatorParticipant,
	StateEndedCreator,
	StateEndedCreatorParticipant,
	StateEndedWinner,
	StateEndedLoser,
	StateResolvedCreator,
	StateResolvedWinner,
	StateResolvedLoser,
}

var displayStateNames = map[DisplayState]string{
	StateOpenGuest:               "open_guest",
	StateOpenBrowsing:            "open_browsing",
	StateOpenParticipant:         "open_participant",
	StateOpenCreator:             "open_creator",
	StateOpenCreatorParticipant:  "open_creator_participant",
	StateEndedCreator:            "ended_creator",
	StateEndedCreatorParticipant: "ended_creator_participant",
	StateEndedWinner:             "ended_winner",
	StateEndedLoser:              "ended_loser",
	StateResolvedCreator:         "resolved_creator",
	StateResolvedWinner:          "resolved_winner",
	StateResolvedLoser:           "resolved_loser",
}

func (s DisplayState) String() string {
	if name, ok := displayStateNames[s]; ok {
		return name
	}
	return "unknown"
}
