package domain

// MatchSnapshot is the decoded state of the underlying football match as
// reported by the external score feed. Scores are pointers because providers
// omit them until the match has actually produced data.
type MatchSnapshot struct {
	MatchID   string
	HomeScore *int64
	AwayScore *int64
	Finished  bool
}

// Winner derives the winning outcome from the final score. The outcome is
// present only when the match is finished and both scores are known.
func (m MatchSnapshot) Winner() (Outcome, bool) {
	if !m.Finished || m.HomeScore == nil || m.AwayScore == nil {
		return "", false
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return OutcomeHome, true
	case *m.HomeScore < *m.AwayScore:
		return OutcomeAway, true
	default:
		return OutcomeDraw, true
	}
}
