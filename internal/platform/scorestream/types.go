// Package scorestream is a WebSocket client for the live football score
// provider. It converts provider wire messages into domain match snapshots.
package scorestream

import (
	"github.com/sportpools/matchpool/internal/domain"
)

// WSCommand is the JSON command sent to the provider to manage subscriptions.
type WSCommand struct {
	Type         string   `json:"type"` // "subscribe" or "unsubscribe"
	Competitions []string `json:"competitions,omitempty"`
}

// ScoreMessage is a score update as sent by the provider. Final whistle is
// signalled by status "finished"; kick-off and in-play updates arrive with
// status "live".
type ScoreMessage struct {
	Event       string `json:"event"` // "score_update"
	MatchID     string `json:"match_id"`
	Competition string `json:"competition"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	HomeScore   *int64 `json:"home_score"`
	AwayScore   *int64 `json:"away_score"`
	Status      string `json:"status"` // "scheduled", "live", "finished", "abandoned"
	UpdatedAt   string `json:"updated_at"`
}

// ToDomain converts a provider score message into a domain match snapshot.
func (m *ScoreMessage) ToDomain() domain.MatchSnapshot {
	return domain.MatchSnapshot{
		MatchID:   m.MatchID,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
		Finished:  m.Status == "finished",
	}
}
