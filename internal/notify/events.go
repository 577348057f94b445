package notify

import (
	"fmt"

	"github.com/sportpools/matchpool/internal/domain"
)

// Event types emitted by the settlement pipeline. These are the values
// operators list in the notify.events config to choose what they receive.
const (
	EventMarketSettled    = "market.settled"
	EventSettlementFailed = "settlement.failed"
	EventFeedDown         = "feed.down"
)

// SettledMessage renders a settlement record as a notification title and
// body. Amounts are reported in lamports, matching the ledger.
func SettledMessage(rec domain.SettlementRecord) (title, message string) {
	title = fmt.Sprintf("Market settled: %s", rec.MarketID)
	message = fmt.Sprintf(
		"match %s finished %s\npool %d lamports, %d winner(s), %d each\ncreator fee %d, platform fee %d, remainder %d",
		rec.MatchID, rec.Outcome,
		rec.TotalPool, rec.WinnerCount, rec.PerWinner,
		rec.CreatorFee, rec.PlatformFee, rec.Remainder,
	)
	return title, message
}

// FailedMessage renders a settlement failure notification.
func FailedMessage(marketID string, err error) (title, message string) {
	title = fmt.Sprintf("Settlement failed: %s", marketID)
	message = err.Error()
	return title, message
}

// FeedDownMessage renders a notification for a score feed that keeps failing
// to connect.
func FeedDownMessage(wsURL string, failures int, err error) (title, message string) {
	title = "Score feed down"
	message = fmt.Sprintf("%d consecutive connection failures to %s\nlast error: %s", failures, wsURL, err.Error())
	return title, message
}
