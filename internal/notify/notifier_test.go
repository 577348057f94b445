package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifierFiltersEvents(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventMarketSettled}, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, EventMarketSettled, "settled", "body"))
	require.NoError(t, n.Notify(ctx, EventFeedDown, "down", "body"))

	assert.Equal(t, []string{"settled"}, sender.titles)
}

func TestNotifierNoFilterAllowsAll(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, sender.titles, 1)
}

func TestNotifierCollectsSenderErrors(t *testing.T) {
	good := &recordingSender{name: "good"}
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	n := NewNotifier([]Sender{bad, good}, nil, slog.New(slog.DiscardHandler))

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1, "one sender failing must not block the rest")
}

func TestSettledMessage(t *testing.T) {
	rec := domain.SettlementRecord{
		MarketID:    "mkt-1",
		MatchID:     "match-9",
		Outcome:     domain.OutcomeDraw,
		TotalPool:   400_000_000,
		WinnerCount: 2,
		PerWinner:   190_000_000,
		CreatorFee:  8_000_000,
		PlatformFee: 12_000_000,
	}

	title, message := SettledMessage(rec)
	assert.Contains(t, title, "mkt-1")
	assert.Contains(t, message, "match-9")
	assert.Contains(t, message, "draw")
	assert.Contains(t, message, "190000000")
}
