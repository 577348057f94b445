package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportpools/matchpool/internal/domain"
)

type fakeBus struct {
	messages [][]byte
}

func (b *fakeBus) Publish(context.Context, string, []byte) error      { return nil }
func (b *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte, len(b.messages))
	for _, m := range b.messages {
		ch <- m
	}
	close(ch)
	return ch, nil
}

type fakeSettler struct {
	matches []domain.MatchSnapshot
	err     error
}

func (s *fakeSettler) SettleMatch(_ context.Context, match domain.MatchSnapshot) error {
	s.matches = append(s.matches, match)
	return s.err
}

func runFeeder(t *testing.T, bus *fakeBus, settler *fakeSettler) {
	t.Helper()
	feeder := NewResultFeeder(bus, settler, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The subscription channel closes after draining, so Run returns nil.
	require.NoError(t, feeder.Run(ctx))
}

func TestResultFeederSettlesFinishedMatches(t *testing.T) {
	bus := &fakeBus{messages: [][]byte{
		[]byte(`{"match_id":"m-1","home_score":2,"away_score":1,"finished":true}`),
		[]byte(`{"match_id":"m-2","home_score":0,"away_score":0,"finished":false}`),
		[]byte(`{"match_id":"m-3","home_score":1,"away_score":3,"finished":true}`),
	}}
	settler := &fakeSettler{}

	runFeeder(t, bus, settler)

	require.Len(t, settler.matches, 2, "in-play updates must not settle")
	assert.Equal(t, "m-1", settler.matches[0].MatchID)
	assert.Equal(t, "m-3", settler.matches[1].MatchID)

	winner, ok := settler.matches[0].Winner()
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeHome, winner)
}

func TestResultFeederSkipsMalformedAndEmpty(t *testing.T) {
	bus := &fakeBus{messages: [][]byte{
		[]byte(`not json`),
		[]byte(`{"match_id":"","finished":true}`),
	}}
	settler := &fakeSettler{}

	runFeeder(t, bus, settler)

	assert.Empty(t, settler.matches)
}

func TestResultFeederToleratesAlreadySettled(t *testing.T) {
	bus := &fakeBus{messages: [][]byte{
		[]byte(`{"match_id":"m-1","home_score":1,"away_score":1,"finished":true}`),
	}}
	settler := &fakeSettler{err: domain.ErrAlreadySettled}

	runFeeder(t, bus, settler)

	assert.Len(t, settler.matches, 1)
}
