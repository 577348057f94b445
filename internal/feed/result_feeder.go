package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sportpools/matchpool/internal/domain"
)

// Settler settles every market riding on a finished match. Implemented by
// the settlement service.
type Settler interface {
	SettleMatch(ctx context.Context, match domain.MatchSnapshot) error
}

// ResultFeeder subscribes to the matches channel and triggers settlement for
// every finished match. In-play updates are ignored; only the final whistle
// matters here.
type ResultFeeder struct {
	bus     domain.SignalBus
	settler Settler
	logger  *slog.Logger
}

// NewResultFeeder creates a ResultFeeder.
func NewResultFeeder(bus domain.SignalBus, settler Settler, logger *slog.Logger) *ResultFeeder {
	return &ResultFeeder{
		bus:     bus,
		settler: settler,
		logger:  logger.With(slog.String("component", "result_feeder")),
	}
}

// Run subscribes to the matches channel and calls the settler for each
// finished match until ctx is cancelled.
func (f *ResultFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, MatchesChannel)
	if err != nil {
		return err
	}
	f.logger.Info("result feeder started")
	defer f.logger.Info("result feeder stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if err := f.handleMessage(ctx, data); err != nil {
				f.logger.Warn("result feeder handle message failed",
					slog.String("error", err.Error()),
					slog.Int("payload_len", len(data)),
				)
			}
		}
	}
}

func (f *ResultFeeder) handleMessage(ctx context.Context, data []byte) error {
	var ev matchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	if ev.MatchID == "" || !ev.Finished {
		return nil
	}

	match := domain.MatchSnapshot{
		MatchID:   ev.MatchID,
		HomeScore: ev.HomeScore,
		AwayScore: ev.AwayScore,
		Finished:  ev.Finished,
	}

	err := f.settler.SettleMatch(ctx, match)
	if err != nil && !errors.Is(err, domain.ErrAlreadySettled) {
		return err
	}
	return nil
}
