// Package feed bridges the external score provider and the settlement
// pipeline: one loop publishes live score updates onto the signal bus, the
// other consumes finished matches and triggers settlement.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/notify"
	"github.com/sportpools/matchpool/internal/platform/scorestream"
)

// MatchesChannel is the signal bus channel carrying score updates.
const MatchesChannel = "matches"

// feedDownThreshold is the number of consecutive failed connection attempts
// before a feed.down notification fires.
const feedDownThreshold = 3

// matchEvent is the JSON shape published to the matches channel.
type matchEvent struct {
	MatchID   string `json:"match_id"`
	HomeScore *int64 `json:"home_score"`
	AwayScore *int64 `json:"away_score"`
	Finished  bool   `json:"finished"`
}

// ScoreFeed connects to the score provider WebSocket, subscribes to the
// configured competitions, and republishes every score update on the signal
// bus. It reconnects on disconnect.
type ScoreFeed struct {
	wsURL            string
	apiKey           string
	competitions     []string
	reconnectBackoff time.Duration
	handshakeTimeout time.Duration
	bus              domain.SignalBus
	scores           domain.MatchCache
	notifier         *notify.Notifier
	logger           *slog.Logger
	closeOnce        sync.Once
	done             chan struct{}

	failures int
}

// ScoreFeedConfig holds the parameters for a ScoreFeed.
type ScoreFeedConfig struct {
	WsURL            string
	ApiKey           string
	Competitions     []string
	ReconnectBackoff time.Duration
	HandshakeTimeout time.Duration
}

// NewScoreFeed creates a feed that republishes provider score updates on bus
// and records the latest snapshot per match in scores. A nil scores cache
// disables recording; a nil notifier disables feed.down alerts.
func NewScoreFeed(cfg ScoreFeedConfig, bus domain.SignalBus, scores domain.MatchCache, notifier *notify.Notifier, logger *slog.Logger) *ScoreFeed {
	backoff := cfg.ReconnectBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	handshake := cfg.HandshakeTimeout
	if handshake <= 0 {
		handshake = 15 * time.Second
	}
	return &ScoreFeed{
		wsURL:            cfg.WsURL,
		apiKey:           cfg.ApiKey,
		competitions:     cfg.Competitions,
		reconnectBackoff: backoff,
		handshakeTimeout: handshake,
		bus:              bus,
		scores:           scores,
		notifier:         notifier,
		logger:           logger.With(slog.String("component", "score_feed")),
		done:             make(chan struct{}),
	}
}

// Run connects, subscribes to the configured competitions, and runs until
// ctx is cancelled. Reconnects with backoff on disconnect.
func (f *ScoreFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		connCtx, cancel := context.WithTimeout(ctx, f.handshakeTimeout)
		err := f.runConnection(ctx, connCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.failures++
		f.logger.Warn("score feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", f.failures),
		)
		if f.failures == feedDownThreshold && f.notifier != nil {
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 5*time.Second)
			title, message := notify.FeedDownMessage(f.wsURL, f.failures, err)
			if nerr := f.notifier.Notify(notifyCtx, notify.EventFeedDown, title, message); nerr != nil {
				f.logger.Debug("feed down notification failed", slog.String("error", nerr.Error()))
			}
			notifyCancel()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectBackoff):
		}
	}
}

func (f *ScoreFeed) runConnection(ctx, connCtx context.Context) error {
	client := scorestream.NewWSClient(f.wsURL, f.apiKey, f.handshakeTimeout)
	defer client.Close()

	client.OnScore(func(snap domain.MatchSnapshot) {
		f.publish(snap)
	})

	if err := client.Connect(connCtx); err != nil {
		return err
	}
	if err := client.Subscribe(connCtx, f.competitions); err != nil {
		return err
	}
	f.failures = 0
	f.logger.Info("score feed subscribed", slog.Int("competitions", len(f.competitions)))

	<-ctx.Done()
	return ctx.Err()
}

func (f *ScoreFeed) publish(snap domain.MatchSnapshot) {
	ev := matchEvent{
		MatchID:   snap.MatchID,
		HomeScore: snap.HomeScore,
		AwayScore: snap.AwayScore,
		Finished:  snap.Finished,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if f.scores != nil {
		if err := f.scores.Set(ctx, snap); err != nil {
			f.logger.Debug("cache score update failed",
				slog.String("match_id", snap.MatchID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := f.bus.Publish(ctx, MatchesChannel, payload); err != nil {
		f.logger.Debug("publish score update failed",
			slog.String("match_id", snap.MatchID),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops the feed.
func (f *ScoreFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
