package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sportpools/matchpool/internal/crypto"
	"github.com/sportpools/matchpool/internal/engine"
	"github.com/sportpools/matchpool/internal/feed"
	"github.com/sportpools/matchpool/internal/server"
	"github.com/sportpools/matchpool/internal/server/handler"
	"github.com/sportpools/matchpool/internal/server/ws"
	"github.com/sportpools/matchpool/internal/service"
)

// engineParts bundles the payout engine pieces shared across subsystems: the
// calculator and advisor feed the same error history the API exposes.
type engineParts struct {
	calc    *engine.Calculator
	advisor *engine.RecoveryAdvisor
	history *engine.ErrorHistory
}

func (a *App) buildEngine() (*engineParts, error) {
	history := engine.NewErrorHistory(a.cfg.Engine.ErrorHistorySize)
	calc, err := engine.NewCalculator(a.cfg.Fees.Policy(), history)
	if err != nil {
		return nil, fmt.Errorf("app: build engine: %w", err)
	}
	return &engineParts{
		calc:    calc,
		advisor: engine.NewRecoveryAdvisor(a.cfg.Engine.MaxRetryAttempts, history),
		history: history,
	}, nil
}

func (a *App) buildMarketService(deps *Dependencies, parts *engineParts) *service.MarketService {
	return service.NewMarketService(
		deps.MarketStore,
		deps.ParticipantStore,
		deps.MarketCache,
		deps.MatchCache,
		deps.PayoutCache,
		parts.calc,
		a.cfg.Engine.PayoutCacheTTL.Duration,
		a.logger,
	)
}

func (a *App) buildSettlementService(deps *Dependencies, parts *engineParts) *service.SettlementService {
	return service.NewSettlementService(a.cfg.Fees.Policy(), service.SettlementDeps{
		Markets:      deps.MarketStore,
		Participants: deps.ParticipantStore,
		Settlements:  deps.SettlementStore,
		Audit:        deps.AuditStore,
		Cache:        deps.MarketCache,
		Payouts:      deps.PayoutCache,
		Scores:       deps.MatchCache,
		Locks:        deps.LockManager,
		Bus:          deps.SignalBus,
		Notifier:     deps.Notifier,
		Advisor:      parts.advisor,
	}, a.logger)
}

// ServeMode runs the HTTP API and WebSocket hub.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	parts, err := a.buildEngine()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, parts)
	return g.Wait()
}

// SettleMode runs the score feed, the result feeder that settles finished
// matches, and the cold-storage archive loop.
func (a *App) SettleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting settle mode")

	parts, err := a.buildEngine()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startSettlementPipeline(ctx, g, deps, parts); err != nil {
		return err
	}
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// FullMode runs every subsystem: the HTTP API, the score feed, settlement,
// and archival.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	parts, err := a.buildEngine()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, parts)
	}
	if err := a.startSettlementPipeline(ctx, g, deps, parts); err != nil {
		return err
	}
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer builds the services and handlers, attaches the WebSocket
// hub, and runs the server until the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, parts *engineParts) {
	marketSvc := a.buildMarketService(deps, parts)
	settlementSvc := a.buildSettlementService(deps, parts)

	hub := ws.NewHub(deps.SignalBus, a.logger, a.cfg.Mode)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(a.logger),
			Markets:     handler.NewMarketHandler(marketSvc, a.logger),
			Settlements: handler.NewSettlementHandler(settlementSvc, a.logger),
			Errors:      handler.NewErrorsHandler(parts.history, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startSettlementPipeline connects the live-score feed to the settlement
// service: the feed publishes score updates on the bus, the feeder consumes
// finished matches and settles the attached markets.
func (a *App) startSettlementPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, parts *engineParts) error {
	apiKey, err := crypto.LoadCredential(crypto.CredentialConfig{
		RawSecret:     a.cfg.Feed.ApiKey,
		EncryptedPath: a.cfg.Feed.EncryptedKeyPath,
		Password:      a.cfg.Feed.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: load feed credential: %w", err)
	}

	scoreFeed := feed.NewScoreFeed(feed.ScoreFeedConfig{
		WsURL:            a.cfg.Feed.WsURL,
		ApiKey:           apiKey,
		Competitions:     a.cfg.Feed.Competitions,
		ReconnectBackoff: a.cfg.Feed.ReconnectBackoff.Duration,
		HandshakeTimeout: a.cfg.Feed.HandshakeTimeout.Duration,
	}, deps.SignalBus, deps.MatchCache, deps.Notifier, a.logger)

	g.Go(func() error {
		defer scoreFeed.Close()
		return scoreFeed.Run(ctx)
	})

	settlementSvc := a.buildSettlementService(deps, parts)
	feeder := feed.NewResultFeeder(deps.SignalBus, settlementSvc, a.logger)
	g.Go(func() error {
		return feeder.Run(ctx)
	})

	return nil
}

// startArchiveLoop periodically moves settlement records and audit entries
// older than the retention window to cold storage. It is a no-op when
// archival is not wired.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retentionDays := a.cfg.Archive.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 90
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

				n, err := deps.Archiver.ArchiveSettlements(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "settlement archive failed",
						slog.String("error", err.Error()),
					)
				} else if n > 0 {
					a.logger.InfoContext(ctx, "archived settlements",
						slog.Int64("count", n),
						slog.Time("cutoff", cutoff),
					)
				}

				n, err = deps.Archiver.ArchiveAudit(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "audit archive failed",
						slog.String("error", err.Error()),
					)
				} else if n > 0 {
					a.logger.InfoContext(ctx, "archived audit entries",
						slog.Int64("count", n),
						slog.Time("cutoff", cutoff),
					)
				}
			}
		}
	})
}
