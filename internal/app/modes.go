package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hypertrack/internal/server"
	"github.com/alanyoungcy/hypertrack/internal/server/handler"
	"github.com/alanyoungcy/hypertrack/internal/server/ws"
)

// ServeMode runs the full stack: poll loop, archive loop, WebSocket hub, and
// HTTP API server.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Poller.Run(ctx)
	})

	if deps.Archiver != nil {
		interval := time.Duration(a.cfg.Archive.IntervalHours) * time.Hour
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx, interval)
		})
	}

	wsHub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return wsHub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Positions:  handler.NewPositionHandler(deps.DisplayService, deps.HiddenStore, a.logger),
		Addresses:  handler.NewAddressHandler(deps.AddressStore, a.logger),
		Recipients: handler.NewRecipientHandler(deps.RecipientStore, deps.NotificationLogStore, a.logger),
		Analytics:  handler.NewAnalyticsHandler(deps.HistoryStore, a.logger),
		Settings:   handler.NewSettingsHandler(deps.Poller, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, wsHub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// PollMode runs only the poll and archive loops, for headless deployments
// where another instance serves the API.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poll mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Poller.Run(ctx)
	})

	if deps.Archiver != nil {
		interval := time.Duration(a.cfg.Archive.IntervalHours) * time.Hour
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx, interval)
		})
	}

	return g.Wait()
}
