// Package server assembles the HTTP API: routes, middleware, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/server/handler"
	"github.com/alanyoungcy/hypertrack/internal/server/middleware"
	"github.com/alanyoungcy/hypertrack/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Positions  *handler.PositionHandler
	Addresses  *handler.AddressHandler
	Recipients *handler.RecipientHandler
	Analytics  *handler.AnalyticsHandler
	Settings   *handler.SettingsHandler
}

// Server is the dashboard's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required beyond the shared chain).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Position views and visibility toggles.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions/sort", handlers.Positions.SetSort)
	mux.HandleFunc("POST /api/positions/{key}/hide", handlers.Positions.HidePosition)
	mux.HandleFunc("DELETE /api/positions/{key}/hide", handlers.Positions.UnhidePosition)

	// Tracked address management.
	mux.HandleFunc("GET /api/addresses", handlers.Addresses.ListAddresses)
	mux.HandleFunc("POST /api/addresses", handlers.Addresses.CreateAddress)
	mux.HandleFunc("DELETE /api/addresses/{address}", handlers.Addresses.DeleteAddress)
	mux.HandleFunc("PUT /api/addresses/{address}/notifications", handlers.Addresses.SetNotifications)

	// Alert recipients and audit trail.
	mux.HandleFunc("GET /api/recipients", handlers.Recipients.ListRecipients)
	mux.HandleFunc("POST /api/recipients", handlers.Recipients.AddRecipient)
	mux.HandleFunc("DELETE /api/recipients/{email}", handlers.Recipients.RemoveRecipient)
	mux.HandleFunc("GET /api/notifications/log", handlers.Recipients.ListNotificationLog)

	// Analytics and history.
	mux.HandleFunc("GET /api/analytics", handlers.Analytics.GetAnalytics)
	mux.HandleFunc("GET /api/history", handlers.Analytics.ListHistory)

	// Poll schedule.
	mux.HandleFunc("GET /api/settings/interval", handlers.Settings.GetInterval)
	mux.HandleFunc("PUT /api/settings/interval", handlers.Settings.SetInterval)
	mux.HandleFunc("POST /api/refresh", handlers.Settings.TriggerRefresh)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start blocks serving HTTP until an error or shutdown.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
