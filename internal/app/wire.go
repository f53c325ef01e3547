package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/hypertrack/internal/blob/s3"
	"github.com/alanyoungcy/hypertrack/internal/cache/redis"
	"github.com/alanyoungcy/hypertrack/internal/config"
	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/alanyoungcy/hypertrack/internal/notify"
	"github.com/alanyoungcy/hypertrack/internal/pipeline"
	"github.com/alanyoungcy/hypertrack/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hypertrack/internal/service"
	"github.com/alanyoungcy/hypertrack/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	AddressStore         domain.AddressStore
	PositionStore        domain.TrackedPositionStore
	HistoryStore         *postgres.HistoryStore
	RecipientStore       domain.RecipientStore
	HiddenStore          domain.HiddenPositionStore
	NotificationLogStore domain.NotificationLogStore

	// Cache and bus
	PriceCache domain.PriceCache
	SignalBus  domain.SignalBus

	// Exchange client
	InfoClient *hyperliquid.InfoClient

	// Services
	PriceService    *service.PriceService
	SnapshotService *service.SnapshotService
	DisplayService  *service.DisplayService
	TrackerService  *service.TrackerService
	Dispatcher      *notify.Dispatcher

	// Background loops
	Poller   *pipeline.Poller
	Archiver *pipeline.Archiver
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.AddressStore = postgres.NewAddressStore(pool)
	deps.PositionStore = postgres.NewTrackedPositionStore(pool)
	deps.HistoryStore = postgres.NewHistoryStore(pool)
	deps.RecipientStore = postgres.NewRecipientStore(pool)
	deps.HiddenStore = postgres.NewHiddenPositionStore(pool)
	deps.NotificationLogStore = postgres.NewNotificationLogStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Exchange client ---
	deps.InfoClient = hyperliquid.NewInfoClient(
		cfg.Hyperliquid.InfoURL,
		time.Duration(cfg.Hyperliquid.TimeoutSeconds)*time.Second,
	)

	// --- Services ---
	deps.PriceService = service.NewPriceService(
		deps.InfoClient,
		deps.PriceCache,
		time.Duration(cfg.Tracker.PriceTTLSeconds)*time.Second,
		logger,
	)
	deps.SnapshotService = service.NewSnapshotService(
		deps.InfoClient,
		cfg.Tracker.BatchSize,
		time.Duration(cfg.Tracker.BatchPauseMs)*time.Millisecond,
		logger,
	)
	deps.DisplayService = service.NewDisplayService(
		deps.PositionStore,
		deps.HiddenStore,
		deps.AddressStore,
		deps.PriceService,
		logger,
	)

	emailClient := notify.NewEmailClient(
		cfg.Notify.SendEndpoint,
		cfg.Notify.APIKey,
		cfg.Notify.FromAddress,
		10*time.Second,
	)
	deps.Dispatcher = notify.NewDispatcher(
		emailClient,
		deps.RecipientStore,
		deps.NotificationLogStore,
		cfg.Notify.MaxAttempts,
		time.Duration(cfg.Notify.BaseDelayMs)*time.Millisecond,
		time.Duration(cfg.Notify.MaxDelayMs)*time.Millisecond,
		logger,
	)

	deps.TrackerService = service.NewTrackerService(
		deps.AddressStore,
		deps.PositionStore,
		deps.HistoryStore,
		deps.SnapshotService,
		deps.PriceService,
		deps.Dispatcher,
		deps.DisplayService,
		deps.SignalBus,
		logger,
	)

	// --- Background loops ---
	deps.Poller = pipeline.NewPoller(deps.TrackerService, cfg.PollInterval(), logger)

	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		blobArchiver := s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.HistoryStore,
			deps.NotificationLogStore,
		)
		deps.Archiver = pipeline.NewArchiver(blobArchiver, cfg.Archive.RetentionDays, logger)
	}

	return deps, cleanup, nil
}
