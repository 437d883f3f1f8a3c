package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/okian/engage/internal/adapters/http/api"
	"github.com/okian/engage/internal/adapters/http/swagger"
	"github.com/okian/engage/internal/adapters/repository"
	service "github.com/okian/engage/internal/app"
	"github.com/okian/engage/internal/config"
	"github.com/okian/engage/internal/domain/calendar"
	"github.com/okian/engage/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	storeOpenTimeout  = 15 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := initLogger(cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "engage exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) error {
	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	if err := logger.Init(opts...); err != nil {
		return err
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store_driver", cfg.StoreDriver),
			logger.String("timezone", cfg.Timezone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService opens the configured store and builds the engagement service.
func newService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	cal, err := calendar.Load(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
	defer cancel()
	store, err := repository.Open(openCtx, repository.Config{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		MaxConns:    int32(cfg.DBMaxConns), //nolint:gosec // validated positive and small
	})
	if err != nil {
		return nil, err
	}

	return service.New(
		service.WithLogger(logger.Get()),
		service.WithStore(store),
		service.WithCalendar(cal),
		service.WithLeaderboardSize(cfg.LeaderboardSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithAwardQueueSize(cfg.AwardQueueSize),
		service.WithAwardWorkers(cfg.AwardWorkerCount),
		service.WithSettleInterval(cfg.SettleInterval()),
	), nil
}

// newHandler registers the API and the docs routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	apiServer := api.NewServer(svc, svc,
		api.WithLogger(logger.Get()),
		api.WithRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.TrustedProxies...),
		api.WithRoutes(func(r chi.Router) { swagger.Register(r) }),
	)
	return apiServer.Handler(ctx)
}
