package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/venuepulse/venuepulse/internal/auth"
	"github.com/venuepulse/venuepulse/internal/config"
	"github.com/venuepulse/venuepulse/internal/notifier"
	"github.com/venuepulse/venuepulse/internal/postgres"
	redisx "github.com/venuepulse/venuepulse/internal/redis"
	postgresrepo "github.com/venuepulse/venuepulse/internal/repository/postgres"
	redisrepo "github.com/venuepulse/venuepulse/internal/repository/redis"
	"github.com/venuepulse/venuepulse/internal/service"
	"github.com/venuepulse/venuepulse/internal/service/occupancy"
	"github.com/venuepulse/venuepulse/internal/service/votes"
	httpgin "github.com/venuepulse/venuepulse/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	hub        *notifier.Hub
	changes    *redisx.ChangeStream
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	changes := redisx.NewChangeStream(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(
		rdb, "venuepulse:v1:rl", cfg.Occupancy.MutationsPerMinute, time.Minute,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Initialize services
	services := service.NewServices(store, cache, changes, limiter, service.Config{
		Occupancy: occupancy.Config{
			RejectAtCapacity: cfg.Occupancy.RejectAtCapacity,
		},
		Votes: votes.Config{
			DefaultWindow: cfg.Trending.DefaultWindow,
			CacheTTL:      cfg.Trending.CacheTTL,
		},
	})

	// Initialize notifier hub and auth
	hub := notifier.NewHub()
	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.RouterDeps{
		Services:    services,
		Idempotency: idempotencyStore,
		Hub:         hub,
		Auth:        httpgin.AuthMiddleware(tm, true),
		OptAuth:     httpgin.AuthMiddleware(tm, false),
		Logger:      logger,
	})

	return &App{
		cfg:     cfg,
		logger:  logger,
		hub:     hub,
		changes: changes,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Run the fan-out hub
	g.Go(func() error {
		return a.hub.Run(gCtx)
	})

	// Bridge redis change events into the hub. Subscribing through redis
	// instead of feeding the hub directly keeps every instance of the
	// service delivering the same stream.
	g.Go(func() error {
		err := a.changes.Subscribe(gCtx, func(ctx context.Context, c redisx.Change) {
			a.hub.Publish(c)
		})
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("change stream subscription: %w", err)
		}
		return nil
	})

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
