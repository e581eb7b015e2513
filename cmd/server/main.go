package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comanda-app/api/internal/cache"
	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/logger"
	"github.com/comanda-app/api/internal/notify"
	"github.com/comanda-app/api/internal/router"
	"github.com/comanda-app/api/internal/service"
	"github.com/comanda-app/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		version, err := database.Migrate(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Uint("version", version))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database")

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	// Redis is optional: without it events stay in-process and tracking
	// reads go straight to the database.
	var notifier notify.Notifier = hub
	var tracking service.TrackingCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		notifier = notify.Multi{hub, notify.NewRedisPublisher(rdb, log)}
		tracking = cache.NewTrackingCache(rdb, cfg.TrackingCacheTTL, log)
	} else {
		log.Warn("REDIS_URL not set, delivery tracking positions are disabled")
	}

	r := router.New(cfg, router.Deps{
		Queries:  database.New(pool),
		Pool:     pool,
		Hub:      hub,
		Notifier: notifier,
		Tracking: tracking,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
