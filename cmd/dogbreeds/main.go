// Command dogbreeds serves the offline-first dog breed catalog over HTTP.
//
// Configuration comes from the environment (and an optional .env file); see
// internal/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/config"
	"github.com/tbourn/go-dogbreeds/internal/connectivity"
	httpapi "github.com/tbourn/go-dogbreeds/internal/http"
	"github.com/tbourn/go-dogbreeds/internal/observability"
	"github.com/tbourn/go-dogbreeds/internal/observe"
	"github.com/tbourn/go-dogbreeds/internal/paging"
	"github.com/tbourn/go-dogbreeds/internal/remote"
	"github.com/tbourn/go-dogbreeds/internal/repo"
	"github.com/tbourn/go-dogbreeds/internal/search"
	"github.com/tbourn/go-dogbreeds/internal/services"
	"github.com/tbourn/go-dogbreeds/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("dogbreeds exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	sysutil.SetupLogger(cfg.OTEL.ServiceName, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, repo.WithTracing())
	if err != nil {
		return fmt.Errorf("open cache db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	wiped, err := repo.Migrate(ctx, db, cfg.SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if wiped {
		log.Info().Int("schema_version", cfg.SchemaVersion).Msg("cache schema changed; cache rebuilt")
	}

	tracker := observe.NewTracker()
	store := cache.New(db, tracker)

	client, err := remote.New(remote.Options{
		BaseURL:       cfg.DogsAPI.BaseURL,
		APIKey:        cfg.DogsAPI.APIKey,
		ImagesBaseURL: cfg.DogsAPI.ImagesBaseURL,
		Timeout:       cfg.DogsAPI.Timeout,
		RPS:           cfg.DogsAPI.RPS,
		Burst:         cfg.DogsAPI.Burst,
	})
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	mediator := paging.NewMediator(store, client)
	mediator.ReplaceOnRefresh = cfg.Paging.ReplaceOnRefresh

	pager := paging.NewPager(store, mediator, paging.Config{
		PageSize:         cfg.Paging.PageSize,
		PrefetchDistance: cfg.Paging.PrefetchDistance,
		InitialRefresh:   cfg.Paging.InitialRefresh,
	})

	idx := search.NewLive(store)
	go idx.Run(ctx, tracker, cache.TableBreeds)

	var conn services.Connectivity
	if checker, err := connectivity.NewChecker(cfg.DogsAPI.BaseURL, cfg.DogsAPI.Timeout, cfg.ConnectivityTTL); err != nil {
		log.Warn().Err(err).Msg("connectivity checks disabled")
	} else {
		conn = checker
	}

	svc := services.NewBreedService(store, pager, idx, conn)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
