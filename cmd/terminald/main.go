package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tillsync/internal/bus"
	"tillsync/internal/config"
	"tillsync/internal/infra"
	"tillsync/internal/probe"
	"tillsync/internal/remote"
	"tillsync/internal/replica"
	"tillsync/internal/router"
	"tillsync/internal/session"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

func main() {
	// Structured logger: pretty console in dev, JSON otherwise
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewLocalDB(cfg.LocalDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local replica")
	}

	// Redis carries the session broadcast channel and the sync DLQ. A
	// terminal without Redis still works; events stay in-process.
	var eventBus bus.Bus
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process event bus")
		rdb = nil
		eventBus = bus.NewMemory()
	} else {
		eventBus = bus.NewRedis(rdb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.TerminalID, cfg.RemoteTimeout())
	connProbe := probe.NewHTTPProbe(client, cfg.ProbeInterval(), cfg.RemoteTimeout())
	go connProbe.Start(ctx)

	store := replica.NewStore(db)
	coordinator := syncer.New(client, store, connProbe, cfg.RemoteTimeout())

	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	flusher := syncer.NewFlusher(coordinator, cb, rdb, eventBus, syncer.FlusherConfig{
		Interval:   cfg.SyncInterval(),
		BatchSize:  cfg.SyncBatchSize,
		MaxRetries: cfg.SyncMaxRetries,
	})
	go flusher.Start(ctx)

	shifts := shift.NewManager(coordinator)
	guard := session.NewGuard(coordinator, store, shifts, eventBus, cfg)
	coordinator.SetValidator(guard)
	if err := guard.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore session marker")
	}

	r := router.New(router.Deps{
		Cfg:         cfg,
		DB:          db,
		RDB:         rdb,
		Probe:       connProbe,
		Coordinator: coordinator,
		Shifts:      shifts,
		Guard:       guard,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("terminal_id", cfg.TerminalID).Msgf("tillsync terminal listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down terminal…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("terminal exited")
}
