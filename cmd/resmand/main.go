package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resman/internal/api"
	"resman/internal/audit"
	"resman/internal/events"
	"resman/internal/manager"
	"resman/internal/store"
	"resman/pkg/resman"
)

// main launches resmand.
func main() {
	os.Exit(run())
}

// run executes resmand and returns an exit code.
func run() int {
	configPath := flag.String("config", "config.yaml", "path to resmand config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	kv, err := buildStore(cfg)
	if err != nil {
		logger.Error("store error", zap.Error(err))
		return 1
	}
	defer kv.Close()

	publisher, closeAudit, err := buildPublisher(cfg, logger)
	if err != nil {
		logger.Error("audit error", zap.Error(err))
		return 1
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	mgr := manager.New(manager.Config{
		Logger:             logger,
		Store:              kv,
		Publisher:          publisher,
		SweepInterval:      sweepInterval(cfg),
		DisableMaintenance: cfg.Maintenance.Disabled,
		Pools:              seedPools(cfg, time.Now()),
	})

	handler := api.NewHandler(api.Config{Manager: mgr})
	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		logger.Error("manager start error", zap.Error(err))
		return 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return mgr.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

// buildStore selects the durable store backend from configuration.
func buildStore(cfg config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.SQLitePath)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return store.NewRedisStore(client), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// buildPublisher wires the log publisher, adding the DuckDB audit archive
// when configured.
func buildPublisher(cfg config, logger *zap.Logger) (events.Publisher, func(), error) {
	logPub := events.NewLogPublisher(logger)
	if cfg.Audit.Path == "" {
		return logPub, nil, nil
	}
	archive, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return nil, nil, err
	}
	closeArchive := func() {
		if err := archive.Close(); err != nil {
			logger.Warn("audit close failed", zap.Error(err))
		}
	}
	return events.Fanout(logPub, archive), closeArchive, nil
}

// defaultPoolSeeds exposes the manager defaults to config seeding.
func defaultPoolSeeds(now time.Time) []resman.ResourcePool {
	return manager.DefaultPools(now)
}
