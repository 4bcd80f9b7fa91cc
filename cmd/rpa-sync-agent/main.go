package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/hqops/rpa-sync-agent/internal/config"
	"github.com/hqops/rpa-sync-agent/internal/logging"
	"github.com/hqops/rpa-sync-agent/internal/metrics"
	"github.com/hqops/rpa-sync-agent/internal/state"
	"github.com/hqops/rpa-sync-agent/internal/storage"
	"github.com/hqops/rpa-sync-agent/internal/syncer"
)

func main() {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}

	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("[main] failed to set up logging: %v", err)
	}
	logger := logging.Component("main")
	logger.Info("RPA sync agent starting", "version", syncer.Version, "git_sha", syncer.GitSHA, "config", cfgPath)

	mappings, err := cfg.Mappings()
	if err != nil {
		log.Fatalf("[main] failed to expand path templates: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init("rpa_sync")
		go func() {
			logger.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	remote, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:          cfg.AWS.Bucket,
		Region:          cfg.AWS.RegionName,
		Endpoint:        cfg.AWS.Endpoint,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("[main] failed to open remote store: %v", err)
	}
	defer remote.Close()

	clock := clockwork.NewRealClock()
	stateStore := state.NewFileStore(cfg.Sync.StatePath, clock)

	s, err := syncer.New(cfg, mappings, remote, stateStore, clock, m)
	if err != nil {
		log.Fatalf("[main] failed to create syncer: %v", err)
	}

	if err := s.Run(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("shutdown complete")
		} else {
			log.Fatalf("[main] sync loop failed: %v", err)
		}
	}
}
