package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		logger.Error("init yt-dlp client", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, logger)
	configureStages(manager, cfg, store, logger, fetcher)

	d, err := daemon.New(cfg, store, logger, manager, fetcher)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("spoold shutting down")
}
