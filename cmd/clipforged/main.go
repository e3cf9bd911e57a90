package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/gateway"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/resources"
	"clipforge/internal/storage"
	"clipforge/internal/toolchain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("CLIPFORGE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	format := cfg.Logging.Format
	if format == "" && !isatty.IsTerminal(os.Stdout.Fd()) {
		format = "json"
	}
	logger, err := logging.NewWithFile(logging.Options{
		Level:  cfg.Logging.Level,
		Format: format,
	}, filepath.Join(cfg.Paths.LogDir, "clipforged.log"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		logger.Error("open ledger", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	assets, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error("open storage backend", logging.Error(err))
		os.Exit(1)
	}

	tools := toolchain.New(cfg.Tools)
	models := gateway.New(cfg.Gateway)
	if !models.Configured() {
		logger.Warn("generative gateway not configured, story jobs will fail")
	}

	guards := func() *resources.Guard {
		guard := resources.NewGuard(logger)
		registerResources(guard)
		return guard
	}

	contracts := pipeline.Contracts{
		Transcriber: tools,
		Detector:    tools,
		Text:        models,
		Image:       models,
		Voice:       models,
		Prober:      tools,
		Editor:      tools,
		Frames:      tools,
	}
	orch := pipeline.New(cfg, store, assets, guards, contracts, logger)
	sweeper := pipeline.NewSweeper(store, cfg, logger)
	retention := storage.NewRetention(assets, cfg.Storage, logger)

	d, err := daemon.New(cfg, store, orch, sweeper, retention, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("clipforged shutting down")
	d.Stop()
}

// registerResources installs placeholder handles for the heavyweight tools.
// Residency tracking is what matters; the CLIs load their own weights per
// invocation.
func registerResources(guard *resources.Guard) {
	for _, name := range []string{
		pipeline.ResourceTranscriber,
		pipeline.ResourceDetector,
		pipeline.ResourceTextGen,
		pipeline.ResourceImageGen,
		pipeline.ResourceVoice,
	} {
		guard.Register(name, func(context.Context) (resources.Handle, error) {
			return noopHandle{}, nil
		})
	}
}

type noopHandle struct{}

func (noopHandle) Close() error { return nil }
