// Command gearbake loads a model, plays its animations headlessly and bakes
// image-based lighting textures from an equirectangular environment image.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/internal/config"
	"github.com/Carmen-Shannon/oxy-gear/internal/logger"

	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		logger.Error("gearbake failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Bake.Model == "" && cfg.Bake.Env == "" && !cfg.ImageProcessing.WatchPipelines {
		return errors.New("nothing to do: set -model, -env or image_processing.watch_pipelines")
	}

	device, err := gpu.NewDevice(gpu.BackendTypeWGPU,
		gpu.WithLabel("gearbake"),
		gpu.WithFamily(gpu.ParseFamily(cfg.GPU.Family)),
		gpu.WithForceFallbackAdapter(cfg.GPU.ForceFallbackAdapter),
		gpu.WithLogger(logger.Named("gpu")),
	)
	if err != nil {
		return err
	}
	defer device.Release()

	b := newBaker(cfg, device, os.Stderr)
	defer b.Release()

	if cfg.Bake.Model != "" {
		if _, err := b.inspectModel(cfg.Bake.Model); err != nil {
			return err
		}
	}

	if cfg.Bake.Env != "" {
		env, err := b.bakeEnvironment(cfg.Bake.Env)
		if err != nil {
			return err
		}
		defer env.Release()
	}

	if cfg.ImageProcessing.WatchPipelines {
		if err := b.ip.WatchPipelines(ctx); err != nil {
			return err
		}
		logger.Info("waiting for interrupt")
		<-ctx.Done()
	}
	return nil
}
