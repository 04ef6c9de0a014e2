package config

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides configuration for fx dependency injection.
var Module = fx.Module("config",
	fx.Provide(ProvideLoader),
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideRuntime),
)

// ProvideLoader provides a configuration loader.
func ProvideLoader() *Loader {
	return NewLoader()
}

// ProvideConfig provides loaded and validated configuration.
func ProvideConfig(loader *Loader) (*Config, error) {
	cfg, err := loader.Load("")
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if err := cfg.EnsureWorkspace(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ProvideRuntime provides the live configuration view.
func ProvideRuntime(cfg *Config) *Runtime {
	return NewRuntime(cfg)
}

// ProvideWatcher provides a configuration watcher with hot-reload.
// Reloaded configurations are swapped into the runtime view so running
// services pick up new values without a restart.
func ProvideWatcher(loader *Loader, cfg *Config, rt *Runtime, lc fx.Lifecycle, logger *zap.Logger) (*Watcher, error) {
	watcher := NewWatcher(loader, cfg)

	watcher.AddHandler(func(newCfg *Config) error {
		rt.Swap(newCfg)
		logger.Info("Configuration reloaded",
			zap.String("backend_model", newCfg.Backend.Model),
			zap.Int("allowed_models", len(newCfg.Models.Allowed)),
		)
		return nil
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting configuration watcher")
			return watcher.Start()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping configuration watcher")
			watcher.Stop()
			return nil
		},
	})

	return watcher, nil
}
