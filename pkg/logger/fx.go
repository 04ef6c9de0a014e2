package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/config"
)

// Module provides the logger for fx dependency injection.
var Module = fx.Module("logger",
	fx.Provide(ProvideLogger),
	fx.Provide(func(l *Logger) *zap.Logger { return l.Logger }),
)

// ProvideLogger builds the logger from the loaded configuration and ties its
// flush to the fx lifecycle.
func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*Logger, error) {
	lcfg := &Config{
		Level:       Level(cfg.Logging.Level),
		OutputPath:  cfg.LogFilePath(),
		MaxSize:     cfg.Logging.MaxSize,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAge,
		Compress:    cfg.Logging.Compress,
		Development: cfg.Logging.Development,
	}

	log, err := New(lcfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Stdout sync errors are expected on some platforms.
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}
