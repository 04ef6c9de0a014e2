package cron

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/config"
	"toribot/pkg/logger"
	"toribot/pkg/session"
)

// Module provides the maintenance scheduler for fx dependency
// injection.
var Module = fx.Module("cron",
	fx.Provide(ProvideScheduler),
	fx.Invoke(registerLifecycle),
)

// ProvideScheduler builds the scheduler with the standard maintenance
// tasks: idle-session pruning and a periodic stats line.
func ProvideScheduler(cfg *config.Config, sessions *session.Manager, log *logger.Logger) (*Scheduler, error) {
	s := New(log)
	if !cfg.Cron.Enabled {
		return s, nil
	}

	err := s.Add("session-prune", cfg.Cron.PruneSchedule, func() error {
		evicted := sessions.PruneIdle(cfg.SessionIdle())
		if evicted > 0 {
			log.Info("Idle sessions pruned", zap.Int("count", evicted))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.Add("session-stats", cfg.Cron.StatsSchedule, func() error {
		stats := sessions.Stats()
		log.Info("Session store stats",
			zap.Int("sessions", stats.Sessions),
			zap.Int("messages", stats.Messages))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func registerLifecycle(lc fx.Lifecycle, s *Scheduler, cfg *config.Config, log *logger.Logger) {
	if !cfg.Cron.Enabled {
		log.Info("Maintenance scheduler disabled")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}
