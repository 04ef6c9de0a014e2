package gateway

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/backend"
	"toribot/pkg/commands"
	"toribot/pkg/config"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/pairing"
	"toribot/pkg/session"
)

// Module provides the webhook server for fx dependency injection.
var Module = fx.Module("gateway",
	fx.Provide(
		ProvideOrchestrator,
		NewServer,
	),
	fx.Invoke(registerLifecycle),
)

// ProvideOrchestrator wires the concrete collaborators into the
// orchestrator.
func ProvideOrchestrator(sessions *session.Manager, pairingStore *pairing.Store, executor *commands.Executor, chatBackend *backend.Client, callback *kakao.CallbackClient, log *logger.Logger) *Orchestrator {
	return NewOrchestrator(sessions, pairingStore, executor, chatBackend, callback, log)
}

func registerLifecycle(lc fx.Lifecycle, s *Server, cfg *config.Config, log *logger.Logger) {
	if cfg.Server.Port == 0 {
		log.Info("Webhook server disabled (port not configured)")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting webhook server",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.Stop(shutdownCtx)
		},
	})
}
