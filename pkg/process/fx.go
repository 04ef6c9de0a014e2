package process

import (
	"go.uber.org/fx"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// Module provides the command runner for fx dependency injection.
var Module = fx.Module("process",
	fx.Provide(ProvideRunner),
)

// ProvideRunner provides a runner configured for the external CLI.
func ProvideRunner(cfg *config.Config, log *logger.Logger) *Runner {
	return NewRunner(log, Options{
		Workdir: cfg.CLI.Workdir,
		Timeout: cfg.CLITimeout(),
		UsePTY:  cfg.CLI.UsePTY,
	})
}
