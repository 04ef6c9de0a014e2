package commands

import (
	"go.uber.org/fx"

	"toribot/pkg/config"
	"toribot/pkg/logger"
	"toribot/pkg/process"
	"toribot/pkg/session"
)

// Module provides the command table and executor.
var Module = fx.Module("commands",
	fx.Provide(
		ProvideRegistry,
		ProvideExecutor,
	),
)

// ProvideRegistry builds a registry populated with the built-in
// command table.
func ProvideRegistry(cfg *config.Config, sessions *session.Manager) (*Registry, error) {
	registry := NewRegistry()
	err := RegisterBuiltinCommands(registry, BuiltinDeps{
		Sessions: sessions,
		Program:  cfg.CLI.Program,
		Models:   cfg.Models.Allowed,
	})
	if err != nil {
		return nil, err
	}
	return registry, nil
}

// ProvideExecutor builds the executor on the shared process runner.
func ProvideExecutor(registry *Registry, runner *process.Runner, cfg *config.Config, log *logger.Logger) *Executor {
	return NewExecutor(registry, runner, cfg.CLI.Program, cfg.CLI.UnknownMarkers, log)
}
