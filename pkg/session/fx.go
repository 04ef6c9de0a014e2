package session

import (
	"path/filepath"

	"go.uber.org/fx"

	"toribot/pkg/config"
)

// Module provides session management for fx dependency injection.
var Module = fx.Module("session",
	fx.Provide(ProvideManager),
)

// ProvideManager provides the conversation store rooted in the workspace.
func ProvideManager(cfg *config.Config) *Manager {
	return NewManager(filepath.Join(cfg.WorkspacePath(), "sessions"), cfg.RecentWindow())
}
