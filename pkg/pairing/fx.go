package pairing

import (
	"go.uber.org/fx"

	"toribot/pkg/config"
)

// Module provides the pairing store for fx dependency injection.
var Module = fx.Module("pairing",
	fx.Provide(ProvideStore),
)

// ProvideStore provides the pairing store from configuration.
func ProvideStore(cfg *config.Config) *Store {
	return NewStore(cfg.PairingStorePath(), cfg.Pairing.CodeHash)
}
