package backend

import (
	"go.uber.org/fx"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// Module provides the chat backend client.
var Module = fx.Module("backend",
	fx.Provide(ProvideClient),
)

// ProvideClient builds the client from configuration.
func ProvideClient(cfg *config.Config, log *logger.Logger) *Client {
	return NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Model, log)
}
