package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/backend"
	"toribot/pkg/commands"
	"toribot/pkg/config"
	"toribot/pkg/cron"
	"toribot/pkg/gateway"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/pairing"
	"toribot/pkg/process"
	"toribot/pkg/session"
)

// GatewayService implements the service.Interface for the gateway.
type GatewayService struct {
	app    *fx.App
	logger service.Logger
}

// NewGatewayService creates a new gateway service.
func NewGatewayService() *GatewayService {
	return &GatewayService{}
}

// Start implements service.Interface.Start
func (s *GatewayService) Start(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Starting toribot gateway service")
	}

	// Start in a goroutine to not block
	go s.run()

	return nil
}

// Stop implements service.Interface.Stop
func (s *GatewayService) Stop(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Stopping toribot gateway service")
	}

	if s.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.app.Stop(ctx); err != nil {
			if s.logger != nil {
				s.logger.Errorf("Error stopping service: %v", err)
			}
			return err
		}
	}

	return nil
}

// run starts the gateway application.
func (s *GatewayService) run() {
	s.app = fx.New(
		serveModules(),

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("Gateway service started",
						zap.String("mode", "daemon"))
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.Info("Gateway service stopped")
					return nil
				},
			})
		}),

		fx.NopLogger, // Suppress fx logs when running as service
	)

	// Run the app
	s.app.Run()
}

// serveModules is the full gateway module set: the decision pipeline,
// the webhook server, the maintenance scheduler, and the config
// watcher feeding reloads into running components.
func serveModules() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		session.Module,
		pairing.Module,
		process.Module,
		commands.Module,
		backend.Module,
		kakao.Module,
		gateway.Module,
		cron.Module,

		fx.Provide(config.ProvideWatcher),
		fx.Invoke(registerReload),
	)
}

// registerReload pushes reloaded settings into components that accept
// them live. Everything else picks the new values up on restart.
func registerReload(watcher *config.Watcher, store *pairing.Store) {
	watcher.AddHandler(func(cfg *config.Config) error {
		store.SetCodeHash(cfg.Pairing.CodeHash)
		return nil
	})
}

// ServiceConfig returns the service configuration. An explicit config
// path (flag or TORIBOT_CONFIG_FILE) is baked into the service
// arguments so the daemon reads the same file the installer saw.
func ServiceConfig() *service.Config {
	args := []string{"serve", "run"}
	if path := resolveServiceConfigPath(); path != "" {
		args = append([]string{"-c", path}, args...)
	}

	return &service.Config{
		Name:        "toribot-gateway",
		DisplayName: "Toribot Gateway",
		Description: "KakaoTalk skill webhook bridge for a local AI assistant",
		Arguments:   args,
	}
}

func resolveServiceConfigPath() string {
	if path := strings.TrimSpace(configPath); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(config.ConfigPathEnv))
}

// InstallService installs the gateway as a system service.
func InstallService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Set logger
	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	// Install
	if err := s.Install(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}

	fmt.Println("Service installed successfully!")
	fmt.Println("Use 'toribot serve start' to start the service")
	return nil
}

// UninstallService uninstalls the gateway service.
func UninstallService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Uninstall
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstalling service: %w", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

// StartService starts the gateway service.
func StartService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Start
	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	fmt.Println("Service started successfully!")
	return nil
}

// StopService stops the gateway service.
func StopService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Stop
	if err := s.Stop(); err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	fmt.Println("Service stopped successfully!")
	return nil
}

// RestartService restarts the gateway service.
func RestartService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Restart
	if err := s.Restart(); err != nil {
		return fmt.Errorf("restarting service: %w", err)
	}

	fmt.Println("Service restarted successfully!")
	return nil
}

// StatusService checks the status of the gateway service.
func StatusService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Get status
	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("getting service status: %w", err)
	}

	// Print status
	statusStr := "Unknown"
	switch status {
	case service.StatusRunning:
		statusStr = "Running"
	case service.StatusStopped:
		statusStr = "Stopped"
	case service.StatusUnknown:
		statusStr = "Unknown"
	}

	fmt.Printf("Service Status: %s\n", statusStr)
	return nil
}

// RunService runs the gateway service (called by service manager).
func RunService() error {
	svcConfig := ServiceConfig()
	prg := NewGatewayService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	// Set logger
	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	// Run the service
	if err := s.Run(); err != nil {
		logger.Error(err)
		return err
	}

	return nil
}

// runServeForeground runs the gateway in foreground mode (not as a service).
func runServeForeground() {
	app := fx.New(
		serveModules(),

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("Gateway started",
						zap.String("mode", "foreground"),
						zap.String("host", cfg.Server.Host),
						zap.Int("port", cfg.Server.Port),
						zap.String("backend", cfg.Backend.BaseURL),
						zap.String("cli", cfg.CLI.Program))

					if cfg.Pairing.CodeHash == "" {
						log.Warn("No pairing code set; senders cannot pair until 'toribot pair set-code' is run")
					}

					log.Info("Press Ctrl+C to stop")
					return nil
				},
			})
		}),
	)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down gateway...")
		cancel()
	}()

	// Run the app
	app.Run()

	// Wait for shutdown
	<-ctx.Done()
}
