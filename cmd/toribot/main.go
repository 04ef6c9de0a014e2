// Package main is the entry point for the toribot CLI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/backend"
	"toribot/pkg/commands"
	"toribot/pkg/config"
	"toribot/pkg/gateway"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/pairing"
	"toribot/pkg/process"
	"toribot/pkg/session"
	"toribot/pkg/version"
)

const logo = "🐦"

var (
	configPath string
	message    string
	chatSender string
)

var rootCmd = &cobra.Command{
	Use:   "toribot",
	Short: "toribot - KakaoTalk bridge for a local AI assistant",
	Long: `toribot bridges KakaoTalk to a locally running AI assistant. It serves
the Kakao skill webhook, forwards slash commands to the assistant CLI, and
relays everything else as chat.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Make the -c flag visible to every config load in this process.
		if path := strings.TrimSpace(configPath); path != "" {
			os.Setenv(config.ConfigPathEnv, path)
		}
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from this terminal",
	Long: `Talk to the assistant through the same pipeline the webhook uses,
without KakaoTalk in the loop. The terminal sender is admitted
automatically, so no pairing code is needed.

Examples:
  # Interactive mode
  toribot chat

  # One-shot mode
  toribot chat -m "What is on my calendar today?"

  # Keep a separate conversation
  toribot chat -s cli:scratch`,
	Run: runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	// Chat command flags
	chatCmd.Flags().StringVarP(&message, "message", "m", "", "send a single message (non-interactive)")
	chatCmd.Flags().StringVarP(&chatSender, "sender", "s", "cli:user", "sender id for conversation history")

	// Add commands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(versionCmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if message != "" {
		runOneShot(ctx, cancel)
	} else {
		runInteractive(ctx, cancel)
	}
}

// chatModules is the module set for terminal sessions: the full decision
// pipeline, but no webhook server and no maintenance scheduler.
func chatModules() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		session.Module,
		pairing.Module,
		process.Module,
		commands.Module,
		backend.Module,
		kakao.Module,
		fx.Provide(gateway.ProvideOrchestrator),
	)
}

func runOneShot(ctx context.Context, cancel context.CancelFunc) {
	app := fx.New(
		chatModules(),

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, orch *gateway.Orchestrator, store *pairing.Store) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer cancel()

						if err := store.Admit(chatSender, "Local terminal"); err != nil {
							log.Error("Failed to admit terminal sender", zap.Error(err))
							os.Exit(1)
						}

						fmt.Printf("\n%s %s\n", logo, orch.Answer(ctx, chatSender, message))
					}()
					return nil
				},
			})
		}),
		fx.NopLogger, // Suppress fx logs
	)

	if err := app.Start(ctx); err != nil {
		fmt.Printf("Error starting chat: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Printf("Error stopping chat: %v\n", err)
	}
}

func runInteractive(ctx context.Context, cancel context.CancelFunc) {
	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", logo)

	app := fx.New(
		chatModules(),

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, orch *gateway.Orchestrator, store *pairing.Store) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer cancel()

						if err := store.Admit(chatSender, "Local terminal"); err != nil {
							log.Error("Failed to admit terminal sender", zap.Error(err))
							os.Exit(1)
						}

						if err := interactiveLoop(ctx, orch); err != nil {
							log.Error("Interactive loop failed", zap.Error(err))
						}
					}()
					return nil
				},
			})
		}),
		fx.NopLogger, // Suppress fx logs
	)

	if err := app.Start(ctx); err != nil {
		fmt.Printf("Error starting chat: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Printf("Error stopping chat: %v\n", err)
	}
}

func interactiveLoop(ctx context.Context, orch *gateway.Orchestrator) error {
	prompt := fmt.Sprintf("%s You: ", logo)

	// Try to use readline for better UX
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".toribot_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	if err != nil {
		fmt.Printf("Warning: readline not available, using simple mode\n")
		return simpleInteractiveLoop(ctx, orch)
	}
	defer rl.Close()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		fmt.Printf("\n%s %s\n\n", logo, orch.Answer(ctx, chatSender, input))
	}
}

func simpleInteractiveLoop(ctx context.Context, orch *gateway.Orchestrator) error {
	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		default:
		}

		fmt.Printf("%s You: ", logo)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		fmt.Printf("\n%s %s\n\n", logo, orch.Answer(ctx, chatSender, input))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
