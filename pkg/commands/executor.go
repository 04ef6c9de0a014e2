package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"toribot/pkg/logger"
	"toribot/pkg/process"
)

// ackResponse replaces blank successful responses so the user always
// sees a confirmation.
const ackResponse = "✅ Done"

// CommandRunner runs one external command line and returns its cleaned
// output. *process.Runner satisfies it.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// Executor resolves command messages against the registry and runs
// them. Tokens the registry does not know are forwarded to the CLI
// program, which either handles them or reports them as unrecognized.
type Executor struct {
	registry *Registry
	runner   CommandRunner
	program  string
	markers  []string
	log      *logger.Logger
}

// NewExecutor creates a command executor.
func NewExecutor(registry *Registry, runner CommandRunner, program string, markers []string, log *logger.Logger) *Executor {
	return &Executor{
		registry: registry,
		runner:   runner,
		program:  program,
		markers:  markers,
		log:      log,
	}
}

// Execute runs the command carried by message. Handled is false only
// for the pairing token and for forwarded tokens the CLI reports as
// unrecognized; both fall through to chat. A returned error means the
// caller should surface a failure to the user.
func (e *Executor) Execute(ctx context.Context, message, sessionID string) (CommandResult, error) {
	parsed := Parse(message)

	// Pairing runs upstream, before verification. Never resolve it
	// from the table.
	if parsed.Command == PairToken {
		return CommandResult{Handled: false}, nil
	}

	cmd, ok := e.registry.Resolve(parsed.Command)
	if !ok {
		return e.executeUnknown(ctx, parsed)
	}

	var (
		response string
		err      error
	)
	if cmd.IsExternal() {
		response, err = e.runner.Run(ctx, composeExternal(cmd.Template, parsed.Args))
	} else {
		response, err = cmd.Handler(ctx, CommandRequest{
			Command:   parsed.Command,
			Args:      parsed.Args,
			SessionID: sessionID,
		})
	}
	if err != nil {
		e.log.Warn("Command failed",
			zap.String("command", cmd.Token),
			zap.Error(err))
		// Partial output from a failed external run beats a bare
		// error line.
		if strings.TrimSpace(response) == "" {
			response = fmt.Sprintf("⚠️ Execution error: %v", err)
		}
	}

	return CommandResult{
		Handled:      true,
		Response:     ensureResponse(response),
		SessionReset: cmd.ResetsSession && err == nil,
		QuickReplies: cmd.QuickReplies,
	}, nil
}

// executeUnknown forwards an unregistered token to the CLI program as
// `<program> <token-without-marker> [args]`.
func (e *Executor) executeUnknown(ctx context.Context, parsed Parsed) (CommandResult, error) {
	command := e.program + " " + strings.TrimPrefix(parsed.Command, Marker)
	if parsed.Args != "" {
		command += " " + parsed.Args
	}

	e.log.Debug("Forwarding unregistered command to CLI",
		zap.String("command", command))

	output, err := e.runner.Run(ctx, command)
	if err != nil {
		if e.isUnrecognized(output, err) {
			e.log.Debug("CLI does not know the command, treating as chat",
				zap.String("token", parsed.Command))
			return CommandResult{Handled: false}, nil
		}
		if strings.TrimSpace(output) != "" {
			return CommandResult{Handled: true, Response: output}, nil
		}
		return CommandResult{}, fmt.Errorf("running %s: %w", parsed.Command, err)
	}

	return CommandResult{Handled: true, Response: ensureResponse(output)}, nil
}

// isUnrecognized reports whether a failed CLI invocation means the
// token is not a command at all. Exit codes 127 (not found) and 126
// (not runnable) are the structural signal; the configured marker
// substrings cover CLIs that exit 1 with an explanatory line.
func (e *Executor) isUnrecognized(output string, err error) bool {
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 127 || exitErr.Code == 126 {
			return true
		}
	}

	scan := strings.ToLower(output + "\n" + err.Error())
	for _, marker := range e.markers {
		if marker == "" {
			continue
		}
		if strings.Contains(scan, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// composeExternal joins a command template with its arguments.
func composeExternal(template, args string) string {
	if args == "" {
		return template
	}
	return template + " " + args
}

// ensureResponse substitutes the fixed acknowledgement for blank
// responses.
func ensureResponse(response string) string {
	if strings.TrimSpace(response) == "" {
		return ackResponse
	}
	return response
}
