package commands

import (
	"context"
	"fmt"
	"strings"

	"toribot/pkg/session"
	"toribot/pkg/version"
)

// menuQuickReplies is the curated set attached to the bare marker
// command. Ordering is display order.
var menuQuickReplies = []QuickReply{
	{Label: "Help", Message: "/help"},
	{Label: "Status", Message: "/status"},
	{Label: "New topic", Message: "/clear"},
}

// Accepted values for the mode-setting commands. The directive patterns
// recognize the same sets, so an acknowledged value round-trips as a
// directive on the next message.
var (
	thinkLevels    = []string{"off", "minimal", "low", "medium", "high", "xhigh"}
	verboseLevels  = []string{"on", "full", "off"}
	reasoningModes = []string{"on", "off", "stream"}
	elevationModes = []string{"on", "off", "ask", "full"}
)

// BuiltinDeps carries what the built-in commands close over.
type BuiltinDeps struct {
	// Sessions is the conversation store cleared by /clear.
	Sessions *session.Manager
	// Program is the external CLI the /status template and unknown
	// tokens expand to.
	Program string
	// Models is the accepted value set for /model.
	Models []string
}

// RegisterBuiltinCommands registers the bridge's command table.
func RegisterBuiltinCommands(registry *Registry, deps BuiltinDeps) error {
	builtins := []*Command{
		{
			Token:        "/",
			Description:  "Show the quick menu",
			Handler:      menuHandler,
			QuickReplies: menuQuickReplies,
		},
		{
			Token:       "/help",
			Description: "List available commands",
			Handler:     helpHandler(registry),
		},
		{
			Token:       "/version",
			Description: "Show bridge version",
			Handler:     versionHandler,
		},
		{
			Token:         "/clear",
			Description:   "Clear conversation history",
			Handler:       clearHandler(deps.Sessions),
			ResetsSession: true,
		},
		{
			Token:       "/status",
			Description: "Show assistant status",
			Template:    deps.Program + " status",
		},
		{
			Token:       "/model",
			Description: "Choose the answering model",
			Handler:     modeHandler("/model", "Model", deps.Models),
		},
		{
			Token:       "/think",
			Description: "Set thinking depth",
			Handler:     modeHandler("/think", "Thinking depth", thinkLevels),
		},
		{
			Token:       "/verbose",
			Description: "Set answer verbosity",
			Handler:     modeHandler("/verbose", "Verbosity", verboseLevels),
		},
		{
			Token:       "/reasoning",
			Description: "Set reasoning display",
			Handler:     modeHandler("/reasoning", "Reasoning display", reasoningModes),
		},
		{
			Token:       "/elevate",
			Description: "Set elevation mode",
			Handler:     modeHandler("/elevate", "Elevation", elevationModes),
		},
	}

	for _, cmd := range builtins {
		if err := registry.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %s: %w", cmd.Token, err)
		}
	}

	aliases := map[string]string{
		"/reset": "/clear",
		"/new":   "/clear",
		"/h":     "/help",
	}
	for alias, canonical := range aliases {
		if err := registry.Alias(alias, canonical); err != nil {
			return fmt.Errorf("failed to alias %s: %w", alias, err)
		}
	}

	return nil
}

// menuHandler handles the bare marker.
func menuHandler(ctx context.Context, req CommandRequest) (string, error) {
	return "What would you like to do? Pick an option below, or just type a message to chat.", nil
}

// helpHandler creates the handler for /help.
func helpHandler(registry *Registry) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (string, error) {
		cmds := registry.List()

		var sb strings.Builder
		sb.WriteString("🤖 Available commands\n\n")
		for _, cmd := range cmds {
			if cmd.Token == Marker {
				continue
			}
			sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Token, cmd.Description))
		}
		sb.WriteString("\nAnything else you type goes straight to the assistant.")

		return sb.String(), nil
	}
}

// versionHandler handles /version.
func versionHandler(ctx context.Context, req CommandRequest) (string, error) {
	return version.Full(), nil
}

// clearHandler creates the handler for /clear and its aliases.
func clearHandler(sessions *session.Manager) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (string, error) {
		if err := sessions.Clear(req.SessionID); err != nil {
			return "", fmt.Errorf("clearing history: %w", err)
		}
		return "🧹 Conversation history cleared. The next message starts a fresh topic.", nil
	}
}

// modeHandler builds a handler that validates and acknowledges one
// mode-setting option. The bridge only echoes the acknowledgement; the
// backend applies the mode when the matching directive rides a later
// message.
func modeHandler(token, noun string, accepted []string) CommandHandler {
	set := strings.Join(accepted, "|")
	return func(ctx context.Context, req CommandRequest) (string, error) {
		value := strings.ToLower(strings.TrimSpace(req.Args))
		if value == "" {
			return fmt.Sprintf("Usage: %s <%s>", token, set), nil
		}
		for _, candidate := range accepted {
			if value == candidate {
				return fmt.Sprintf("%s set to %s. Applies from the next message.", noun, value), nil
			}
		}
		return fmt.Sprintf("Invalid value %q for %s. Accepted: %s", value, token, set), nil
	}
}
