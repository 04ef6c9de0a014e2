// Package commands implements the slash-command surface of the bridge:
// parsing, the command table, and execution including fall-through to
// the external CLI for unknown tokens.
package commands

import (
	"context"
)

// Marker is the leading character that makes a message a command.
const Marker = "/"

// PairToken is reserved for the pairing flow, which runs before the
// sender is verified. The table never handles it.
const PairToken = "/pair"

// Command represents one table entry. Exactly one of Template or
// Handler may be populated; Register rejects entries that violate this.
type Command struct {
	// Token is the command token including the marker, e.g. "/status".
	Token string
	// Description is a short description for help listings.
	Description string
	// Template is the external command line this token expands to.
	Template string
	// Handler executes the command in-process.
	Handler CommandHandler
	// QuickReplies ride along with every response from this command.
	QuickReplies []QuickReply
	// ResetsSession marks commands that wipe conversation history.
	ResetsSession bool
}

// IsExternal reports whether the command expands to an external CLI
// invocation rather than an in-process handler.
func (c *Command) IsExternal() bool {
	return c.Template != ""
}

// CommandHandler executes a command in-process and returns response
// text.
type CommandHandler func(ctx context.Context, req CommandRequest) (string, error)

// CommandRequest contains information about a command invocation.
type CommandRequest struct {
	// Command is the lowercase token including the marker.
	Command string
	// Args is the text after the command, trimmed.
	Args string
	// SessionID identifies the conversation.
	SessionID string
}

// CommandResult is the outcome of running the command pipeline.
type CommandResult struct {
	// Handled reports whether a final response was produced. When
	// false the caller falls through to chat handling.
	Handled bool
	// Response is the text to deliver. Always non-empty when Handled.
	Response string
	// SessionReset reports that the command wiped conversation history.
	SessionReset bool
	// QuickReplies to deliver with the response, if any.
	QuickReplies []QuickReply
}

// QuickReply is a tappable suggestion delivered with a response. The
// message is resubmitted verbatim when tapped.
type QuickReply struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}
