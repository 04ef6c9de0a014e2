package commands

import (
	"regexp"
	"strings"
)

// commandLine matches "/token args" or "/token: args".
var commandLine = regexp.MustCompile(`^(/\w+):?\s+(.+)$`)

// Parsed is a normalized command line.
type Parsed struct {
	// Command is the lowercase token including the marker.
	Command string
	// Args is the trimmed remainder, possibly empty.
	Args string
}

// Parse normalizes a message into a command token and arguments. An
// optional colon may separate the token from its arguments. When the
// message does not fit that shape, the whole trimmed lowercased message
// becomes the command with empty arguments.
func Parse(message string) Parsed {
	trimmed := strings.TrimSpace(message)
	if m := commandLine.FindStringSubmatch(trimmed); m != nil {
		return Parsed{
			Command: strings.ToLower(m[1]),
			Args:    strings.TrimSpace(m[2]),
		}
	}
	return Parsed{Command: strings.ToLower(trimmed)}
}

// IsCommand reports whether the trimmed message starts with the command
// marker. This gate runs before Parse; non-command messages skip the
// command pipeline entirely.
func IsCommand(message string) bool {
	return strings.HasPrefix(strings.TrimSpace(message), Marker)
}
