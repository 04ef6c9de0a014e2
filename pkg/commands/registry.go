package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry manages command registration and lookup. Alias tokens map to
// the canonical entry's *Command, so canonical updates reach every
// alias.
type Registry struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// Register registers a new command.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}
	if strings.TrimSpace(cmd.Token) == "" {
		return fmt.Errorf("command token cannot be empty")
	}
	if cmd.Template != "" && cmd.Handler != nil {
		return fmt.Errorf("command %s: template and handler are mutually exclusive", cmd.Token)
	}
	if cmd.Template == "" && cmd.Handler == nil {
		return fmt.Errorf("command %s: either template or handler is required", cmd.Token)
	}

	cmd.Token = normalizeToken(cmd.Token)
	if cmd.Token == PairToken {
		return fmt.Errorf("token %s is reserved for pairing", PairToken)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Token]; exists {
		return fmt.Errorf("command %s already registered", cmd.Token)
	}

	r.commands[cmd.Token] = cmd
	return nil
}

// Alias points an alternative token at an already registered command.
func (r *Registry) Alias(alias, canonical string) error {
	alias = normalizeToken(alias)
	canonical = normalizeToken(canonical)

	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, exists := r.commands[canonical]
	if !exists {
		return fmt.Errorf("alias %s: unknown command %s", alias, canonical)
	}
	if _, exists := r.commands[alias]; exists {
		return fmt.Errorf("alias %s already registered", alias)
	}

	r.commands[alias] = cmd
	return nil
}

// Resolve looks a token up by exact, case-insensitive match.
func (r *Registry) Resolve(token string) (*Command, bool) {
	token = normalizeToken(token)

	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, exists := r.commands[token]
	return cmd, exists
}

// List returns the canonical commands sorted by token. Alias entries
// are folded into their canonical command.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]*Command, 0, len(r.commands))
	for token, cmd := range r.commands {
		if token == cmd.Token {
			cmds = append(cmds, cmd)
		}
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Token < cmds[j].Token
	})
	return cmds
}

// normalizeToken lowercases a token and guarantees the leading marker.
func normalizeToken(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if !strings.HasPrefix(token, Marker) {
		token = Marker + token
	}
	return token
}
