package commands

import (
	"context"
	"strings"
	"testing"

	"toribot/pkg/directive"
	"toribot/pkg/session"
)

func builtinRegistry(t *testing.T) (*Registry, *session.Manager) {
	t.Helper()

	sessions := session.NewManager(t.TempDir(), 20)
	registry := NewRegistry()
	err := RegisterBuiltinCommands(registry, BuiltinDeps{
		Sessions: sessions,
		Program:  "claude",
		Models:   []string{"opus", "sonnet", "haiku"},
	})
	if err != nil {
		t.Fatalf("RegisterBuiltinCommands failed: %v", err)
	}
	return registry, sessions
}

func TestMenuCommandCarriesCuratedQuickReplies(t *testing.T) {
	registry, _ := builtinRegistry(t)

	menu, ok := registry.Resolve(Marker)
	if !ok {
		t.Fatal("bare marker not registered")
	}
	if len(menu.QuickReplies) == 0 {
		t.Fatal("menu has no quick replies")
	}
	for _, qr := range menu.QuickReplies {
		if qr.Label == "" || !IsCommand(qr.Message) {
			t.Errorf("quick reply %+v must resubmit a command", qr)
		}
	}

	response, err := menu.Handler(context.Background(), CommandRequest{Command: Marker})
	if err != nil {
		t.Fatalf("menu handler failed: %v", err)
	}
	if response == "" {
		t.Error("menu handler returned no prompt")
	}

	for _, cmd := range registry.List() {
		if cmd.Token != Marker && len(cmd.QuickReplies) != 0 {
			t.Errorf("%s carries default quick replies, only the menu may", cmd.Token)
		}
	}
}

func TestHelpListsRegisteredCommands(t *testing.T) {
	registry, _ := builtinRegistry(t)

	help, ok := registry.Resolve("/help")
	if !ok {
		t.Fatal("/help not registered")
	}
	out, err := help.Handler(context.Background(), CommandRequest{Command: "/help"})
	if err != nil {
		t.Fatalf("help handler failed: %v", err)
	}
	for _, token := range []string{"/clear", "/model", "/status", "/think", "/version"} {
		if !strings.Contains(out, token) {
			t.Errorf("help omits %s", token)
		}
	}

	alias, ok := registry.Resolve("/h")
	if !ok {
		t.Fatal("/h not registered")
	}
	if alias != help {
		t.Error("/h must share the /help definition")
	}
}

func TestStatusRunsTheCLI(t *testing.T) {
	registry, _ := builtinRegistry(t)

	cmd, ok := registry.Resolve("/status")
	if !ok {
		t.Fatal("/status not registered")
	}
	if !cmd.IsExternal() {
		t.Fatal("/status must be an external command")
	}
	if cmd.Template != "claude status" {
		t.Errorf("unexpected /status template %q", cmd.Template)
	}
}

func TestClearCommandClearsHistory(t *testing.T) {
	registry, sessions := builtinRegistry(t)
	sessionID := "kakao:alpha"

	if err := sessions.Append(sessionID, session.RoleUser, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := sessions.Append(sessionID, session.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	cmd, ok := registry.Resolve("/clear")
	if !ok {
		t.Fatal("/clear not registered")
	}
	if !cmd.ResetsSession {
		t.Error("/clear must flag a session reset")
	}

	first, err := cmd.Handler(context.Background(), CommandRequest{Command: "/clear", SessionID: sessionID})
	if err != nil {
		t.Fatalf("clear handler failed: %v", err)
	}
	if first == "" {
		t.Fatal("clear handler returned no confirmation")
	}
	if got := sessions.Recent(sessionID); len(got) != 0 {
		t.Errorf("history survived /clear: %d messages", len(got))
	}

	// Clearing an already-empty history returns the same confirmation.
	second, err := cmd.Handler(context.Background(), CommandRequest{Command: "/clear", SessionID: sessionID})
	if err != nil {
		t.Fatalf("clear handler failed on empty history: %v", err)
	}
	if first != second {
		t.Errorf("confirmation changed between runs: %q vs %q", first, second)
	}
}

func TestClearAliasesShareTheDefinition(t *testing.T) {
	registry, _ := builtinRegistry(t)

	canonical, ok := registry.Resolve("/clear")
	if !ok {
		t.Fatal("/clear not registered")
	}
	for _, alias := range []string{"/reset", "/new"} {
		cmd, ok := registry.Resolve(alias)
		if !ok {
			t.Fatalf("%s not registered", alias)
		}
		if cmd != canonical {
			t.Errorf("%s does not share the /clear definition", alias)
		}
	}
}

func TestModeHandlersNameTheSameSetInUsageAndRejection(t *testing.T) {
	registry, _ := builtinRegistry(t)
	ctx := context.Background()

	for _, token := range []string{"/think", "/verbose", "/reasoning", "/elevate", "/model"} {
		cmd, ok := registry.Resolve(token)
		if !ok {
			t.Fatalf("%s not registered", token)
		}

		usage, err := cmd.Handler(ctx, CommandRequest{Command: token, Args: ""})
		if err != nil {
			t.Fatalf("%s usage failed: %v", token, err)
		}
		start := strings.Index(usage, "<")
		end := strings.LastIndex(usage, ">")
		if start < 0 || end <= start {
			t.Fatalf("usage for %s does not enumerate a value set: %q", token, usage)
		}
		set := usage[start+1 : end]
		if !strings.Contains(set, "|") {
			t.Errorf("usage set for %s looks wrong: %q", token, set)
		}

		rejection, err := cmd.Handler(ctx, CommandRequest{Command: token, Args: "bogus-value"})
		if err != nil {
			t.Fatalf("%s rejection failed: %v", token, err)
		}
		if !strings.Contains(rejection, set) {
			t.Errorf("rejection for %s does not name the accepted set %q: %q", token, set, rejection)
		}
		if !strings.Contains(rejection, "bogus-value") {
			t.Errorf("rejection for %s does not echo the value: %q", token, rejection)
		}
	}
}

func TestAcceptedModeValuesRoundTripAsDirectives(t *testing.T) {
	registry, _ := builtinRegistry(t)
	ctx := context.Background()

	cases := []struct {
		token  string
		values []string
	}{
		{"/think", []string{"off", "minimal", "low", "medium", "high", "xhigh"}},
		{"/verbose", []string{"on", "full", "off"}},
		{"/reasoning", []string{"on", "off", "stream"}},
		{"/elevate", []string{"on", "off", "ask", "full"}},
		{"/model", []string{"opus", "sonnet", "haiku"}},
	}

	for _, tc := range cases {
		cmd, ok := registry.Resolve(tc.token)
		if !ok {
			t.Fatalf("%s not registered", tc.token)
		}
		for _, value := range tc.values {
			response, err := cmd.Handler(ctx, CommandRequest{Command: tc.token, Args: value})
			if err != nil {
				t.Fatalf("%s %s failed: %v", tc.token, value, err)
			}
			if !strings.Contains(response, "from the next message") {
				t.Errorf("%s %s response lacks the deferred-effect note: %q", tc.token, value, response)
			}

			head := tc.token + " " + value
			got := directive.Extract(head + " hello")
			if len(got.Directives) != 1 || got.Directives[0] != head {
				t.Errorf("accepted value %q did not round-trip as a directive: %+v", head, got)
			}
			if got.Clean != "hello" {
				t.Errorf("remainder after %q = %q, want %q", head, got.Clean, "hello")
			}
		}
	}
}

func TestVersionCommandReportsVersion(t *testing.T) {
	registry, _ := builtinRegistry(t)

	cmd, ok := registry.Resolve("/version")
	if !ok {
		t.Fatal("/version not registered")
	}
	out, err := cmd.Handler(context.Background(), CommandRequest{Command: "/version"})
	if err != nil {
		t.Fatalf("version handler failed: %v", err)
	}
	if out == "" {
		t.Error("version handler returned nothing")
	}
}
