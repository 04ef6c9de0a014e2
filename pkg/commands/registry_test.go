package commands

import (
	"context"
	"testing"
)

func noopHandler(ctx context.Context, req CommandRequest) (string, error) {
	return "ok", nil
}

func TestRegisterRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
	}{
		{"nil command", nil},
		{"empty token", &Command{Handler: noopHandler}},
		{"neither handler nor template", &Command{Token: "/x"}},
		{"both handler and template", &Command{Token: "/x", Template: "x", Handler: noopHandler}},
		{"reserved pairing token", &Command{Token: "/pair", Handler: noopHandler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			if err := registry.Register(tt.cmd); err == nil {
				t.Error("Register accepted an invalid definition")
			}
		})
	}
}

func TestRegisterRejectsCaseVariantDuplicate(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&Command{Token: "/x", Handler: noopHandler}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := registry.Register(&Command{Token: "/X", Handler: noopHandler}); err == nil {
		t.Error("expected duplicate error for case-variant token")
	}
}

func TestResolveIsExactAndCaseInsensitive(t *testing.T) {
	registry := NewRegistry()
	cmd := &Command{Token: "/status", Template: "claude status"}
	if err := registry.Register(cmd); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := registry.Resolve("/STATUS")
	if !ok {
		t.Fatal("Resolve missed a case-variant lookup")
	}
	if got != cmd {
		t.Error("Resolve returned a different definition")
	}

	if _, ok := registry.Resolve("/stat"); ok {
		t.Error("Resolve must not prefix-match")
	}
}

func TestAliasSharesCanonicalDefinition(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&Command{Token: "/clear", Handler: noopHandler}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Alias("/reset", "/clear"); err != nil {
		t.Fatalf("Alias failed: %v", err)
	}

	canonical, _ := registry.Resolve("/clear")
	alias, ok := registry.Resolve("/reset")
	if !ok {
		t.Fatal("alias did not resolve")
	}
	if alias != canonical {
		t.Error("alias must share the canonical definition, not copy it")
	}
}

func TestAliasRequiresRegisteredCanonical(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Alias("/reset", "/clear"); err == nil {
		t.Error("expected error aliasing an unregistered token")
	}
}

func TestListSortsAndSkipsAliases(t *testing.T) {
	registry := NewRegistry()
	for _, token := range []string{"/b", "/a"} {
		if err := registry.Register(&Command{Token: token, Handler: noopHandler}); err != nil {
			t.Fatalf("Register(%s) failed: %v", token, err)
		}
	}
	if err := registry.Alias("/c", "/a"); err != nil {
		t.Fatalf("Alias failed: %v", err)
	}

	list := registry.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(list))
	}
	if list[0].Token != "/a" || list[1].Token != "/b" {
		t.Errorf("expected sorted canonical tokens, got %s, %s", list[0].Token, list[1].Token)
	}
}
