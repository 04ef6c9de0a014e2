package config

import (
	"strings"
	"testing"
)

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateConfigRejectsMissingBackendURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "   "

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation error for backend url")
	}

	validationErrors, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	for _, validationErr := range validationErrors {
		if validationErr.Field == "backend.base_url" {
			return
		}
	}
	t.Fatalf("expected backend.base_url validation error, got %v", err)
}

func TestValidateConfigRejectsRelativeBackendURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "://bad-url"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation error for invalid backend url")
	}
	if !strings.Contains(err.Error(), "backend.base_url") {
		t.Fatalf("expected backend.base_url validation error, got %v", err)
	}
}

func TestValidateConfigCollectsAllFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	cfg.CLI.Program = ""
	cfg.CLI.TimeoutMS = -1
	cfg.Logging.Level = "loud"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation errors")
	}

	validationErrors, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	requiredFields := map[string]bool{
		"server.port":    false,
		"cli.program":    false,
		"cli.timeout_ms": false,
		"logging.level":  false,
	}

	for _, validationErr := range validationErrors {
		if _, ok := requiredFields[validationErr.Field]; ok {
			requiredFields[validationErr.Field] = true
		}
	}

	for field, found := range requiredFields {
		if !found {
			t.Fatalf("expected validation error for %s, got %v", field, err)
		}
	}
}

func TestValidateConfigRejectsDuplicateModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models.Allowed = []string{"opus", "sonnet", "opus"}

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation error for duplicate model")
	}
	if !strings.Contains(err.Error(), "models.allowed[2]") {
		t.Fatalf("expected models.allowed[2] validation error, got %v", err)
	}
}

func TestValidationErrorsFormatsMultiple(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}

	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Fatalf("expected count header, got %q", msg)
	}
	if !strings.Contains(msg, "a: first") || !strings.Contains(msg, "b: second") {
		t.Fatalf("expected both errors listed, got %q", msg)
	}
}
