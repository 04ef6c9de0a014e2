package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// ValidateConfig validates cfg with a fresh validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate checks the entire configuration and returns all failures at once.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateServer(&cfg.Server)
	v.validateBackend(&cfg.Backend)
	v.validateCLI(&cfg.CLI)
	v.validateModels(&cfg.Models)
	v.validateSessions(&cfg.Sessions)
	v.validateLogging(&cfg.Logging)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		v.addError("server.port", "port must be between 0 and 65535")
	}
}

func (v *Validator) validateBackend(cfg *BackendConfig) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		v.addError("backend.base_url", "base_url is required")
		return
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("backend.base_url", "base_url must be an absolute http(s) URL")
	}
}

func (v *Validator) validateCLI(cfg *CLIConfig) {
	if strings.TrimSpace(cfg.Program) == "" {
		v.addError("cli.program", "program is required")
	}
	if cfg.TimeoutMS < 0 {
		v.addError("cli.timeout_ms", "timeout_ms must be non-negative")
	}
}

func (v *Validator) validateModels(cfg *ModelsConfig) {
	seen := make(map[string]bool)
	for i, name := range cfg.Allowed {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			v.addError(fmt.Sprintf("models.allowed[%d]", i), "model name cannot be blank")
			continue
		}
		if seen[trimmed] {
			v.addError(fmt.Sprintf("models.allowed[%d]", i), fmt.Sprintf("duplicate model %q", trimmed))
		}
		seen[trimmed] = true
	}
}

func (v *Validator) validateSessions(cfg *SessionsConfig) {
	if cfg.Recent < 0 {
		v.addError("sessions.recent", "recent must be non-negative")
	}
	if cfg.IdleMinutes < 0 {
		v.addError("sessions.idle_minutes", "idle_minutes must be non-negative")
	}
}

func (v *Validator) validateLogging(cfg *LoggingConfig) {
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", "level must be one of: debug, info, warn, error")
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}
