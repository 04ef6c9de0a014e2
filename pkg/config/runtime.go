package config

import "sync"

// Runtime holds the currently active configuration and swaps it in
// atomically when the watcher reloads the file. Services that need
// live values read through Current instead of holding a *Config.
type Runtime struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewRuntime creates a runtime view seeded with cfg.
func NewRuntime(cfg *Config) *Runtime {
	return &Runtime{cfg: cfg}
}

// Current returns the active configuration.
func (r *Runtime) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Swap replaces the active configuration.
func (r *Runtime) Swap(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}
