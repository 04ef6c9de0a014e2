package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is a callback function called when configuration changes.
type ChangeHandler func(*Config) error

// Watcher monitors the configuration file and reloads it on change.
// Reloads that fail to parse or validate are dropped; the previous
// configuration stays active.
type Watcher struct {
	loader   *Loader
	config   *Config
	handlers []ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(loader *Loader, config *Config) *Watcher {
	return &Watcher{
		loader:   loader,
		config:   config,
		handlers: make([]ChangeHandler, 0),
	}
}

// AddHandler registers a handler to be called when configuration changes.
func (w *Watcher) AddHandler(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.watching = true
	w.mu.Unlock()

	w.loader.viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := w.loader.Load("")
		if err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}
		if err := ValidateConfig(newConfig); err != nil {
			fmt.Printf("Ignoring invalid config reload: %v\n", err)
			return
		}

		w.mu.Lock()
		w.config = newConfig
		w.mu.Unlock()

		w.notifyHandlers(newConfig)
	})

	w.loader.viper.WatchConfig()

	return nil
}

// Stop stops watching the configuration file.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = false
}

// GetConfig returns the current configuration (thread-safe).
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// notifyHandlers calls all registered handlers with the new configuration.
func (w *Watcher) notifyHandlers(config *Config) {
	w.mu.RLock()
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(config); err != nil {
			fmt.Printf("Error in config change handler: %v\n", err)
		}
	}
}
