package providerfactory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/providers"
)

// Manager owns the provider instances and resolves requested provider names.
// It implements providers.Lookup.
//
// Manager is thread-safe and can be used concurrently.
type Manager struct {
	mu          sync.RWMutex
	providers   map[string]providers.Provider
	disabled    map[string]bool
	defaultName string
}

// NewManager creates an empty provider manager.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]providers.Provider),
		disabled:  make(map[string]bool),
	}
}

// NewManagerFromConfig creates a manager holding every enabled provider in
// cfg. Disabled entries are remembered so that resolving them reports a
// clear error.
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	m := NewManager()
	if err := m.LoadFromConfig(cfg); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// LoadFromConfig adds every enabled provider in cfg and sets the default.
// Any errors are collected and returned as a single error.
func (m *Manager) LoadFromConfig(cfg *config.Config) error {
	var failed []string

	for name, pc := range cfg.Providers.Entries {
		if !pc.IsEnabled() {
			m.mu.Lock()
			m.disabled[name] = true
			m.mu.Unlock()
			slog.Info("provider disabled", "name", name)
			continue
		}
		if err := m.AddProvider(FromConfig(name, pc, cfg.Stream)); err != nil {
			failed = append(failed, name)
			slog.Error("failed to load provider",
				"name", name,
				"error", err,
			)
		}
	}

	m.SetDefault(cfg.Providers.Default)

	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("failed to load %d provider(s): %v", len(failed), failed)
	}

	slog.Info("providers loaded",
		"count", m.ProviderCount(),
		"default", cfg.Providers.Default,
	)
	return nil
}

// AddProvider creates and registers a provider. If a provider with the same
// name already exists, it is replaced and the old one is closed.
func (m *Manager) AddProvider(pc providers.ProviderConfig) error {
	provider, err := NewProvider(pc)
	if err != nil {
		return fmt.Errorf("failed to add provider %q: %w", pc.Name, err)
	}
	m.Register(provider)
	return nil
}

// Register adds an already constructed provider.
func (m *Manager) Register(provider providers.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := provider.GetName()
	if existing, ok := m.providers[name]; ok {
		slog.Warn("replacing existing provider", "name", name)
		existing.Close()
	}
	m.providers[name] = provider
	delete(m.disabled, name)

	slog.Info("provider added to manager",
		"name", name,
		"type", provider.GetType(),
		"total_providers", len(m.providers),
	)
}

// SetDefault sets the provider used when a request names none.
func (m *Manager) SetDefault(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = name
}

// GetProvider returns a provider by name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[name]
	if !ok {
		return nil, &providers.UnknownProviderError{Provider: name}
	}
	return provider, nil
}

// ResolveProvider maps a requested provider name to a registered one. An
// empty name selects the default. Unknown and disabled names are errors.
func (m *Manager) ResolveProvider(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultName
	}
	if m.disabled[name] {
		return "", &providers.ConfigError{
			Provider: name,
			Field:    "enabled",
			Message:  "provider is disabled",
		}
	}
	if _, ok := m.providers[name]; !ok {
		return "", &providers.UnknownProviderError{Provider: name}
	}
	return name, nil
}

// GetProviderNames returns the registered provider names in sorted order.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the total number of providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// Close closes all providers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]providers.Provider)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}
	slog.Info("provider manager closed")
	return nil
}

// GetHealthSummary returns a summary of provider health status.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := HealthSummary{
		Total:   len(m.providers),
		Details: make(map[string]providers.ProviderHealth, len(m.providers)),
	}
	for name, provider := range m.providers {
		health := provider.GetHealth()
		summary.Details[name] = health
		if health.IsHealthy {
			summary.Healthy++
		}
	}
	summary.Unhealthy = summary.Total - summary.Healthy
	return summary
}

// HealthSummary provides an overview of provider health across the manager.
type HealthSummary struct {
	Total     int
	Healthy   int
	Unhealthy int

	// Details contains per-provider health information
	Details map[string]providers.ProviderHealth
}
