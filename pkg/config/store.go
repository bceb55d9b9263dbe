package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Store holds the live configuration and notifies subscribers when it is
// replaced. Readers always observe a fully validated *Config.
//
// Components that support hot reload (admission enforcement, the Origin
// allow-list, log level) subscribe with OnChange; everything else reads the
// configuration once at startup.
type Store struct {
	path    string
	resolve Resolver
	cur     atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(old, updated *Config)
}

// Resolver rewrites a freshly loaded configuration before it is published,
// for example to substitute secret references.
type Resolver func(cfg *Config) error

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithResolver runs fn on every configuration the store loads.
func WithResolver(fn Resolver) StoreOption {
	return func(s *Store) { s.resolve = fn }
}

// NewStore creates a store seeded with cfg. path is the file Reload reads.
func NewStore(path string, cfg *Config, opts ...StoreOption) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	s.cur.Store(cfg)
	return s
}

// OpenStore loads path with environment overrides and returns a store for it.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	s := NewStore(path, nil, opts...)
	cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cur.Store(cfg)
	return s, nil
}

func (s *Store) load() (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(s.path)
	if err != nil {
		return nil, err
	}
	if s.resolve != nil {
		if err := s.resolve(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Get returns the current configuration.
func (s *Store) Get() *Config {
	return s.cur.Load()
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// OnChange registers fn to be called after every successful reload.
func (s *Store) OnChange(fn func(old, updated *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the backing file. On failure the current configuration is
// kept and the error is returned.
func (s *Store) Reload() error {
	cfg, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	s.Replace(cfg)
	return nil
}

// Replace swaps in cfg and notifies subscribers.
func (s *Store) Replace(cfg *Config) {
	old := s.cur.Swap(cfg)

	s.mu.Lock()
	listeners := append([]func(old, updated *Config){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
}
