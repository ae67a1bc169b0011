package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
)

// ErrBackendNotRegistered is returned by [Registry.CreateAcoustic] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// Registry maps backend names to their constructor functions. The binary
// registers the backends it is built with (the whisper backend needs CGO and
// may be absent); CreateAcoustic then instantiates whichever one the config
// selects. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	acoustic map[Backend]func(BackendConfig) (acoustic.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		acoustic: make(map[Backend]func(BackendConfig) (acoustic.Provider, error)),
	}
}

// RegisterAcoustic registers an acoustic backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAcoustic(name Backend, factory func(BackendConfig) (acoustic.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acoustic[name] = factory
}

// CreateAcoustic instantiates the backend registered under cfg.Name.
// Returns [ErrBackendNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateAcoustic(cfg BackendConfig) (acoustic.Provider, error) {
	r.mu.RLock()
	factory, ok := r.acoustic[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// Backends lists the registered backend names.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.acoustic))
	for name := range r.acoustic {
		out = append(out, name)
	}
	return out
}
