// Package mock provides a scripted acoustic.Provider for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

// Provider is a configurable in-memory acoustic.Provider. The zero value
// returns an empty Observation for every call. All fields must be set
// before first use; Provider is safe for concurrent use afterwards.
type Provider struct {
	// Observation is returned by every call when Fn is nil.
	Observation *acoustic.Observation

	// Err, when non-nil, is returned instead of an observation.
	Err error

	// Delay simulates inference latency. The delay respects ctx: if the
	// context expires first, Transcribe returns ctx.Err().
	Delay time.Duration

	// Fn, when set, overrides Observation/Err entirely and computes the
	// result from the clip. Useful for per-request result verification.
	Fn func(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error)

	mu    sync.Mutex
	calls int
}

var _ acoustic.Provider = (*Provider)(nil)

// Transcribe implements acoustic.Provider.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.Fn != nil {
		return p.Fn(ctx, clip)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Observation != nil {
		return p.Observation, nil
	}
	return &acoustic.Observation{}, nil
}

// Calls returns how many times Transcribe has been invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
