package resilience

import (
	"context"
	"errors"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

// AcousticFallback implements [acoustic.Provider] with automatic failover
// across multiple inference backends, typically an in-process model as the
// primary and a hosted API as the fallback. Each backend has its own circuit
// breaker.
//
// Errors that would fail identically on every backend — an invalid clip or a
// cancelled caller — are returned immediately without trying fallbacks.
type AcousticFallback struct {
	group *FallbackGroup[acoustic.Provider]
}

var _ acoustic.Provider = (*AcousticFallback)(nil)

// NewAcousticFallback creates an [AcousticFallback] with primary as the
// preferred backend. The config's Unrecoverable hook is replaced with the
// acoustic error classification.
func NewAcousticFallback(primary acoustic.Provider, primaryName string, cfg FallbackConfig) *AcousticFallback {
	cfg.Unrecoverable = func(err error) bool {
		return errors.Is(err, acoustic.ErrAudioInvalid) ||
			errors.Is(err, audio.ErrInvalid) ||
			errors.Is(err, context.Canceled)
	}
	return &AcousticFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional acoustic backend as a fallback.
func (f *AcousticFallback) AddFallback(name string, provider acoustic.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs inference against the first healthy backend.
func (f *AcousticFallback) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	return ExecuteWithResult(f.group, func(p acoustic.Provider) (*acoustic.Observation, error) {
		return p.Transcribe(ctx, clip)
	})
}

// Close closes every registered backend that exposes a Close method and
// returns the joined errors.
func (f *AcousticFallback) Close() error {
	var errs []error
	for i := range f.group.entries {
		if closer, ok := any(f.group.entries[i].value).(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
