// Package acoustic defines the Provider interface for acoustic inference
// backends and the observation types they produce.
//
// A provider wraps an ASR/acoustic model (a local whisper.cpp model, the
// hosted OpenAI transcription API, or a remote phoneme-posterior server) and
// exposes a uniform batch interface: given a validated PCM clip it returns a
// transcript, word timestamps, an observed phoneme sequence, and per-frame
// posterior probabilities over the phoneme vocabulary.
//
// Providers never retry internally. Retrying inside the provider would
// double-charge the scarce inference resource; retry policy belongs to the
// caller behind the scheduler.
//
// Implementations must be safe for concurrent use: model weights are loaded
// once and shared read-only, while all per-call state stays on the stack of
// the Transcribe call.
package acoustic

import (
	"context"
	"errors"
	"time"

	"github.com/vietspeak/vietspeak/pkg/audio"
)

// ErrAudioInvalid is returned when the clip violates the provider's format
// contract (empty, wrong rate, out-of-bounds duration).
var ErrAudioInvalid = errors.New("acoustic: invalid audio")

// ErrTimeout is returned when the underlying model does not answer within
// the call's deadline. The partial inference result, if any, is discarded.
var ErrTimeout = errors.New("acoustic: inference timeout")

// Word is a transcript word with its acoustic time span.
type Word struct {
	Text       string
	Start, End time.Duration
	Confidence float64
}

// Phone is one observed phoneme with its time span within the clip.
type Phone struct {
	Symbol     string
	Start, End time.Duration
}

// Frame holds the posterior distribution over the phoneme vocabulary at one
// analysis frame. Probs is indexed by [Vocabulary] order and sums to 1 ±ε.
type Frame struct {
	Time  time.Duration
	Probs []float64
}

// Observation is the complete output of one inference call. It is owned by
// the requesting context and discarded after scoring; providers must not
// retain references to it.
type Observation struct {
	Transcript string
	Words      []Word
	Phones     []Phone
	Frames     []Frame

	// Degraded is true when the backend cannot produce true phoneme
	// posteriors and Frames were synthesized from coarser confidence
	// signals (e.g. Whisper token probabilities). GOP scores derived from
	// a degraded observation are indicative, not calibrated.
	Degraded bool
}

// Provider is the abstraction over any acoustic inference backend.
type Provider interface {
	// Transcribe runs inference over the clip. It must respect ctx
	// cancellation and return [ErrTimeout] (possibly wrapped) when the
	// deadline elapses mid-inference. On success the Observation satisfies:
	// monotonically non-decreasing Phone and Word timestamps, and every
	// Frame.Probs summing to 1 ±ε over the vocabulary.
	Transcribe(ctx context.Context, clip audio.Clip) (*Observation, error)
}

// BatchProvider is implemented by backends that can amortise fixed inference
// cost across several clips in a single model invocation. Results are
// returned in input order; a failed item yields a nil Observation with the
// error in the matching errs slot, and must not fail the whole batch.
type BatchProvider interface {
	Provider

	TranscribeBatch(ctx context.Context, clips []audio.Clip) (obs []*Observation, errs []error)
}
