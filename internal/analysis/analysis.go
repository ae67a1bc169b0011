// Package analysis orchestrates the pronunciation assessment pipeline:
// reference text to phonemes, acoustic inference, alignment, per-phoneme
// scoring, interference detection, and feedback aggregation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietspeak/vietspeak/internal/align"
	"github.com/vietspeak/vietspeak/internal/feedback"
	"github.com/vietspeak/vietspeak/internal/g2p"
	"github.com/vietspeak/vietspeak/internal/gop"
	"github.com/vietspeak/vietspeak/internal/interference"
	"github.com/vietspeak/vietspeak/internal/observe"
	"github.com/vietspeak/vietspeak/internal/scheduler"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
	"github.com/vietspeak/vietspeak/pkg/pron"
)

// ErrInvalidReference is returned when the reference text is empty or
// contains no pronounceable words.
var ErrInvalidReference = errors.New("analysis: invalid reference text")

// Kind classifies a pipeline failure for callers.
type Kind string

const (
	KindAudioInvalid     Kind = "audio_invalid"
	KindInvalidReference Kind = "invalid_reference"
	KindInferenceTimeout Kind = "inference_timeout"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindInternal         Kind = "internal"
)

// Classify maps a pipeline error to its failure kind. Unknown errors are
// treated as internal.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, audio.ErrInvalid), errors.Is(err, acoustic.ErrAudioInvalid):
		return KindAudioInvalid
	case errors.Is(err, ErrInvalidReference):
		return KindInvalidReference
	case errors.Is(err, scheduler.ErrQueueFull):
		return KindCapacityExceeded
	case errors.Is(err, acoustic.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindInferenceTimeout
	default:
		return KindInternal
	}
}

// Transcriber produces an acoustic observation for a clip. Both
// [scheduler.Scheduler] and any [acoustic.Provider] satisfy it.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error)
}

// DefaultConstraints matches the public API contract: 16 kHz mono clips
// between half a second and thirty seconds.
var DefaultConstraints = audio.Constraints{
	SampleRate:  16000,
	MinDuration: 500 * time.Millisecond,
	MaxDuration: 30 * time.Second,
}

// Option is a functional option for configuring an [Analyzer].
type Option func(*Analyzer)

// WithConstraints overrides the audio admission constraints.
func WithConstraints(c audio.Constraints) Option {
	return func(a *Analyzer) { a.constraints = c }
}

// WithConverter overrides the grapheme-to-phoneme converter.
func WithConverter(c *g2p.Converter) Option {
	return func(a *Analyzer) { a.converter = c }
}

// WithAligner overrides the alignment engine.
func WithAligner(e *align.Engine) Option {
	return func(a *Analyzer) { a.aligner = e }
}

// WithScorer overrides the phoneme scorer.
func WithScorer(s *gop.Scorer) Option {
	return func(a *Analyzer) { a.scorer = s }
}

// WithDetector overrides the interference detector.
func WithDetector(d *interference.Detector) Option {
	return func(a *Analyzer) { a.detector = d }
}

// WithAggregator overrides the feedback aggregator.
func WithAggregator(g *feedback.Aggregator) Option {
	return func(a *Analyzer) { a.aggregator = g }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithMetrics sets the metrics instance used for per-stage latency and
// interference counters. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// Analyzer runs the full assessment pipeline. It holds only immutable state
// after construction and is safe for concurrent use.
type Analyzer struct {
	transcriber Transcriber
	constraints audio.Constraints
	converter   *g2p.Converter
	aligner     *align.Engine
	scorer      *gop.Scorer
	detector    *interference.Detector
	aggregator  *feedback.Aggregator
	log         *slog.Logger
	metrics     *observe.Metrics
}

// New creates an Analyzer with default pipeline stages; options replace
// individual stages.
func New(transcriber Transcriber, opts ...Option) (*Analyzer, error) {
	if transcriber == nil {
		return nil, errors.New("analysis: nil transcriber")
	}
	detector, err := interference.New()
	if err != nil {
		return nil, fmt.Errorf("analysis: load interference rules: %w", err)
	}
	aggregator, err := feedback.New()
	if err != nil {
		return nil, err
	}
	scorer, err := gop.New()
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		transcriber: transcriber,
		constraints: DefaultConstraints,
		converter:   g2p.New(),
		aligner:     align.New(),
		scorer:      scorer,
		detector:    detector,
		aggregator:  aggregator,
		log:         slog.Default(),
		metrics:     observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// silenceRMS is the 16-bit PCM energy below which a clip is treated as
// containing no speech. Such clips skip inference entirely and are scored
// against an empty observation, which yields zero completeness.
const silenceRMS = 300

// Analyze assesses clip against referenceText. On failure it returns a nil
// result and an error classifiable via [Classify]; no partial result is
// ever returned.
func (a *Analyzer) Analyze(ctx context.Context, clip audio.Clip, referenceText string) (*pron.Result, error) {
	ctx, span := observe.StartSpan(ctx, "analysis.analyze")
	defer span.End()

	if strings.TrimSpace(referenceText) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidReference)
	}
	if err := audio.Validate(clip, a.constraints); err != nil {
		return nil, err
	}

	expected := a.converter.ToPhonemes(referenceText)
	if len(expected.Phonemes) == 0 {
		return nil, fmt.Errorf("%w: no pronounceable words in %q", ErrInvalidReference, referenceText)
	}

	var obs *acoustic.Observation
	if audio.RMS(clip) < silenceRMS {
		obs = &acoustic.Observation{}
	} else {
		var err error
		obs, err = a.transcriber.Transcribe(ctx, clip)
		if err != nil {
			return nil, err
		}
		if obs == nil {
			return nil, errors.New("analysis: transcriber returned no observation")
		}
	}

	alignStarted := time.Now()
	alignment := a.aligner.Align(expected, obs.Phones)
	if err := checkRoundTrip(expected, obs.Phones, alignment); err != nil {
		return nil, err
	}
	a.metrics.AlignmentDuration.Record(ctx, time.Since(alignStarted).Seconds())

	scoreStarted := time.Now()
	scores := a.scorer.ScoreAll(alignment, obs)
	annotations := make([]*interference.Annotation, len(scores))
	for i, sc := range scores {
		if ann, ok := a.detector.Detect(sc); ok {
			annotations[i] = &ann
			a.metrics.RecordInterference(ctx, ann.Target)
		}
	}
	a.metrics.ScoringDuration.Record(ctx, time.Since(scoreStarted).Seconds())

	degraded := expected.Degraded || obs.Degraded
	result, err := a.aggregator.Aggregate(obs, alignment, scores, annotations, degraded)
	if err != nil {
		return nil, err
	}
	a.log.Debug("analysis complete",
		"phonemes", len(expected.Phonemes),
		"overall", result.Score.Overall,
		"degraded", degraded)
	return result, nil
}

// Respond wraps an Analyze outcome into the caller-facing envelope. Internal
// failures are logged in full but surfaced with a generic message.
func (a *Analyzer) Respond(result *pron.Result, err error) pron.Response {
	if err == nil {
		return pron.Response{Success: true, Data: result}
	}
	kind := Classify(err)
	if kind == KindInternal {
		a.log.Error("analysis failed", "error", err)
	}
	return pron.Response{Success: false, Error: Message(kind, err)}
}

// Message renders the caller-safe error text for a failure kind.
func Message(kind Kind, err error) string {
	switch kind {
	case KindAudioInvalid, KindInvalidReference:
		return err.Error()
	case KindInferenceTimeout:
		return "speech analysis timed out; please retry"
	case KindCapacityExceeded:
		return "server is at capacity; please retry later"
	default:
		return "internal error"
	}
}

// checkRoundTrip verifies the alignment contract: the expected phonemes of
// the pairs must reproduce the expected sequence in order, and the observed
// phones likewise. A violation is a programming error, never user input.
func checkRoundTrip(expected g2p.Sequence, observed []acoustic.Phone, al align.Alignment) error {
	e, o := 0, 0
	for _, p := range al.Pairs {
		if p.Expected != nil {
			if e >= len(expected.Phonemes) || p.Expected.Symbol != expected.Phonemes[e].Symbol {
				return fmt.Errorf("analysis: alignment lost expected phoneme at position %d", e)
			}
			e++
		}
		if p.Observed != nil {
			if o >= len(observed) || p.Observed.Symbol != observed[o].Symbol {
				return fmt.Errorf("analysis: alignment lost observed phone at position %d", o)
			}
			o++
		}
	}
	if e != len(expected.Phonemes) || o != len(observed) {
		return fmt.Errorf("analysis: alignment covered %d/%d expected and %d/%d observed phonemes",
			e, len(expected.Phonemes), o, len(observed))
	}
	return nil
}
