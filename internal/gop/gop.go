// Package gop computes Goodness-of-Pronunciation scores for aligned
// phonemes.
//
// For a phoneme realised over a span of acoustic frames, GOP is the
// log-likelihood margin between the expected phoneme and its strongest
// competitor, averaged across the span:
//
//	GOP = mean over frames of ( log P(expected|O) − max_{q≠expected} log P(q|O) )
//
// A confidently correct phoneme has a margin near zero or positive; a
// substituted phoneme has a strongly negative margin. The raw value is
// mapped to a 0–100 score through a monotone linear ramp between a
// calibrated floor and ceiling, clamped outside that band.
package gop

import (
	"fmt"
	"math"

	"github.com/vietspeak/vietspeak/internal/align"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
)

// Default calibration of the raw GOP band, in nats. These defaults are a
// starting point — the real band is tuned against labelled learner audio
// and supplied through configuration.
const (
	DefaultCeiling = 0.0
	DefaultFloor   = -6.0
)

// probEpsilon clamps posterior probabilities before taking logs so that a
// zero entry cannot produce -Inf.
const probEpsilon = 1e-6

// Score is the assessment of a single alignment pair.
type Score struct {
	// Phoneme is the target symbol; for insertions (no target) it is the
	// observed symbol instead.
	Phoneme string

	// Raw is the log-domain GOP value. Zero for insert/delete pairs, which
	// have no valid posterior span to evaluate.
	Raw float64

	// Value is the normalized score in [0, 100].
	Value int

	// Expected and Actual are the aligned symbols ("" when absent).
	Expected string
	Actual   string

	// Op records the alignment operation that produced this score.
	Op align.Op

	// Word is the orthographic word the expected phoneme belongs to.
	Word string
}

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithBand sets the raw GOP floor and ceiling for the 0–100 mapping.
// floor must be strictly below ceiling.
func WithBand(floor, ceiling float64) Option {
	return func(s *Scorer) {
		s.floor = floor
		s.ceiling = ceiling
	}
}

// Scorer converts alignment pairs plus posteriors into phoneme scores. It is
// read-only after construction and safe for concurrent use.
type Scorer struct {
	floor   float64
	ceiling float64
}

// New returns a Scorer with the default calibration band unless overridden.
// It rejects a band whose floor is not strictly below its ceiling, since the
// normalization ramp would be flat or inverted.
func New(opts ...Option) (*Scorer, error) {
	s := &Scorer{floor: DefaultFloor, ceiling: DefaultCeiling}
	for _, o := range opts {
		o(s)
	}
	if s.floor >= s.ceiling {
		return nil, fmt.Errorf("gop: floor %.2f must be strictly below ceiling %.2f", s.floor, s.ceiling)
	}
	return s, nil
}

// ScorePair scores a single alignment pair against the observation's
// posterior frames. Insert and delete pairs receive a fixed zero score.
func (s *Scorer) ScorePair(pair align.Pair, obs *acoustic.Observation) Score {
	sc := Score{Op: pair.Op}
	if pair.Expected != nil {
		sc.Phoneme = pair.Expected.Symbol
		sc.Expected = pair.Expected.Symbol
		sc.Word = pair.Expected.Word
	}
	if pair.Observed != nil {
		sc.Actual = pair.Observed.Symbol
		if sc.Phoneme == "" {
			sc.Phoneme = pair.Observed.Symbol
		}
	}

	// No posterior span exists for an unexpected extra phoneme or for one
	// that was never produced.
	if pair.Op == align.OpInsert || pair.Op == align.OpDelete {
		sc.Raw = s.floor
		sc.Value = 0
		return sc
	}

	raw, ok := s.margin(pair, obs)
	if !ok {
		// No frames covered the span; treat like an unrealised phoneme.
		sc.Raw = s.floor
		sc.Value = 0
		return sc
	}
	sc.Raw = raw
	sc.Value = s.normalize(raw)
	return sc
}

// ScoreAll scores every pair of the alignment in order.
func (s *Scorer) ScoreAll(a align.Alignment, obs *acoustic.Observation) []Score {
	out := make([]Score, len(a.Pairs))
	for i, p := range a.Pairs {
		out[i] = s.ScorePair(p, obs)
	}
	return out
}

// margin computes the average log margin of the expected phoneme over the
// frames inside the pair's span. ok is false when the span covers no frames
// or the expected symbol is outside the vocabulary.
func (s *Scorer) margin(pair align.Pair, obs *acoustic.Observation) (margin float64, ok bool) {
	idx, found := acoustic.VocabIndex(pair.Expected.Symbol)
	if !found {
		return 0, false
	}

	var (
		sum float64
		n   int
	)
	for _, f := range obs.Frames {
		if f.Time < pair.Start || f.Time >= pair.End {
			continue
		}
		if idx >= len(f.Probs) {
			continue
		}
		expLog := math.Log(math.Max(f.Probs[idx], probEpsilon))

		best := math.Inf(-1)
		for q, p := range f.Probs {
			if q == idx {
				continue
			}
			if lp := math.Log(math.Max(p, probEpsilon)); lp > best {
				best = lp
			}
		}
		sum += expLog - best
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// normalize maps a raw GOP value onto [0, 100]: values at or above the
// ceiling map to 100, at or below the floor map to 0, and the band in
// between is linear. The mapping never extrapolates outside [0, 100].
func (s *Scorer) normalize(raw float64) int {
	if raw >= s.ceiling {
		return 100
	}
	if raw <= s.floor {
		return 0
	}
	frac := (raw - s.floor) / (s.ceiling - s.floor)
	return int(math.Round(frac * 100))
}
