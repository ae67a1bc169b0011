// Package feedback aggregates per-phoneme scores, alignment statistics, and
// interference annotations into the final pronunciation result returned to
// callers.
//
// This stage performs no I/O and does not fail on user input: malformed
// upstream data (an empty expected sequence, score/alignment length
// mismatch) is a programming invariant violation surfaced to the
// orchestrator, not a user-facing error.
package feedback

import (
	"fmt"
	"math"
	"time"

	"github.com/vietspeak/vietspeak/internal/align"
	"github.com/vietspeak/vietspeak/internal/gop"
	"github.com/vietspeak/vietspeak/internal/interference"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/pron"
)

// Weights is the fixed combination of the three component scores into the
// overall score. The fields must sum to 1; accuracy is weighted highest
// because it drives the value of interference detection.
type Weights struct {
	Accuracy     float64
	Fluency      float64
	Completeness float64
}

// DefaultWeights is the calibrated default combination.
var DefaultWeights = Weights{Accuracy: 0.5, Fluency: 0.25, Completeness: 0.25}

// Fluency model constants. The speaking-rate baseline approximates relaxed
// learner speech; the gap rule penalises audible hesitation between words.
const (
	// baselinePhonemesPerSecond converts expected phoneme count into a
	// canonical expected speech duration.
	baselinePhonemesPerSecond = 12.0

	// gapThreshold is the inter-word silence above which a pause is
	// penalised.
	gapThreshold = 700 * time.Millisecond

	// gapPenalty is the fluency deduction per long pause.
	gapPenalty = 8
)

// maxSuggestions caps the learner-facing suggestion list.
const maxSuggestions = 3

// Fixed learner-facing messages (Vietnamese, matching the rule table).
const (
	msgSpeakSlower   = "Hãy nói chậm hơn và rõ ràng hơn."
	msgKeepFlowing   = "Cố gắng nói liền mạch, không ngắt quãng giữa các từ."
	msgGreatJob      = "Phát âm rất tốt! Hãy tiếp tục luyện tập."
	msgDegradedNotes = "Một số từ không có trong từ điển phát âm nên điểm chỉ mang tính tham khảo."
)

// Option is a functional option for configuring an [Aggregator].
type Option func(*Aggregator)

// WithWeights overrides the default score weights.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) { a.weights = w }
}

// Aggregator combines stage outputs into a [pron.Result]. It is read-only
// after construction and safe for concurrent use.
type Aggregator struct {
	weights Weights
}

// New returns an Aggregator. It fails when the configured weights do not
// sum to 1.
func New(opts ...Option) (*Aggregator, error) {
	a := &Aggregator{weights: DefaultWeights}
	for _, o := range opts {
		o(a)
	}
	sum := a.weights.Accuracy + a.weights.Fluency + a.weights.Completeness
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("feedback: score weights sum to %f, want 1", sum)
	}
	return a, nil
}

// Aggregate builds the final result. expectedTotal is the number of expected
// phonemes; degraded marks reduced-confidence input (out-of-vocabulary
// reference words or synthesized posteriors). scores and annotations must be
// parallel to the alignment's pairs (annotations entries may be nil).
func (a *Aggregator) Aggregate(
	obs *acoustic.Observation,
	alignment align.Alignment,
	scores []gop.Score,
	annotations []*interference.Annotation,
	degraded bool,
) (*pron.Result, error) {
	if len(scores) != len(alignment.Pairs) || len(annotations) != len(alignment.Pairs) {
		return nil, fmt.Errorf("feedback: %d scores and %d annotations for %d pairs",
			len(scores), len(annotations), len(alignment.Pairs))
	}

	expectedTotal := 0
	realized := 0
	var spoken time.Duration
	for _, p := range alignment.Pairs {
		if p.Expected == nil {
			continue
		}
		expectedTotal++
		if p.Op == align.OpMatch || p.Op == align.OpSubstitute {
			realized++
			spoken += p.End - p.Start
		}
	}
	if expectedTotal == 0 {
		return nil, fmt.Errorf("feedback: empty expected sequence reached aggregation")
	}

	accuracy := a.accuracy(scores)
	completeness := clampScore(float64(realized) / float64(expectedTotal) * 100)
	fluency := a.fluency(obs, expectedTotal, spoken)
	overall := clampScore(a.weights.Accuracy*float64(accuracy) +
		a.weights.Fluency*float64(fluency) +
		a.weights.Completeness*float64(completeness))

	phonemes := make([]pron.PhonemeScore, len(scores))
	var notes []string
	seenTarget := make(map[string]bool)
	for i, sc := range scores {
		ps := pron.PhonemeScore{
			Phoneme:  sc.Phoneme,
			Score:    sc.Value,
			Expected: sc.Expected,
			Actual:   sc.Actual,
		}
		if ann := annotations[i]; ann != nil {
			ps.Suggestion = ann.Tip
			if !seenTarget[ann.Target] {
				seenTarget[ann.Target] = true
				notes = append(notes, ann.Note())
			}
		}
		phonemes[i] = ps
	}

	suggestions := a.suggestions(overall, fluency, notes, degraded)

	return &pron.Result{
		Score: pron.Score{
			Overall:      overall,
			Accuracy:     accuracy,
			Fluency:      fluency,
			Completeness: completeness,
		},
		Feedback: pron.Feedback{
			Phonemes:               phonemes,
			Suggestions:            suggestions,
			VietnameseInterference: notes,
		},
		Transcription: obs.Transcript,
	}, nil
}

// accuracy is the mean normalized score across all non-insert pairs.
func (a *Aggregator) accuracy(scores []gop.Score) int {
	sum, n := 0, 0
	for _, sc := range scores {
		if sc.Op == align.OpInsert {
			continue
		}
		sum += sc.Value
		n++
	}
	if n == 0 {
		return 0
	}
	return clampScore(float64(sum) / float64(n))
}

// fluency compares the spoken duration covering realised phonemes against
// the canonical expected duration, then deducts for long inter-word pauses.
func (a *Aggregator) fluency(obs *acoustic.Observation, expectedTotal int, spoken time.Duration) int {
	if spoken <= 0 {
		return 0
	}
	expectedDur := time.Duration(float64(expectedTotal) / baselinePhonemesPerSecond * float64(time.Second))
	ratio := float64(spoken) / float64(expectedDur)
	if ratio > 1 {
		ratio = 1
	}
	score := ratio * 100

	for i := 1; i < len(obs.Words); i++ {
		if obs.Words[i].Start-obs.Words[i-1].End > gapThreshold {
			score -= gapPenalty
		}
	}
	return clampScore(score)
}

// suggestions derives the learner-facing hints from the aggregate signals.
func (a *Aggregator) suggestions(overall, fluency int, notes []string, degraded bool) []string {
	var out []string
	if overall < 70 {
		out = append(out, msgSpeakSlower)
	}
	if fluency < 60 {
		out = append(out, msgKeepFlowing)
	}
	for _, n := range notes {
		if len(out) >= maxSuggestions {
			break
		}
		out = append(out, n)
	}
	if len(out) == 0 && overall >= 90 {
		out = append(out, msgGreatJob)
	}
	if degraded {
		out = append(out, msgDegradedNotes)
	}
	if len(out) > maxSuggestions+1 {
		out = out[:maxSuggestions+1]
	}
	return out
}

// clampScore rounds to an integer and clamps into [0, 100].
func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
