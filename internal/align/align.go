// Package align pairs an expected phoneme sequence against the phonemes
// observed by the acoustic model.
//
// The engine runs a minimum-edit-distance dynamic program over phoneme
// symbols with asymmetric costs: substituting between acoustically
// confusable phonemes (θ/t, ɹ/l, iː/ɪ, …) is cheaper than substituting
// between unrelated phonemes, which keeps a true substitution from being
// torn into a spurious insert/delete pair. When several alignments share the
// minimum cost, the one with the most match operations wins — the learner is
// assumed to have attempted the expected phoneme. Given identical inputs the
// result is always identical; there is no randomised tie-breaking.
package align

import (
	"time"

	"github.com/vietspeak/vietspeak/internal/g2p"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
)

// Op classifies one alignment pair.
type Op string

const (
	OpMatch      Op = "match"
	OpSubstitute Op = "substitute"
	OpInsert     Op = "insert"
	OpDelete     Op = "delete"
)

// Pair aligns one expected phoneme with one observed phoneme. Expected is
// nil for an insertion (the speaker produced an extra phoneme); Observed is
// nil for a deletion (the expected phoneme was never realised).
type Pair struct {
	Expected *g2p.Phoneme
	Observed *acoustic.Phone
	Op       Op

	// Start/End is the acoustic time span this pair covers. Deletions carry
	// a zero-length span at the position where the phoneme was expected.
	Start, End time.Duration
}

// Alignment is the ordered pairing of the two sequences. Concatenating the
// non-nil Expected entries reproduces the expected sequence; likewise for
// Observed and the observed sequence.
type Alignment struct {
	Pairs []Pair
}

// Matches returns the number of match pairs.
func (a Alignment) Matches() int {
	n := 0
	for _, p := range a.Pairs {
		if p.Op == OpMatch {
			n++
		}
	}
	return n
}

// Default edit costs. Substitution between confusable phonemes costs less
// than an insert+delete pair (0.6 < 2.0) and also less than an unrelated
// substitution, biasing the DP toward recognising attempted phonemes.
const (
	costInsert        = 1.0
	costDelete        = 1.0
	costSubstitute    = 1.4
	costConfusableSub = 0.6
)

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithConfusableCost overrides the substitution cost between acoustically
// confusable phonemes. Default: 0.6.
func WithConfusableCost(c float64) Option {
	return func(e *Engine) { e.confusableCost = c }
}

// WithSubstituteCost overrides the substitution cost between unrelated
// phonemes. Default: 1.4.
func WithSubstituteCost(c float64) Option {
	return func(e *Engine) { e.substituteCost = c }
}

// Engine aligns phoneme sequences. It is read-only after construction and
// safe for concurrent use.
type Engine struct {
	insertCost     float64
	deleteCost     float64
	substituteCost float64
	confusableCost float64
}

// New returns an Engine with the supplied options applied over the default
// cost model.
func New(opts ...Option) *Engine {
	e := &Engine{
		insertCost:     costInsert,
		deleteCost:     costDelete,
		substituteCost: costSubstitute,
		confusableCost: costConfusableSub,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// cell is one DP table entry: the minimum cost to align the prefixes, the
// maximum match count among minimum-cost paths, and the operation taken.
type cell struct {
	cost    float64
	matches int
	op      Op
}

// better reports whether candidate (cost, matches) beats the incumbent
// under the cost-then-matches ordering.
func better(cost float64, matches int, than cell) bool {
	if cost != than.cost {
		return cost < than.cost
	}
	return matches > than.matches
}

// Align pairs expected against observed. An empty observed sequence (no
// speech detected) yields one delete pair per expected phoneme.
func (e *Engine) Align(expected g2p.Sequence, observed []acoustic.Phone) Alignment {
	n := len(expected.Phonemes)
	m := len(observed)

	// dp[i][j]: best alignment of expected[:i] against observed[:j].
	dp := make([][]cell, n+1)
	for i := range dp {
		dp[i] = make([]cell, m+1)
	}
	for i := 1; i <= n; i++ {
		dp[i][0] = cell{cost: float64(i) * e.deleteCost, op: OpDelete}
	}
	for j := 1; j <= m; j++ {
		dp[0][j] = cell{cost: float64(j) * e.insertCost, op: OpInsert}
	}

	for i := 1; i <= n; i++ {
		exp := expected.Phonemes[i-1].Symbol
		for j := 1; j <= m; j++ {
			obs := observed[j-1].Symbol

			// Candidate order is fixed (diagonal, delete, insert) and
			// `better` uses strict comparisons, so ties resolve identically
			// on every run.
			diag := dp[i-1][j-1]
			var c cell
			if exp == obs {
				c = cell{cost: diag.cost, matches: diag.matches + 1, op: OpMatch}
			} else {
				sub := e.substituteCost
				if acoustic.Confusable(exp, obs) {
					sub = e.confusableCost
				}
				c = cell{cost: diag.cost + sub, matches: diag.matches, op: OpSubstitute}
			}

			if del := dp[i-1][j]; better(del.cost+e.deleteCost, del.matches, c) {
				c = cell{cost: del.cost + e.deleteCost, matches: del.matches, op: OpDelete}
			}
			if ins := dp[i][j-1]; better(ins.cost+e.insertCost, ins.matches, c) {
				c = cell{cost: ins.cost + e.insertCost, matches: ins.matches, op: OpInsert}
			}
			dp[i][j] = c
		}
	}

	// Trace back from (n, m) and reverse.
	var rev []Pair
	i, j := n, m
	for i > 0 || j > 0 {
		op := dp[i][j].op
		switch op {
		case OpMatch, OpSubstitute:
			ph := &observed[j-1]
			rev = append(rev, Pair{
				Expected: &expected.Phonemes[i-1],
				Observed: ph,
				Op:       op,
				Start:    ph.Start,
				End:      ph.End,
			})
			i--
			j--
		case OpDelete:
			rev = append(rev, Pair{
				Expected: &expected.Phonemes[i-1],
				Op:       OpDelete,
				Start:    deletePosition(observed, j),
				End:      deletePosition(observed, j),
			})
			i--
		case OpInsert:
			ph := &observed[j-1]
			rev = append(rev, Pair{
				Observed: ph,
				Op:       OpInsert,
				Start:    ph.Start,
				End:      ph.End,
			})
			j--
		}
	}

	pairs := make([]Pair, len(rev))
	for k := range rev {
		pairs[k] = rev[len(rev)-1-k]
	}
	return Alignment{Pairs: pairs}
}

// deletePosition returns the time at which a deleted phoneme would have
// occurred: the end of the last consumed observed phone, or zero when
// nothing has been consumed yet.
func deletePosition(observed []acoustic.Phone, consumed int) time.Duration {
	if consumed == 0 {
		return 0
	}
	return observed[consumed-1].End
}
