package align_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/vietspeak/vietspeak/internal/align"
	"github.com/vietspeak/vietspeak/internal/g2p"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
)

// expseq builds an expected sequence from bare symbols.
func expseq(symbols ...string) g2p.Sequence {
	seq := g2p.Sequence{}
	for _, s := range symbols {
		seq.Phonemes = append(seq.Phonemes, g2p.Phoneme{Symbol: s, Word: "w"})
	}
	return seq
}

// phones builds observed phones with sequential 50 ms spans.
func phones(symbols ...string) []acoustic.Phone {
	const span = 50 * time.Millisecond
	out := make([]acoustic.Phone, len(symbols))
	for i, s := range symbols {
		out[i] = acoustic.Phone{
			Symbol: s,
			Start:  time.Duration(i) * span,
			End:    time.Duration(i+1) * span,
		}
	}
	return out
}

// ops extracts the operation sequence from an alignment.
func ops(a align.Alignment) []align.Op {
	out := make([]align.Op, len(a.Pairs))
	for i, p := range a.Pairs {
		out[i] = p.Op
	}
	return out
}

func TestAlignIdenticalSequences(t *testing.T) {
	t.Parallel()

	e := align.New()
	a := e.Align(expseq("h", "ə", "l", "oʊ"), phones("h", "ə", "l", "oʊ"))

	want := []align.Op{align.OpMatch, align.OpMatch, align.OpMatch, align.OpMatch}
	if got := ops(a); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestAlignConfusableSubstitutionStaysPaired(t *testing.T) {
	t.Parallel()

	e := align.New()
	// "think" with θ → t: the dental fricative substituted by its classic
	// Vietnamese-L1 replacement must come out as one substitute pair, not an
	// insert/delete split.
	a := e.Align(expseq("θ", "ɪ", "ŋ", "k"), phones("t", "ɪ", "ŋ", "k"))

	want := []align.Op{align.OpSubstitute, align.OpMatch, align.OpMatch, align.OpMatch}
	if got := ops(a); !reflect.DeepEqual(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if a.Pairs[0].Expected.Symbol != "θ" || a.Pairs[0].Observed.Symbol != "t" {
		t.Errorf("substitute pair = %s→%s, want θ→t",
			a.Pairs[0].Expected.Symbol, a.Pairs[0].Observed.Symbol)
	}
}

func TestAlignEmptyObservedAllDeletes(t *testing.T) {
	t.Parallel()

	e := align.New()
	a := e.Align(expseq("ð", "ɪ", "s"), nil)

	if len(a.Pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(a.Pairs))
	}
	for _, p := range a.Pairs {
		if p.Op != align.OpDelete {
			t.Errorf("op = %s, want delete", p.Op)
		}
		if p.Observed != nil {
			t.Error("delete pair has a non-nil observed phone")
		}
		if p.Start != 0 || p.End != 0 {
			t.Errorf("delete pair span = [%s, %s], want zero", p.Start, p.End)
		}
	}
}

func TestAlignEmptyExpectedAllInserts(t *testing.T) {
	t.Parallel()

	e := align.New()
	a := e.Align(g2p.Sequence{}, phones("m", "iː"))

	if len(a.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(a.Pairs))
	}
	for _, p := range a.Pairs {
		if p.Op != align.OpInsert {
			t.Errorf("op = %s, want insert", p.Op)
		}
	}
}

func TestAlignRoundTrip(t *testing.T) {
	t.Parallel()

	e := align.New()
	tests := []struct {
		name     string
		expected []string
		observed []string
	}{
		{"equal", []string{"s", "iː"}, []string{"s", "iː"}},
		{"substitution", []string{"θ", "ɹ", "iː"}, []string{"t", "ɹ", "iː"}},
		{"deletion", []string{"k", "æ", "t"}, []string{"k", "æ"}},
		{"insertion", []string{"k", "æ", "t"}, []string{"k", "æ", "t", "ə"}},
		{"disjoint", []string{"m", "n"}, []string{"f", "s", "h"}},
		{"empty observed", []string{"ð", "ə"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := e.Align(expseq(tt.expected...), phones(tt.observed...))

			var gotExp, gotObs []string
			for _, p := range a.Pairs {
				if p.Expected != nil {
					gotExp = append(gotExp, p.Expected.Symbol)
				}
				if p.Observed != nil {
					gotObs = append(gotObs, p.Observed.Symbol)
				}
			}
			if !reflect.DeepEqual(gotExp, tt.expected) {
				t.Errorf("expected round-trip = %v, want %v", gotExp, tt.expected)
			}
			if !reflect.DeepEqual(gotObs, tt.observed) {
				t.Errorf("observed round-trip = %v, want %v", gotObs, tt.observed)
			}
		})
	}
}

func TestAlignDeterministic(t *testing.T) {
	t.Parallel()

	e := align.New()
	exp := expseq("θ", "ɪ", "ŋ", "k", "s", "ə", "l", "oʊ")
	obs := phones("t", "ɪ", "n", "k", "z", "l", "oʊ", "ə")

	first := e.Align(exp, obs)
	for range 25 {
		if got := e.Align(exp, obs); !reflect.DeepEqual(got, first) {
			t.Fatal("Align is not deterministic across repeated calls")
		}
	}
}

func TestAlignPrefersMatchesOnCostTies(t *testing.T) {
	t.Parallel()

	e := align.New()
	// Both "delete a, match a" and "match a, delete a" have equal cost for
	// expected [a a] vs observed [a]; the match count is the same, but the
	// result must still be stable and contain exactly one match.
	a := e.Align(expseq("æ", "æ"), phones("æ"))
	if a.Matches() != 1 {
		t.Errorf("Matches() = %d, want 1", a.Matches())
	}
}

func TestAlignSubstituteSpanCopiesObservedTiming(t *testing.T) {
	t.Parallel()

	e := align.New()
	obs := phones("t")
	a := e.Align(expseq("θ"), obs)

	p := a.Pairs[0]
	if p.Start != obs[0].Start || p.End != obs[0].End {
		t.Errorf("pair span = [%s, %s], want [%s, %s]", p.Start, p.End, obs[0].Start, obs[0].End)
	}
}
