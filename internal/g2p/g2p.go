// Package g2p converts English reference text into the expected phoneme
// sequence used for alignment and scoring.
//
// Conversion is a pure function of the input text: a fixed embedded lexicon
// is consulted first, and out-of-vocabulary words fall back to a two-stage
// heuristic rather than failing — user-submitted reference text routinely
// contains names and rare words:
//
//  1. Phonetic nearest-entry lookup: Double Metaphone codes are computed
//     for the unknown word and compared against every lexicon entry. Among
//     entries sharing a code, the one with the highest Jaro-Winkler
//     similarity is used — provided it clears the configurable threshold.
//
//  2. Grapheme rules: when no lexicon entry is close enough, a
//     letter-to-phoneme rule set produces an approximate pronunciation.
//
// Either fallback marks the produced sequence as degraded so downstream
// consumers can surface reduced confidence instead of an error.
package g2p

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultPhoneticThreshold is the minimum Jaro-Winkler score for an
// out-of-vocabulary word to borrow a lexicon entry's pronunciation. It is
// deliberately stricter than a fuzzy-search threshold: a wrong borrowed
// pronunciation is worse than the grapheme approximation.
const defaultPhoneticThreshold = 0.80

// Phoneme is one expected phoneme together with the orthographic word it
// belongs to (needed for completeness scoring and word-level feedback).
type Phoneme struct {
	// Symbol is the IPA phoneme symbol, e.g. "θ".
	Symbol string

	// Word is the normalised orthographic word this phoneme came from.
	Word string

	// OOV is true when the word was not in the lexicon and the symbol came
	// from a fallback heuristic.
	OOV bool
}

// Sequence is the ordered expected phoneme sequence for a reference text.
// It is produced once per request and read-only afterwards.
type Sequence struct {
	Phonemes []Phoneme

	// Degraded is true when at least one word used a fallback
	// pronunciation. Scores computed against a degraded sequence should be
	// presented with reduced confidence, not as an error.
	Degraded bool
}

// Option is a functional option for configuring a [Converter].
type Option func(*Converter)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for an
// unknown word to adopt a phonetically similar lexicon entry's
// pronunciation. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Converter) { c.phoneticThreshold = threshold }
}

// Converter performs grapheme-to-phoneme conversion. It is read-only after
// construction and safe for concurrent use.
type Converter struct {
	phoneticThreshold float64

	// sortedWords holds the lexicon keys in sorted order so that candidate
	// ranking iterates deterministically.
	sortedWords []string

	// metaphone caches the Double Metaphone codes of every lexicon entry.
	metaphone map[string][2]string
}

// New returns a Converter backed by the embedded lexicon.
func New(opts ...Option) *Converter {
	c := &Converter{
		phoneticThreshold: defaultPhoneticThreshold,
		sortedWords:       make([]string, 0, len(lexicon)),
		metaphone:         make(map[string][2]string, len(lexicon)),
	}
	for w := range lexicon {
		c.sortedWords = append(c.sortedWords, w)
		p, s := matchr.DoubleMetaphone(w)
		c.metaphone[w] = [2]string{p, s}
	}
	sort.Strings(c.sortedWords)

	for _, o := range opts {
		o(c)
	}
	return c
}

// ToPhonemes converts text into the expected phoneme sequence. It is
// deterministic and performs no I/O. Text that normalises to nothing (empty
// or punctuation-only input) yields an empty sequence; rejecting that as
// invalid reference text is the caller's concern.
func (c *Converter) ToPhonemes(text string) Sequence {
	var seq Sequence
	for _, word := range normalize(text) {
		symbols, known := c.Pronounce(word)
		if !known {
			seq.Degraded = true
		}
		for _, sym := range symbols {
			seq.Phonemes = append(seq.Phonemes, Phoneme{Symbol: sym, Word: word, OOV: !known})
		}
	}
	return seq
}

// Pronounce returns the pronunciation for a single normalised word and
// whether it came straight from the lexicon. Out-of-vocabulary words go
// through the nearest-entry and grapheme fallbacks and report known=false.
func (c *Converter) Pronounce(word string) (symbols []string, known bool) {
	if phones, ok := lexicon[word]; ok {
		return phones, true
	}
	if phones, ok := c.nearestEntry(word); ok {
		return phones, false
	}
	return graphemePhones(word), false
}

// nearestEntry finds the lexicon entry most phonetically similar to word,
// following the Double Metaphone filter + Jaro-Winkler ranking scheme.
func (c *Converter) nearestEntry(word string) ([]string, bool) {
	wp, ws := matchr.DoubleMetaphone(word)
	if wp == "" && ws == "" {
		return nil, false
	}

	var (
		best      string
		bestScore float64
	)
	for _, entry := range c.sortedWords {
		codes := c.metaphone[entry]
		if !codeOverlap(wp, ws, codes[0], codes[1]) {
			continue
		}
		score := matchr.JaroWinkler(word, entry, false)
		if score > bestScore {
			best, bestScore = entry, score
		}
	}
	if best == "" || bestScore < c.phoneticThreshold {
		return nil, false
	}
	return lexicon[best], true
}

// codeOverlap reports whether any non-empty Double Metaphone code is shared
// between the two words.
func codeOverlap(ap, as, bp, bs string) bool {
	for _, a := range []string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}

// normalize lowercases text and splits it into words, dropping punctuation.
// Apostrophes inside a word are kept so contractions survive lookup.
func normalize(text string) []string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '\'')
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
