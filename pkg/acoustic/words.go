package acoustic

import (
	"strings"
	"time"
	"unicode"
)

// Phonemizer turns a single normalised word into phoneme symbols. known
// reports whether the pronunciation came from the lexicon rather than a
// fallback.
type Phonemizer interface {
	Pronounce(word string) (symbols []string, known bool)
}

// FromWords builds a Degraded observation for backends whose model exposes
// only word-level output (Whisper variants): each word's span is divided
// evenly among its phonemes and posterior frames are synthesized from the
// word confidences. conf must be nil or have one entry per word.
func FromWords(transcript string, words []Word, conf []float64, ph Phonemizer) *Observation {
	obs := &Observation{Transcript: transcript, Words: words, Degraded: true}

	var phoneConf []float64
	for i, w := range words {
		norm := NormalizeWord(w.Text)
		if norm == "" {
			continue
		}
		symbols, _ := ph.Pronounce(norm)
		if len(symbols) == 0 {
			continue
		}
		step := (w.End - w.Start) / time.Duration(len(symbols))
		for j, sym := range symbols {
			start := w.Start + time.Duration(j)*step
			end := start + step
			if j == len(symbols)-1 {
				end = w.End
			}
			obs.Phones = append(obs.Phones, Phone{Symbol: sym, Start: start, End: end})
			if conf != nil {
				phoneConf = append(phoneConf, conf[i])
			}
		}
	}
	obs.Frames = SynthesizeFrames(obs.Phones, phoneConf)
	return obs
}

// NormalizeWord lowercases a transcribed word and strips surrounding
// punctuation, keeping inner apostrophes so contractions survive.
func NormalizeWord(w string) string {
	w = strings.ToLower(strings.TrimSpace(w))
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
