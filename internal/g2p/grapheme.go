package g2p

import "strings"

// digraphs maps multi-letter grapheme clusters to phonemes. Longer clusters
// are matched first; order within the slice is the match priority.
var digraphs = []struct {
	graph  string
	phones []string
}{
	{"tion", []string{"ʃ", "ə", "n"}},
	{"igh", []string{"aɪ"}},
	{"dge", []string{"dʒ"}},
	{"tch", []string{"tʃ"}},
	{"th", []string{"θ"}},
	{"sh", []string{"ʃ"}},
	{"ch", []string{"tʃ"}},
	{"ph", []string{"f"}},
	{"wh", []string{"w"}},
	{"ng", []string{"ŋ"}},
	{"ck", []string{"k"}},
	{"qu", []string{"k", "w"}},
	{"ee", []string{"iː"}},
	{"ea", []string{"iː"}},
	{"oo", []string{"uː"}},
	{"ou", []string{"aʊ"}},
	{"ow", []string{"aʊ"}},
	{"ai", []string{"eɪ"}},
	{"ay", []string{"eɪ"}},
	{"oa", []string{"oʊ"}},
	{"oi", []string{"ɔɪ"}},
	{"oy", []string{"ɔɪ"}},
}

// singles maps individual letters to a default phoneme.
var singles = map[byte][]string{
	'a': {"æ"}, 'b': {"b"}, 'c': {"k"}, 'd': {"d"}, 'e': {"e"},
	'f': {"f"}, 'g': {"ɡ"}, 'h': {"h"}, 'i': {"ɪ"}, 'j': {"dʒ"},
	'k': {"k"}, 'l': {"l"}, 'm': {"m"}, 'n': {"n"}, 'o': {"ɒ"},
	'p': {"p"}, 'q': {"k"}, 'r': {"ɹ"}, 's': {"s"}, 't': {"t"},
	'u': {"ʌ"}, 'v': {"v"}, 'w': {"w"}, 'x': {"k", "s"}, 'y': {"j"},
	'z': {"z"},
}

// graphemePhones approximates a pronunciation from spelling alone. It is the
// last-resort fallback for out-of-vocabulary words; results are marked OOV
// by the caller so the degraded confidence is visible downstream.
func graphemePhones(word string) []string {
	w := strings.ToLower(word)

	// Silent final e ("like", "nine") — drop it unless the word is tiny.
	if len(w) > 3 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "ee") {
		w = w[:len(w)-1]
	}

	var phones []string
	for i := 0; i < len(w); {
		matched := false
		for _, d := range digraphs {
			if strings.HasPrefix(w[i:], d.graph) {
				phones = append(phones, d.phones...)
				i += len(d.graph)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if p, ok := singles[w[i]]; ok {
			phones = append(phones, p...)
		}
		i++
	}
	return phones
}
