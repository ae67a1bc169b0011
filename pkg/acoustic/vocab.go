package acoustic

// vocabulary is the canonical English phoneme inventory (IPA) that all
// posterior distributions are expressed over. Order is fixed — Frame.Probs
// indexes into this slice — so entries must never be reordered or removed.
var vocabulary = []string{
	// Stops
	"p", "b", "t", "d", "k", "ɡ",
	// Affricates
	"tʃ", "dʒ",
	// Fricatives
	"f", "v", "θ", "ð", "s", "z", "ʃ", "ʒ", "h",
	// Nasals
	"m", "n", "ŋ",
	// Approximants
	"l", "ɹ", "j", "w",
	// Monophthongs
	"iː", "ɪ", "e", "æ", "ʌ", "ɑː", "ɒ", "ɔː", "ʊ", "uː", "ɜː", "ə",
	// Diphthongs
	"eɪ", "aɪ", "ɔɪ", "aʊ", "oʊ", "ɪə", "eə", "ʊə",
	// Silence / non-speech
	"sil",
}

// vocabIndex maps each symbol to its position in vocabulary.
var vocabIndex = func() map[string]int {
	m := make(map[string]int, len(vocabulary))
	for i, s := range vocabulary {
		m[s] = i
	}
	return m
}()

// Vocabulary returns the canonical phoneme inventory. The returned slice is
// shared and must not be modified.
func Vocabulary() []string { return vocabulary }

// VocabIndex returns the position of symbol in the vocabulary and whether
// the symbol is part of the inventory.
func VocabIndex(symbol string) (int, bool) {
	i, ok := vocabIndex[symbol]
	return i, ok
}

// confusablePairs lists phoneme pairs that occupy overlapping regions of the
// model's posterior space — pairs the acoustic model routinely confuses and
// that Vietnamese-L1 speakers routinely substitute. Symmetric by
// construction in confusable below.
var confusablePairs = [][2]string{
	// Dental fricatives and their common substitutes.
	{"θ", "t"}, {"θ", "s"}, {"θ", "f"},
	{"ð", "d"}, {"ð", "z"},
	// Voicing / manner neighbours.
	{"v", "b"}, {"v", "f"}, {"v", "w"},
	{"z", "s"}, {"ʒ", "z"}, {"ʒ", "ʃ"}, {"ʃ", "s"},
	{"tʃ", "ʃ"}, {"tʃ", "t"}, {"dʒ", "tʃ"}, {"dʒ", "z"},
	{"p", "b"}, {"t", "d"}, {"k", "ɡ"},
	// Liquids and glides.
	{"ɹ", "l"}, {"ɹ", "w"}, {"l", "n"},
	{"n", "ŋ"},
	// Vowel length and quality neighbours.
	{"iː", "ɪ"}, {"uː", "ʊ"}, {"æ", "e"}, {"ʌ", "ɑː"},
	{"ɒ", "ɔː"}, {"oʊ", "ɔː"}, {"eɪ", "e"}, {"ə", "ʌ"}, {"ɜː", "ə"},
	{"aɪ", "ɑː"}, {"aʊ", "ɑː"},
}

// confusable holds the symmetric closure of confusablePairs keyed by symbol.
var confusable = func() map[string]map[string]bool {
	m := make(map[string]map[string]bool)
	add := func(a, b string) {
		if m[a] == nil {
			m[a] = make(map[string]bool)
		}
		m[a][b] = true
	}
	for _, p := range confusablePairs {
		add(p[0], p[1])
		add(p[1], p[0])
	}
	return m
}()

// Confusable reports whether a and b are acoustically confusable phonemes.
// A symbol is never confusable with itself.
func Confusable(a, b string) bool {
	if a == b {
		return false
	}
	return confusable[a][b]
}

// ConfusableSet returns the symbols confusable with s, in vocabulary order.
// Returns nil when s has no confusable neighbours.
func ConfusableSet(s string) []string {
	set := confusable[s]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for _, sym := range vocabulary {
		if set[sym] {
			out = append(out, sym)
		}
	}
	return out
}
