package g2p

// lexicon maps normalised English words to their IPA phoneme sequences.
// Symbols must come from the acoustic vocabulary. The word list covers the
// high-frequency vocabulary of beginner/intermediate practice sentences;
// everything else goes through the fallbacks in g2p.go.
var lexicon = map[string][]string{
	"a":             {"ə"},
	"about":         {"ə", "b", "aʊ", "t"},
	"after":         {"ɑː", "f", "t", "ə"},
	"again":         {"ə", "ɡ", "e", "n"},
	"all":           {"ɔː", "l"},
	"also":          {"ɔː", "l", "s", "oʊ"},
	"always":        {"ɔː", "l", "w", "eɪ", "z"},
	"am":            {"æ", "m"},
	"an":            {"ə", "n"},
	"and":           {"æ", "n", "d"},
	"another":       {"ə", "n", "ʌ", "ð", "ə"},
	"are":           {"ɑː", "ɹ"},
	"ate":           {"eɪ", "t"},
	"bad":           {"b", "æ", "d"},
	"be":            {"b", "iː"},
	"beautiful":     {"b", "j", "uː", "t", "ɪ", "f", "ə", "l"},
	"because":       {"b", "ɪ", "k", "ɒ", "z"},
	"been":          {"b", "iː", "n"},
	"before":        {"b", "ɪ", "f", "ɔː"},
	"big":           {"b", "ɪ", "ɡ"},
	"birthday":      {"b", "ɜː", "θ", "d", "eɪ"},
	"brother":       {"b", "ɹ", "ʌ", "ð", "ə"},
	"but":           {"b", "ʌ", "t"},
	"came":          {"k", "eɪ", "m"},
	"can":           {"k", "æ", "n"},
	"cat":           {"k", "æ", "t"},
	"cats":          {"k", "æ", "t", "s"},
	"city":          {"s", "ɪ", "t", "iː"},
	"come":          {"k", "ʌ", "m"},
	"could":         {"k", "ʊ", "d"},
	"country":       {"k", "ʌ", "n", "t", "ɹ", "iː"},
	"day":           {"d", "eɪ"},
	"did":           {"d", "ɪ", "d"},
	"do":            {"d", "uː"},
	"does":          {"d", "ʌ", "z"},
	"dog":           {"d", "ɒ", "ɡ"},
	"dogs":          {"d", "ɒ", "ɡ", "z"},
	"done":          {"d", "ʌ", "n"},
	"drink":         {"d", "ɹ", "ɪ", "ŋ", "k"},
	"eat":           {"iː", "t"},
	"eight":         {"eɪ", "t"},
	"english":       {"ɪ", "ŋ", "ɡ", "l", "ɪ", "ʃ"},
	"every":         {"e", "v", "ɹ", "iː"},
	"excuse":        {"ɪ", "k", "s", "k", "j", "uː", "z"},
	"family":        {"f", "æ", "m", "ə", "l", "iː"},
	"father":        {"f", "ɑː", "ð", "ə"},
	"feel":          {"f", "iː", "l"},
	"felt":          {"f", "e", "l", "t"},
	"find":          {"f", "aɪ", "n", "d"},
	"fine":          {"f", "aɪ", "n"},
	"first":         {"f", "ɜː", "s", "t"},
	"five":          {"f", "aɪ", "v"},
	"food":          {"f", "uː", "d"},
	"found":         {"f", "aʊ", "n", "d"},
	"four":          {"f", "ɔː"},
	"friend":        {"f", "ɹ", "e", "n", "d"},
	"friends":       {"f", "ɹ", "e", "n", "d", "z"},
	"gave":          {"ɡ", "eɪ", "v"},
	"get":           {"ɡ", "e", "t"},
	"give":          {"ɡ", "ɪ", "v"},
	"go":            {"ɡ", "oʊ"},
	"goes":          {"ɡ", "oʊ", "z"},
	"going":         {"ɡ", "oʊ", "ɪ", "ŋ"},
	"good":          {"ɡ", "ʊ", "d"},
	"got":           {"ɡ", "ɒ", "t"},
	"had":           {"h", "æ", "d"},
	"happy":         {"h", "æ", "p", "iː"},
	"has":           {"h", "æ", "z"},
	"have":          {"h", "æ", "v"},
	"he":            {"h", "iː"},
	"hear":          {"h", "ɪə"},
	"hello":         {"h", "ə", "l", "oʊ"},
	"her":           {"h", "ɜː"},
	"here":          {"h", "ɪə"},
	"his":           {"h", "ɪ", "z"},
	"home":          {"h", "oʊ", "m"},
	"hour":          {"aʊ", "ə"},
	"house":         {"h", "aʊ", "s"},
	"how":           {"h", "aʊ"},
	"i":             {"aɪ"},
	"is":            {"ɪ", "z"},
	"it":            {"ɪ", "t"},
	"job":           {"dʒ", "ɒ", "b"},
	"just":          {"dʒ", "ʌ", "s", "t"},
	"knew":          {"n", "uː"},
	"know":          {"n", "oʊ"},
	"language":      {"l", "æ", "ŋ", "ɡ", "w", "ɪ", "dʒ"},
	"learn":         {"l", "ɜː", "n"},
	"light":         {"l", "aɪ", "t"},
	"like":          {"l", "aɪ", "k"},
	"listen":        {"l", "ɪ", "s", "ə", "n"},
	"live":          {"l", "ɪ", "v"},
	"long":          {"l", "ɒ", "ŋ"},
	"look":          {"l", "ʊ", "k"},
	"love":          {"l", "ʌ", "v"},
	"made":          {"m", "eɪ", "d"},
	"make":          {"m", "eɪ", "k"},
	"me":            {"m", "iː"},
	"minute":        {"m", "ɪ", "n", "ɪ", "t"},
	"month":         {"m", "ʌ", "n", "θ"},
	"morning":       {"m", "ɔː", "n", "ɪ", "ŋ"},
	"mother":        {"m", "ʌ", "ð", "ə"},
	"much":          {"m", "ʌ", "tʃ"},
	"my":            {"m", "aɪ"},
	"name":          {"n", "eɪ", "m"},
	"need":          {"n", "iː", "d"},
	"never":         {"n", "e", "v", "ə"},
	"new":           {"n", "uː"},
	"night":         {"n", "aɪ", "t"},
	"nine":          {"n", "aɪ", "n"},
	"no":            {"n", "oʊ"},
	"not":           {"n", "ɒ", "t"},
	"now":           {"n", "aʊ"},
	"often":         {"ɒ", "f", "ə", "n"},
	"old":           {"oʊ", "l", "d"},
	"one":           {"w", "ʌ", "n"},
	"or":            {"ɔː"},
	"other":         {"ʌ", "ð", "ə"},
	"people":        {"p", "iː", "p", "ə", "l"},
	"person":        {"p", "ɜː", "s", "ə", "n"},
	"play":          {"p", "l", "eɪ"},
	"please":        {"p", "l", "iː", "z"},
	"practice":      {"p", "ɹ", "æ", "k", "t", "ɪ", "s"},
	"pronounce":     {"p", "ɹ", "ə", "n", "aʊ", "n", "s"},
	"pronunciation": {"p", "ɹ", "ə", "n", "ʌ", "n", "s", "iː", "eɪ", "ʃ", "ə", "n"},
	"read":          {"ɹ", "iː", "d"},
	"really":        {"ɹ", "ɪə", "l", "iː"},
	"red":           {"ɹ", "e", "d"},
	"rice":          {"ɹ", "aɪ", "s"},
	"right":         {"ɹ", "aɪ", "t"},
	"river":         {"ɹ", "ɪ", "v", "ə"},
	"room":          {"ɹ", "uː", "m"},
	"run":           {"ɹ", "ʌ", "n"},
	"sad":           {"s", "æ", "d"},
	"said":          {"s", "e", "d"},
	"saw":           {"s", "ɔː"},
	"say":           {"s", "eɪ"},
	"school":        {"s", "k", "uː", "l"},
	"second":        {"s", "e", "k", "ə", "n", "d"},
	"see":           {"s", "iː"},
	"sentence":      {"s", "e", "n", "t", "ə", "n", "s"},
	"seven":         {"s", "e", "v", "ə", "n"},
	"she":           {"ʃ", "iː"},
	"should":        {"ʃ", "ʊ", "d"},
	"six":           {"s", "ɪ", "k", "s"},
	"small":         {"s", "m", "ɔː", "l"},
	"so":            {"s", "oʊ"},
	"some":          {"s", "ʌ", "m"},
	"sometimes":     {"s", "ʌ", "m", "t", "aɪ", "m", "z"},
	"sorry":         {"s", "ɒ", "ɹ", "iː"},
	"sound":         {"s", "aʊ", "n", "d"},
	"sounds":        {"s", "aʊ", "n", "d", "z"},
	"speak":         {"s", "p", "iː", "k"},
	"student":       {"s", "t", "uː", "d", "ə", "n", "t"},
	"take":          {"t", "eɪ", "k"},
	"talk":          {"t", "ɔː", "k"},
	"teacher":       {"t", "iː", "tʃ", "ə"},
	"tell":          {"t", "e", "l"},
	"ten":           {"t", "e", "n"},
	"thank":         {"θ", "æ", "ŋ", "k"},
	"thanks":        {"θ", "æ", "ŋ", "k", "s"},
	"that":          {"ð", "æ", "t"},
	"the":           {"ð", "ə"},
	"then":          {"ð", "e", "n"},
	"there":         {"ð", "eə"},
	"these":         {"ð", "iː", "z"},
	"they":          {"ð", "eɪ"},
	"thing":         {"θ", "ɪ", "ŋ"},
	"things":        {"θ", "ɪ", "ŋ", "z"},
	"think":         {"θ", "ɪ", "ŋ", "k"},
	"third":         {"θ", "ɜː", "d"},
	"thirty":        {"θ", "ɜː", "t", "iː"},
	"this":          {"ð", "ɪ", "s"},
	"those":         {"ð", "oʊ", "z"},
	"thought":       {"θ", "ɔː", "t"},
	"three":         {"θ", "ɹ", "iː"},
	"through":       {"θ", "ɹ", "uː"},
	"time":          {"t", "aɪ", "m"},
	"today":         {"t", "ə", "d", "eɪ"},
	"together":      {"t", "ə", "ɡ", "e", "ð", "ə"},
	"told":          {"t", "oʊ", "l", "d"},
	"too":           {"t", "uː"},
	"took":          {"t", "ʊ", "k"},
	"two":           {"t", "uː"},
	"use":           {"j", "uː", "z"},
	"used":          {"j", "uː", "z", "d"},
	"very":          {"v", "e", "ɹ", "iː"},
	"vietnamese":    {"v", "j", "e", "t", "n", "ə", "m", "iː", "z"},
	"visit":         {"v", "ɪ", "z", "ɪ", "t"},
	"voice":         {"v", "ɔɪ", "s"},
	"want":          {"w", "ɒ", "n", "t"},
	"was":           {"w", "ɒ", "z"},
	"water":         {"w", "ɔː", "t", "ə"},
	"we":            {"w", "iː"},
	"weather":       {"w", "e", "ð", "ə"},
	"week":          {"w", "iː", "k"},
	"welcome":       {"w", "e", "l", "k", "ə", "m"},
	"well":          {"w", "e", "l"},
	"went":          {"w", "e", "n", "t"},
	"were":          {"w", "ɜː"},
	"what":          {"w", "ɒ", "t"},
	"when":          {"w", "e", "n"},
	"where":         {"w", "eə"},
	"which":         {"w", "ɪ", "tʃ"},
	"who":           {"h", "uː"},
	"why":           {"w", "aɪ"},
	"will":          {"w", "ɪ", "l"},
	"with":          {"w", "ɪ", "ð"},
	"without":       {"w", "ɪ", "ð", "aʊ", "t"},
	"word":          {"w", "ɜː", "d"},
	"words":         {"w", "ɜː", "d", "z"},
	"work":          {"w", "ɜː", "k"},
	"world":         {"w", "ɜː", "l", "d"},
	"would":         {"w", "ʊ", "d"},
	"year":          {"j", "ɪə"},
	"yes":           {"j", "e", "s"},
	"you":           {"j", "uː"},
	"young":         {"j", "ʌ", "ŋ"},
	"your":          {"j", "ɔː"},
}
