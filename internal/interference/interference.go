// Package interference detects Vietnamese-L1 pronunciation transfer
// patterns in low-scoring phonemes.
//
// The rule table maps target English phonemes to the substitutions
// Vietnamese speakers typically produce, together with learner-facing tips.
// A default table derived from teaching material ships embedded in the
// binary; deployments can override it with a YAML file. The table is loaded
// once at startup and shared read-only by all concurrent requests — rules
// are never mutated per request.
package interference

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vietspeak/vietspeak/internal/align"
	"github.com/vietspeak/vietspeak/internal/gop"
)

//go:embed rules.yaml
var embeddedRules []byte

// DefaultThreshold is the normalized score below which a phoneme is
// considered problematic enough to check against the rule table. It
// corresponds to the fair/poor band boundary of the score bands.
const DefaultThreshold = 50

// Rule describes the known interference pattern for one target phoneme.
type Rule struct {
	// Phoneme is the target IPA symbol this rule is keyed on.
	Phoneme string `yaml:"phoneme"`

	// Substitutes lists the symbols Vietnamese speakers typically produce
	// instead. An empty list means the phoneme is usually dropped rather
	// than substituted.
	Substitutes []string `yaml:"substitutes"`

	// Tip is the learner-facing articulation hint (Vietnamese).
	Tip string `yaml:"tip"`

	// Example illustrates the error pattern.
	Example string `yaml:"example"`

	// Note is a short English description for reviewers of the rule file.
	Note string `yaml:"note"`
}

// ruleFile is the YAML document shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Annotation is a detected interference pattern for one phoneme score.
type Annotation struct {
	// Target is the expected phoneme the rule fired on.
	Target string

	// Substitute is the observed symbol when it matched the rule's
	// known-substitute set; empty for a generic (dropped/ambiguous) hit.
	Substitute string

	// Tip and Example come straight from the rule.
	Tip     string
	Example string
}

// Note renders the annotation as a learner-facing string.
func (a Annotation) Note() string {
	if a.Substitute != "" {
		return fmt.Sprintf("/%s/ → /%s/: %s Ví dụ: %s", a.Target, a.Substitute, a.Tip, a.Example)
	}
	return fmt.Sprintf("/%s/: %s Ví dụ: %s", a.Target, a.Tip, a.Example)
}

// Option is a functional option for configuring a [Detector].
type Option func(*Detector)

// WithThreshold overrides the score threshold below which rules are
// consulted. Default: 50.
func WithThreshold(t int) Option {
	return func(d *Detector) { d.threshold = t }
}

// Detector looks up interference rules for low-scoring phonemes. It is
// read-only after construction and safe for concurrent use.
type Detector struct {
	threshold int
	rules     map[string]Rule
}

// New returns a Detector backed by the embedded rule table.
func New(opts ...Option) (*Detector, error) {
	return newFromBytes(embeddedRules, opts...)
}

// Load returns a Detector backed by a YAML rule file at path, for
// deployments that tune the rule set without rebuilding.
func Load(path string, opts ...Option) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interference: read rules %q: %w", path, err)
	}
	d, err := newFromBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("interference: parse rules %q: %w", path, err)
	}
	return d, nil
}

func newFromBytes(data []byte, opts ...Option) (*Detector, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("interference: decode rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("interference: rule table is empty")
	}

	d := &Detector{
		threshold: DefaultThreshold,
		rules:     make(map[string]Rule, len(file.Rules)),
	}
	for i, r := range file.Rules {
		if r.Phoneme == "" {
			return nil, fmt.Errorf("interference: rules[%d] has no phoneme key", i)
		}
		if _, dup := d.rules[r.Phoneme]; dup {
			return nil, fmt.Errorf("interference: duplicate rule for /%s/", r.Phoneme)
		}
		d.rules[r.Phoneme] = r
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Detect checks one phoneme score against the rule table. It returns an
// annotation only when the score is below the threshold, the expected
// phoneme has a rule, and the observed substitution either matches the
// rule's known-substitute set or is absent/unknown (many substitutions are
// acoustically ambiguous, so an unknown actual still earns the generic tip
// keyed on the expected phoneme). Insertions have no expected phoneme and
// never produce an annotation. Lookup is by exact symbol; no fuzzy matching.
func (d *Detector) Detect(sc gop.Score) (Annotation, bool) {
	if sc.Op == align.OpInsert {
		return Annotation{}, false
	}
	if sc.Value >= d.threshold {
		return Annotation{}, false
	}
	rule, ok := d.rules[sc.Expected]
	if !ok {
		return Annotation{}, false
	}

	ann := Annotation{Target: rule.Phoneme, Tip: rule.Tip, Example: rule.Example}
	for _, s := range rule.Substitutes {
		if sc.Actual == s {
			ann.Substitute = s
			break
		}
	}
	return ann, true
}

// Rule returns the rule keyed on the given phoneme symbol, for callers
// that present rule content outside the scoring path.
func (d *Detector) Rule(phoneme string) (Rule, bool) {
	r, ok := d.rules[phoneme]
	return r, ok
}
