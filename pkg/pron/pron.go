// Package pron defines the pronunciation assessment result types exchanged
// with callers of the analysis pipeline.
//
// The [Response] envelope is the only artifact the pipeline returns: either a
// populated Data field on success, or an Error field on failure — never both,
// and never a partially filled Result.
package pron

// Response is the JSON envelope returned to transport layers. On failure
// Data is nil and Error carries a caller-safe message.
type Response struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Result is a complete pronunciation assessment for a single utterance.
type Result struct {
	Score         Score    `json:"score"`
	Feedback      Feedback `json:"feedback"`
	Transcription string   `json:"transcription"`

	// AudioURL optionally points to the stored recording. The pipeline never
	// sets it; storage collaborators may fill it in before returning the
	// response to a client.
	AudioURL string `json:"audioUrl,omitempty"`
}

// Score holds the four aggregate scores. All values are integers in [0, 100].
type Score struct {
	Overall      int `json:"overall"`
	Accuracy     int `json:"accuracy"`
	Fluency      int `json:"fluency"`
	Completeness int `json:"completeness"`
}

// Feedback carries the per-phoneme detail and learner-facing guidance.
type Feedback struct {
	// Phonemes preserves alignment order: left to right over the expected
	// sequence, with insertions adjacent to their neighbouring pairs.
	Phonemes []PhonemeScore `json:"phonemes"`

	// Suggestions are short actionable hints derived from the aggregate
	// scores, deduplicated and capped so learners are not overwhelmed.
	Suggestions []string `json:"suggestions"`

	// VietnameseInterference lists notes about detected Vietnamese-L1
	// substitution patterns. Omitted when no pattern was detected.
	VietnameseInterference []string `json:"vietnameseInterference,omitempty"`
}

// PhonemeScore is the assessment of a single aligned phoneme.
type PhonemeScore struct {
	// Phoneme is the target symbol (IPA), e.g. "θ".
	Phoneme string `json:"phoneme"`

	// Score is the normalized GOP confidence in [0, 100].
	Score int `json:"score"`

	// Expected and Actual are the aligned symbols. Actual is empty for a
	// deleted (unrealized) phoneme; Expected is empty for an insertion.
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	// Suggestion is an optional pronunciation tip attached by the
	// interference detector.
	Suggestion string `json:"suggestion,omitempty"`
}
