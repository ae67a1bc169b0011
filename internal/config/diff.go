package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; backend,
// scheduler, and server changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ScoringChanged is true when any scoring calibration value changed
	// (GOP band, interference threshold, weights, or rules path).
	ScoringChanged bool
	NewScoring     ScoringConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if scoringChanged(old.Scoring, new.Scoring) {
		d.ScoringChanged = true
		d.NewScoring = new.Scoring
	}

	return d
}

func scoringChanged(old, new ScoringConfig) bool {
	if old.GopFloor != new.GopFloor ||
		old.GopCeiling != new.GopCeiling ||
		old.InterferenceThreshold != new.InterferenceThreshold ||
		old.RulesPath != new.RulesPath {
		return true
	}
	switch {
	case old.Weights == nil && new.Weights == nil:
		return false
	case old.Weights == nil || new.Weights == nil:
		return true
	default:
		return *old.Weights != *new.Weights
	}
}
