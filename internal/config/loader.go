package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vietspeak/vietspeak/internal/gop"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateBackend checks one backend selection. prefix names the YAML path
// in error messages ("backend" or "backend.fallback").
func validateBackend(prefix string, b BackendConfig) []error {
	var errs []error
	switch {
	case b.Name == "":
		errs = append(errs, fmt.Errorf("%s.name is required; valid values: whisper, openai, remote", prefix))
	case !b.Name.IsValid():
		errs = append(errs, fmt.Errorf("%s.name %q is invalid; valid values: whisper, openai, remote", prefix, b.Name))
	case b.Name == BackendWhisper && b.ModelPath == "":
		errs = append(errs, fmt.Errorf("%s.model_path is required when %s.name is whisper", prefix, prefix))
	case b.Name == BackendOpenAI && b.APIKey == "":
		errs = append(errs, fmt.Errorf("%s.api_key is required when %s.name is openai", prefix, prefix))
	case b.Name == BackendRemote && b.URL == "":
		errs = append(errs, fmt.Errorf("%s.url is required when %s.name is remote", prefix, prefix))
	}
	return errs
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Backend
	errs = append(errs, validateBackend("backend", cfg.Backend)...)
	if fb := cfg.Backend.Fallback; fb != nil {
		errs = append(errs, validateBackend("backend.fallback", *fb)...)
		if fb.Fallback != nil {
			errs = append(errs, errors.New("backend.fallback must not itself declare a fallback"))
		}
	}

	// Scheduler — zero means default, negative is always a mistake.
	if cfg.Scheduler.Slots < 0 {
		errs = append(errs, fmt.Errorf("scheduler.slots %d must not be negative", cfg.Scheduler.Slots))
	}
	if cfg.Scheduler.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("scheduler.queue_depth %d must not be negative", cfg.Scheduler.QueueDepth))
	}
	if cfg.Scheduler.BatchWindowMs < 0 {
		errs = append(errs, fmt.Errorf("scheduler.batch_window_ms %d must not be negative", cfg.Scheduler.BatchWindowMs))
	}
	if cfg.Scheduler.RequestTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("scheduler.request_timeout_ms %d must not be negative", cfg.Scheduler.RequestTimeoutMs))
	}
	if cfg.Scheduler.Slots > 0 && cfg.Scheduler.QueueDepth > 0 && cfg.Scheduler.QueueDepth < cfg.Scheduler.Slots {
		slog.Warn("scheduler.queue_depth is smaller than scheduler.slots; some workers can never fill",
			"slots", cfg.Scheduler.Slots,
			"queue_depth", cfg.Scheduler.QueueDepth,
		)
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.MinDurationMs < 0 || cfg.Audio.MaxDurationMs < 0 {
		errs = append(errs, errors.New("audio durations must not be negative"))
	}
	if cfg.Audio.MinDurationMs > 0 && cfg.Audio.MaxDurationMs > 0 && cfg.Audio.MinDurationMs >= cfg.Audio.MaxDurationMs {
		errs = append(errs, fmt.Errorf("audio.min_duration_ms %d must be below audio.max_duration_ms %d",
			cfg.Audio.MinDurationMs, cfg.Audio.MaxDurationMs))
	}

	// Scoring. A zero floor means the calibrated default, so the band is
	// checked after default substitution — the same substitution the
	// scorer construction applies.
	floor, ceiling := cfg.Scoring.GopFloor, cfg.Scoring.GopCeiling
	if floor == 0 {
		floor = gop.DefaultFloor
	}
	if floor >= ceiling {
		errs = append(errs, fmt.Errorf("scoring.gop_floor %.2f must be below scoring.gop_ceiling %.2f",
			floor, ceiling))
	}
	if cfg.Scoring.InterferenceThreshold < 0 || cfg.Scoring.InterferenceThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.interference_threshold %d is out of range [0, 100]", cfg.Scoring.InterferenceThreshold))
	}
	if w := cfg.Scoring.Weights; w != nil {
		sum := w.Accuracy + w.Fluency + w.Completeness
		if math.Abs(sum-1.0) > 1e-9 {
			errs = append(errs, fmt.Errorf("scoring.weights must sum to 1, got %.4f", sum))
		}
		if w.Accuracy < 0 || w.Fluency < 0 || w.Completeness < 0 {
			errs = append(errs, errors.New("scoring.weights must not be negative"))
		}
	}
	if cfg.Scoring.RulesPath != "" {
		if _, err := os.Stat(cfg.Scoring.RulesPath); err != nil {
			errs = append(errs, fmt.Errorf("scoring.rules_path %q: %w", cfg.Scoring.RulesPath, err))
		}
	}

	return errors.Join(errs...)
}
