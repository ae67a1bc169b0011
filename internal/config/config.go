// Package config provides the configuration schema, loader, and acoustic
// backend registry for the VietSpeak pronunciation server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Backend selects the acoustic inference implementation.
type Backend string

const (
	// BackendWhisper runs whisper.cpp in-process via CGO.
	BackendWhisper Backend = "whisper"

	// BackendOpenAI uses the hosted OpenAI transcription API.
	BackendOpenAI Backend = "openai"

	// BackendRemote talks to a phoneme posterior server over WebSocket.
	BackendRemote Backend = "remote"
)

// IsValid reports whether b is a recognised backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendWhisper, BackendOpenAI, BackendRemote:
		return true
	}
	return false
}

// Config is the root configuration structure for the server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Audio     AudioConfig     `yaml:"audio"`
	Scoring   ScoringConfig   `yaml:"scoring"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// BackendConfig selects and configures the acoustic inference backend. The
// Name field is used to look up the constructor in the [Registry].
type BackendConfig struct {
	// Name selects the registered backend implementation.
	Name Backend `yaml:"name"`

	// ModelPath points at the local model weights. Required for "whisper".
	ModelPath string `yaml:"model_path"`

	// APIKey authenticates against a hosted API. Required for "openai".
	APIKey string `yaml:"api_key"`

	// BaseURL overrides a hosted backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// URL is the posterior server address. Required for "remote"
	// (e.g., "ws://localhost:9090/infer").
	URL string `yaml:"url"`

	// Model selects a specific model within a hosted backend.
	Model string `yaml:"model"`

	// Language is the transcription language code. Defaults to "en".
	Language string `yaml:"language"`

	// Fallback optionally configures a second backend that takes over when
	// this one fails, e.g. a hosted API behind an in-process model. Nesting
	// deeper than one level is not supported.
	Fallback *BackendConfig `yaml:"fallback"`
}

// SchedulerConfig bounds the inference worker pool and its admission queue.
// Zero values fall back to the scheduler's built-in defaults.
type SchedulerConfig struct {
	// Slots is the number of concurrent inference workers.
	Slots int `yaml:"slots"`

	// QueueDepth is the number of requests that may wait for a slot before
	// new requests are rejected.
	QueueDepth int `yaml:"queue_depth"`

	// BatchWindowMs groups requests arriving within the window into one
	// batched inference when the backend supports it. 0 disables batching.
	BatchWindowMs int `yaml:"batch_window_ms"`

	// RequestTimeoutMs bounds one request's total time in queue plus
	// inference.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// AudioConfig constrains accepted clips. Zero values fall back to the
// pipeline defaults (16 kHz, 500 ms to 30 s).
type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	MinDurationMs int `yaml:"min_duration_ms"`
	MaxDurationMs int `yaml:"max_duration_ms"`
}

// ScoringConfig holds the scoring calibration. Zero values fall back to the
// calibrated defaults.
type ScoringConfig struct {
	// GopFloor and GopCeiling bound the raw log-likelihood margin band that
	// maps linearly onto scores 0..100.
	GopFloor   float64 `yaml:"gop_floor"`
	GopCeiling float64 `yaml:"gop_ceiling"`

	// InterferenceThreshold is the score below which a known Vietnamese
	// substitution pattern produces a note.
	InterferenceThreshold int `yaml:"interference_threshold"`

	// RulesPath overrides the embedded Vietnamese interference rule table.
	RulesPath string `yaml:"rules_path"`

	// Weights combines accuracy, fluency, and completeness into the overall
	// score. When set, the three must sum to 1.
	Weights *WeightsConfig `yaml:"weights"`
}

// WeightsConfig is the overall-score combination.
type WeightsConfig struct {
	Accuracy     float64 `yaml:"accuracy"`
	Fluency      float64 `yaml:"fluency"`
	Completeness float64 `yaml:"completeness"`
}
