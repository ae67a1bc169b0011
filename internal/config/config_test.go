package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vietspeak/vietspeak/internal/config"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/acoustic/mock"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

backend:
  name: whisper
  model_path: /opt/models/ggml-base.en.bin
  language: en

scheduler:
  slots: 8
  queue_depth: 64
  batch_window_ms: 25
  request_timeout_ms: 15000

audio:
  sample_rate: 16000
  min_duration_ms: 500
  max_duration_ms: 30000

scoring:
  gop_floor: -6.0
  gop_ceiling: 0.0
  interference_threshold: 50
  weights:
    accuracy: 0.5
    fluency: 0.25
    completeness: 0.25
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Backend.Name != config.BackendWhisper {
		t.Errorf("backend.name: got %q, want %q", cfg.Backend.Name, config.BackendWhisper)
	}
	if cfg.Backend.ModelPath != "/opt/models/ggml-base.en.bin" {
		t.Errorf("backend.model_path: got %q", cfg.Backend.ModelPath)
	}
	if cfg.Scheduler.Slots != 8 {
		t.Errorf("scheduler.slots: got %d, want 8", cfg.Scheduler.Slots)
	}
	if cfg.Scheduler.BatchWindowMs != 25 {
		t.Errorf("scheduler.batch_window_ms: got %d, want 25", cfg.Scheduler.BatchWindowMs)
	}
	if cfg.Audio.MaxDurationMs != 30000 {
		t.Errorf("audio.max_duration_ms: got %d, want 30000", cfg.Audio.MaxDurationMs)
	}
	if cfg.Scoring.GopFloor != -6.0 {
		t.Errorf("scoring.gop_floor: got %.2f, want -6.0", cfg.Scoring.GopFloor)
	}
	if cfg.Scoring.Weights == nil || cfg.Scoring.Weights.Accuracy != 0.5 {
		t.Errorf("scoring.weights: got %+v", cfg.Scoring.Weights)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	yaml := `
server:
  log_level: info
backend:
  name: remote
  url: "ws://localhost:9090"
pipeline:
  workers: 4
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level key, got nil")
	}
}

func TestLoadFromReader_InvalidFailsValidation(t *testing.T) {
	yaml := `
server:
  log_level: verbose
backend:
  name: remote
  url: "ws://localhost:9090"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownBackend(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateAcoustic(config.BackendConfig{Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !errors.Is(err, config.ErrBackendNotRegistered) {
		t.Errorf("expected ErrBackendNotRegistered, got: %v", err)
	}
}

func TestRegistry_CreateRegisteredBackend(t *testing.T) {
	reg := config.NewRegistry()
	want := &mock.Provider{}
	reg.RegisterAcoustic(config.BackendRemote, func(cfg config.BackendConfig) (acoustic.Provider, error) {
		if cfg.URL != "ws://localhost:9090" {
			t.Errorf("factory got url %q", cfg.URL)
		}
		return want, nil
	})

	got, err := reg.CreateAcoustic(config.BackendConfig{
		Name: config.BackendRemote,
		URL:  "ws://localhost:9090",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != acoustic.Provider(want) {
		t.Error("factory result not returned")
	}

	if names := reg.Backends(); len(names) != 1 || names[0] != config.BackendRemote {
		t.Errorf("Backends() = %v", names)
	}
}

func TestRegistry_RegisteredBackendIsUsable(t *testing.T) {
	reg := config.NewRegistry()
	reg.RegisterAcoustic(config.BackendRemote, func(config.BackendConfig) (acoustic.Provider, error) {
		return &mock.Provider{Observation: &acoustic.Observation{Transcript: "ok"}}, nil
	})
	p, err := reg.CreateAcoustic(config.BackendConfig{Name: config.BackendRemote})
	if err != nil {
		t.Fatal(err)
	}
	obs, err := p.Transcribe(context.Background(), audio.Clip{Samples: make([]int16, 160), SampleRate: 16000})
	if err != nil {
		t.Fatal(err)
	}
	if obs.Transcript != "ok" {
		t.Errorf("transcript = %q", obs.Transcript)
	}
}
