package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/acoustic/mock"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

func testClip() audio.Clip {
	return audio.Clip{Samples: make([]int16, 16000), SampleRate: 16000}
}

func TestAcousticFallback_PrimarySuccess(t *testing.T) {
	primary := &mock.Provider{Observation: &acoustic.Observation{Transcript: "primary"}}
	secondary := &mock.Provider{Observation: &acoustic.Observation{Transcript: "secondary"}}

	f := NewAcousticFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("openai", secondary)

	obs, err := f.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Transcript != "primary" {
		t.Errorf("transcript = %q, want primary", obs.Transcript)
	}
	if secondary.Calls() != 0 {
		t.Errorf("fallback was called %d times", secondary.Calls())
	}
}

func TestAcousticFallback_FailsOver(t *testing.T) {
	primary := &mock.Provider{Err: errors.New("model crashed")}
	secondary := &mock.Provider{Observation: &acoustic.Observation{Transcript: "secondary"}}

	f := NewAcousticFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("openai", secondary)

	obs, err := f.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Transcript != "secondary" {
		t.Errorf("transcript = %q, want secondary", obs.Transcript)
	}
}

func TestAcousticFallback_InvalidAudioDoesNotFailOver(t *testing.T) {
	bad := fmt.Errorf("%w: sample rate 8000 Hz, want 16000 Hz", acoustic.ErrAudioInvalid)
	primary := &mock.Provider{Err: bad}
	secondary := &mock.Provider{Observation: &acoustic.Observation{}}

	f := NewAcousticFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("openai", secondary)

	_, err := f.Transcribe(context.Background(), testClip())
	if !errors.Is(err, acoustic.ErrAudioInvalid) {
		t.Fatalf("err = %v, want ErrAudioInvalid", err)
	}
	if secondary.Calls() != 0 {
		t.Errorf("fallback tried on invalid audio, calls = %d", secondary.Calls())
	}
}

func TestAcousticFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &mock.Provider{Err: errors.New("model crashed")}
	secondary := &mock.Provider{Observation: &acoustic.Observation{Transcript: "secondary"}}

	f := NewAcousticFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	f.AddFallback("openai", secondary)

	for i := 0; i < 3; i++ {
		if _, err := f.Transcribe(context.Background(), testClip()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// Breaker opens after two failures; the third call never reaches primary.
	if got := primary.Calls(); got != 2 {
		t.Errorf("primary calls = %d, want 2", got)
	}
	if got := secondary.Calls(); got != 3 {
		t.Errorf("secondary calls = %d, want 3", got)
	}
}

func TestAcousticFallback_AllFail(t *testing.T) {
	f := NewAcousticFallback(&mock.Provider{Err: errTest}, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("openai", &mock.Provider{Err: errTest})

	_, err := f.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) {
		t.Errorf("err = %v, should wrap the last backend error", err)
	}
}
