// Package audio provides the PCM clip type consumed by the pronunciation
// pipeline, together with format validation and WAV decoding.
//
// The pipeline expects audio that is already normalized by the ingest layer:
// 16-bit signed little-endian PCM, mono, at a fixed sample rate. Anything
// else is rejected with [ErrInvalid] rather than converted on the fly —
// on-the-fly conversion would hide ingest bugs and burn time inside the
// scarce inference path.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is the sentinel wrapped by all validation failures. Callers
// should test with errors.Is.
var ErrInvalid = errors.New("audio: invalid clip")

// Clip is a single-channel PCM recording. Samples are 16-bit signed values;
// SampleRate is in Hz.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length. A zero sample rate yields zero.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Constraints describes the audio format the pipeline accepts.
type Constraints struct {
	// SampleRate is the required rate in Hz (typically 16000).
	SampleRate int

	// MinDuration rejects clips too short to contain assessable speech.
	MinDuration time.Duration

	// MaxDuration bounds per-request inference cost.
	MaxDuration time.Duration
}

// Validate checks c against the constraints. All failures wrap [ErrInvalid].
func Validate(c Clip, cons Constraints) error {
	if len(c.Samples) == 0 {
		return fmt.Errorf("%w: empty clip", ErrInvalid)
	}
	if cons.SampleRate > 0 && c.SampleRate != cons.SampleRate {
		return fmt.Errorf("%w: sample rate %d Hz, want %d Hz", ErrInvalid, c.SampleRate, cons.SampleRate)
	}
	d := c.Duration()
	if cons.MinDuration > 0 && d < cons.MinDuration {
		return fmt.Errorf("%w: duration %s below minimum %s", ErrInvalid, d, cons.MinDuration)
	}
	if cons.MaxDuration > 0 && d > cons.MaxDuration {
		return fmt.Errorf("%w: duration %s exceeds maximum %s", ErrInvalid, d, cons.MaxDuration)
	}
	return nil
}
