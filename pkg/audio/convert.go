package audio

import (
	"encoding/binary"
	"math"
)

// Float32 converts the clip's 16-bit samples to float32 normalised to the
// range [-1.0, 1.0], the layout expected by acoustic models.
func Float32(c Clip) []float32 {
	out := make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// FromPCM parses 16-bit signed little-endian PCM bytes into a Clip,
// down-mixing multi-channel input to mono by averaging channels per frame.
// Any trailing odd byte is ignored.
func FromPCM(pcm []byte, sampleRate, channels int) Clip {
	if channels <= 1 {
		n := len(pcm) / 2
		samples := make([]int16, n)
		for i := range n {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		}
		return Clip{Samples: samples, SampleRate: sampleRate}
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]int16, frames)
	for i := range frames {
		var sum int
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[idx : idx+2])))
		}
		samples[i] = int16(sum / channels)
	}
	return Clip{Samples: samples, SampleRate: sampleRate}
}

// RMS returns the root-mean-square energy of the clip in 16-bit PCM units.
// The maximum possible value is 32767; values below ~300 indicate silence.
func RMS(c Clip) float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(c.Samples)))
}
