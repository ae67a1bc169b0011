package acoustic

import "time"

// SynthFrameHop is the frame spacing used by [SynthesizeFrames], matching
// the 10 ms hop of common acoustic front-ends.
const SynthFrameHop = 10 * time.Millisecond

// defaultSynthConfidence is used when a phone carries no usable confidence.
const defaultSynthConfidence = 0.85

// How the synthetic probability mass is split: the observed symbol keeps
// conf, its confusable neighbours share most of the remainder, and the rest
// of the vocabulary splits what is left.
const confusableMassShare = 0.6

// SynthesizeFrames builds an approximate posterior sequence for backends
// whose model exposes no phoneme head (Whisper variants). For every frame
// inside a phone's span the phone's symbol receives probability conf[i],
// its confusable set shares most of the remaining mass, and the rest of the
// vocabulary splits the leftover uniformly. Each produced distribution sums
// to 1 exactly.
//
// conf must either be nil or have one entry per phone; values outside
// (0, 1) fall back to a fixed default. Observations built this way must be
// marked Degraded.
func SynthesizeFrames(phones []Phone, conf []float64) []Frame {
	var frames []Frame
	for i, ph := range phones {
		c := defaultSynthConfidence
		if conf != nil && conf[i] > 0 && conf[i] < 1 {
			c = conf[i]
		}
		probs := synthDistribution(ph.Symbol, c)
		for t := ph.Start; t < ph.End; t += SynthFrameHop {
			frames = append(frames, Frame{Time: t, Probs: probs})
		}
	}
	return frames
}

// synthDistribution returns a vocabulary-length distribution peaked at
// symbol with probability conf. Frames within one phone share the same
// backing slice; callers treat Frame.Probs as read-only.
func synthDistribution(symbol string, conf float64) []float64 {
	probs := make([]float64, len(vocabulary))
	idx, ok := vocabIndex[symbol]
	if !ok {
		// Unknown symbol: uniform distribution, nothing better to claim.
		u := 1.0 / float64(len(vocabulary))
		for i := range probs {
			probs[i] = u
		}
		return probs
	}

	probs[idx] = conf
	rest := 1.0 - conf

	neighbours := ConfusableSet(symbol)
	others := len(vocabulary) - 1 - len(neighbours)

	if len(neighbours) > 0 {
		share := rest * confusableMassShare / float64(len(neighbours))
		for _, n := range neighbours {
			probs[vocabIndex[n]] = share
		}
		rest *= 1 - confusableMassShare
	}
	if others > 0 {
		share := rest / float64(others)
		for i, sym := range vocabulary {
			if i == idx || Confusable(symbol, sym) {
				continue
			}
			probs[i] = share
		}
	} else {
		// Everything is a neighbour; fold the leftover into the peak.
		probs[idx] += rest
	}
	return probs
}
