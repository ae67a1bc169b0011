// Package whisper implements acoustic.Provider on the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// Whisper models carry no phoneme head, so per-phoneme posteriors are
// synthesized from word timings and token probabilities; observations are
// marked Degraded accordingly.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

const defaultLanguage = "en"

var _ acoustic.Provider = (*Provider)(nil)

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithLanguage sets the transcription language code (e.g. "en").
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider runs whisper.cpp inference in-process. The model is loaded once
// and shared; each Transcribe call creates its own whisper context, so
// concurrent calls do not interfere.
type Provider struct {
	model      whisperlib.Model
	language   string
	phonemizer acoustic.Phonemizer
}

// New loads the whisper.cpp model at modelPath. The caller must call Close
// when the provider is no longer needed.
func New(modelPath string, phonemizer acoustic.Phonemizer, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	if phonemizer == nil {
		return nil, errors.New("whisper: nil phonemizer")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	p := &Provider{
		model:      model,
		language:   defaultLanguage,
		phonemizer: phonemizer,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

type inferResult struct {
	transcript string
	words      []acoustic.Word
	conf       []float64
	err        error
}

// Transcribe implements acoustic.Provider. Inference runs on a dedicated
// goroutine; when ctx expires first the CGO call cannot be interrupted and
// is left to finish in the background, but the caller gets an immediate
// timeout.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", acoustic.ErrTimeout, err)
	}
	samples := audio.Float32(clip)

	ch := make(chan inferResult, 1)
	go func() {
		transcript, words, conf, err := p.infer(samples)
		ch <- inferResult{transcript: transcript, words: words, conf: conf, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return acoustic.FromWords(res.transcript, res.words, res.conf, p.phonemizer), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", acoustic.ErrTimeout, ctx.Err())
	}
}

// infer runs a fresh whisper context over samples and extracts per-word
// timings. Whisper segments words only at the segment level, so segment
// spans are divided evenly among the words they contain; the segment's mean
// token probability serves as the confidence for each of its words.
func (p *Provider) infer(samples []float32) (string, []acoustic.Word, []float64, error) {
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", nil, nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		return "", nil, nil, fmt.Errorf("whisper: set language %q: %w", p.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", nil, nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts []string
		words []acoustic.Word
		conf  []float64
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)

		prob := meanTokenProb(segment.Tokens)
		fields := strings.Fields(text)
		step := (segment.End - segment.Start) / time.Duration(len(fields))
		for i, f := range fields {
			start := segment.Start + time.Duration(i)*step
			end := start + step
			if i == len(fields)-1 {
				end = segment.End
			}
			words = append(words, acoustic.Word{Text: f, Start: start, End: end, Confidence: prob})
			conf = append(conf, prob)
		}
	}
	return strings.Join(parts, " "), words, conf, nil
}

func meanTokenProb(tokens []whisperlib.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += float64(t.P)
	}
	return sum / float64(len(tokens))
}
