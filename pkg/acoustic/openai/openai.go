// Package openai implements acoustic.Provider on the hosted OpenAI
// transcription API.
//
// The hosted models expose word-level timestamps but no phoneme posteriors,
// so observations are synthesized from word timings and marked Degraded.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

// DefaultModel is the default hosted transcription model.
const DefaultModel = oai.AudioModelWhisper1

const defaultLanguage = "en"

var _ acoustic.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL  string
	timeout  time.Duration
	language string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithLanguage sets the transcription language code (e.g. "en").
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// Provider implements acoustic.Provider using the OpenAI transcription API.
type Provider struct {
	client     oai.Client
	model      string
	language   string
	phonemizer acoustic.Phonemizer
}

// New constructs a hosted transcription Provider. If model is empty,
// DefaultModel (whisper-1) is used.
func New(apiKey, model string, phonemizer acoustic.Phonemizer, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai acoustic: apiKey must not be empty")
	}
	if phonemizer == nil {
		return nil, fmt.Errorf("openai acoustic: nil phonemizer")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{language: defaultLanguage}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:     oai.NewClient(reqOpts...),
		model:      model,
		language:   cfg.language,
		phonemizer: phonemizer,
	}, nil
}

// verboseTranscription mirrors the verbose_json response shape. The typed
// SDK response drops word timestamps, so the raw body is decoded instead.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []struct {
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Transcribe implements acoustic.Provider.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	var verbose verboseTranscription
	_, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:                   bytes.NewReader(audio.EncodeWAV(clip)),
		Model:                  p.model,
		Language:               param.NewOpt(p.language),
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word"},
	}, option.WithResponseBodyInto(&verbose))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", acoustic.ErrTimeout, err)
		}
		return nil, fmt.Errorf("openai acoustic: transcribe: %w", err)
	}

	conf := meanConfidence(verbose)
	words := make([]acoustic.Word, 0, len(verbose.Words))
	confs := make([]float64, 0, len(verbose.Words))
	for _, w := range verbose.Words {
		words = append(words, acoustic.Word{
			Text:       w.Word,
			Start:      secondsToDuration(w.Start),
			End:        secondsToDuration(w.End),
			Confidence: conf,
		})
		confs = append(confs, conf)
	}
	return acoustic.FromWords(verbose.Text, words, confs, p.phonemizer), nil
}

// meanConfidence converts the segments' average log probabilities into one
// linear confidence for the whole utterance.
func meanConfidence(v verboseTranscription) float64 {
	if len(v.Segments) == 0 {
		return 0
	}
	var sum float64
	for _, s := range v.Segments {
		sum += s.AvgLogprob
	}
	conf := math.Exp(sum / float64(len(v.Segments)))
	if conf >= 1 {
		conf = 0.99
	}
	return conf
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
