// Package remote implements acoustic.Provider against a phoneme posterior
// server speaking a small WebSocket protocol: the client sends a JSON header
// followed by one binary frame of float32 little-endian PCM, and the server
// answers with a single JSON result carrying the transcript, word and phone
// timings, and per-frame posteriors over the phoneme vocabulary.
//
// Unlike the Whisper backends this one returns true phoneme posteriors, so
// observations are not marked Degraded.
package remote

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coder/websocket"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

const defaultLanguage = "en"

// ErrMalformedResponse is returned when the server's result violates the
// observation contract: out-of-order or inverted time spans, or posterior
// rows that do not sum to one. Scoring trusts those guarantees, so a
// misbehaving server is rejected here rather than corrupting scores.
var ErrMalformedResponse = errors.New("remote: malformed server response")

// probSumTolerance is how far a posterior row may deviate from summing to 1.
const probSumTolerance = 0.01

var _ acoustic.Provider = (*Provider)(nil)

// header opens every inference exchange.
type header struct {
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language"`
	Samples    int    `json:"samples"`
}

// result is the server's single response message.
type result struct {
	Transcript string `json:"transcript"`
	Words      []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
	Phones []struct {
		Symbol string  `json:"symbol"`
		Start  float64 `json:"start"`
		End    float64 `json:"end"`
	} `json:"phones"`
	Frames []struct {
		Time  float64            `json:"time"`
		Probs map[string]float64 `json:"probs"`
	} `json:"frames"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithLanguage sets the language code sent in the header.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider talks to a posterior server. Each Transcribe call opens its own
// connection, so the Provider itself holds no mutable state and is safe for
// concurrent use.
type Provider struct {
	url      string
	language string
}

// New creates a Provider for the posterior server at wsURL
// (e.g. "ws://localhost:9090/infer").
func New(wsURL string, opts ...Option) (*Provider, error) {
	if wsURL == "" {
		return nil, errors.New("remote: url must not be empty")
	}
	p := &Provider{url: wsURL, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements acoustic.Provider.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	conn, _, err := websocket.Dial(ctx, p.url, &websocket.DialOptions{})
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", p.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	hdr, err := json.Marshal(header{
		SampleRate: clip.SampleRate,
		Language:   p.language,
		Samples:    len(clip.Samples),
	})
	if err != nil {
		return nil, fmt.Errorf("remote: encode header: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, hdr); err != nil {
		return nil, wrapErr("write header", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, encodePCM(clip)); err != nil {
		return nil, wrapErr("write audio", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return nil, wrapErr("read result", err)
	}
	if typ != websocket.MessageText {
		return nil, fmt.Errorf("remote: unexpected %v result message", typ)
	}

	var res result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("remote: decode result: %w", err)
	}
	if res.Error != nil {
		return nil, serverError(res.Error.Code, res.Error.Message)
	}
	return toObservation(res)
}

// wrapErr tags context expiry as an inference timeout; everything else stays
// a transport error.
func wrapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", acoustic.ErrTimeout, op, err)
	}
	return fmt.Errorf("remote: %s: %w", op, err)
}

func serverError(code, message string) error {
	switch code {
	case "audio_invalid":
		return fmt.Errorf("%w: %s", acoustic.ErrAudioInvalid, message)
	case "timeout":
		return fmt.Errorf("%w: %s", acoustic.ErrTimeout, message)
	default:
		return fmt.Errorf("remote: server error %q: %s", code, message)
	}
}

// encodePCM renders the clip as float32 little-endian samples in [-1, 1].
func encodePCM(clip audio.Clip) []byte {
	samples := audio.Float32(clip)
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}
	return buf
}

// toObservation maps the wire result onto an Observation, translating the
// symbol-keyed posterior maps into vocabulary-indexed frames. The result is
// checked against the observation contract first; symbols the vocabulary
// does not know are dropped and the remaining mass renormalized.
func toObservation(res result) (*acoustic.Observation, error) {
	obs := &acoustic.Observation{Transcript: res.Transcript}
	var prevEnd float64
	for i, w := range res.Words {
		if w.End < w.Start {
			return nil, fmt.Errorf("%w: word %d ends at %.3fs before its start %.3fs", ErrMalformedResponse, i, w.End, w.Start)
		}
		if w.Start < prevEnd {
			return nil, fmt.Errorf("%w: word %d starts at %.3fs before the previous word ends", ErrMalformedResponse, i, w.Start)
		}
		prevEnd = w.End
		obs.Words = append(obs.Words, acoustic.Word{
			Text:       w.Text,
			Start:      secondsToDuration(w.Start),
			End:        secondsToDuration(w.End),
			Confidence: w.Confidence,
		})
	}
	prevEnd = 0
	for i, ph := range res.Phones {
		if ph.End < ph.Start {
			return nil, fmt.Errorf("%w: phone %q ends at %.3fs before its start %.3fs", ErrMalformedResponse, ph.Symbol, ph.End, ph.Start)
		}
		if ph.Start < prevEnd {
			return nil, fmt.Errorf("%w: phone %q (index %d) starts at %.3fs before the previous phone ends", ErrMalformedResponse, ph.Symbol, i, ph.Start)
		}
		prevEnd = ph.End
		obs.Phones = append(obs.Phones, acoustic.Phone{
			Symbol: ph.Symbol,
			Start:  secondsToDuration(ph.Start),
			End:    secondsToDuration(ph.End),
		})
	}
	size := len(acoustic.Vocabulary())
	var prevTime float64
	for i, f := range res.Frames {
		if i > 0 && f.Time < prevTime {
			return nil, fmt.Errorf("%w: frame %d at %.3fs precedes frame %d", ErrMalformedResponse, i, f.Time, i-1)
		}
		prevTime = f.Time
		var sum, kept float64
		probs := make([]float64, size)
		for sym, p := range f.Probs {
			if p < 0 {
				return nil, fmt.Errorf("%w: frame %d carries negative posterior %.4f for %q", ErrMalformedResponse, i, p, sym)
			}
			sum += p
			if idx, ok := acoustic.VocabIndex(sym); ok {
				probs[idx] = p
				kept += p
			}
		}
		if math.Abs(sum-1) > probSumTolerance {
			return nil, fmt.Errorf("%w: frame %d posteriors sum to %.4f", ErrMalformedResponse, i, sum)
		}
		if kept > 0 && kept != sum {
			for j := range probs {
				probs[j] /= kept
			}
		}
		obs.Frames = append(obs.Frames, acoustic.Frame{
			Time:  secondsToDuration(f.Time),
			Probs: probs,
		})
	}
	return obs, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
