// Package server exposes the pronunciation analysis pipeline over HTTP.
//
// The surface is deliberately small: one POST /v1/analyze endpoint, the
// /healthz and /readyz probes, and Prometheus metrics on /metrics. Routing,
// authentication, and storage of recordings belong to outer collaborators.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietspeak/vietspeak/internal/analysis"
	"github.com/vietspeak/vietspeak/internal/health"
	"github.com/vietspeak/vietspeak/internal/observe"
	"github.com/vietspeak/vietspeak/pkg/audio"
	"github.com/vietspeak/vietspeak/pkg/pron"
)

// maxUploadBytes bounds the request body. A 30 s clip at 16 kHz mono 16-bit
// PCM is roughly 1 MiB; 8 MiB leaves generous headroom for WAV headers and
// multipart framing.
const maxUploadBytes = 8 << 20

// Analyzer is the part of the analysis pipeline the server needs.
// *analysis.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, clip audio.Clip, referenceText string) (*pron.Result, error)
	Respond(result *pron.Result, err error) pron.Response
}

// Server handles HTTP traffic for the analysis pipeline.
type Server struct {
	analyzer Analyzer
	health   *health.Handler
	metrics  *observe.Metrics
	log      *slog.Logger
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithHealth installs the health handler whose probes are served on
// /healthz and /readyz. Defaults to a handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics sets the metrics instance used by the request middleware.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRequestTimeout bounds one analysis request end to end. Zero disables
// the server-side deadline; the scheduler still applies its own.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server around the given analyzer.
func New(analyzer Analyzer, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("server: analyzer must not be nil")
	}
	s := &Server{
		analyzer: analyzer,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Handler returns the fully routed http.Handler, with the observability
// middleware applied to the analysis route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mw := observe.Middleware(s.metrics)
	mux.Handle("POST /v1/analyze", mw(http.HandlerFunc(s.handleAnalyze)))
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	return mux
}

// handleAnalyze accepts a multipart form with an "audio" WAV file and a
// "reference" text field, runs the full analysis pipeline, and returns the
// [pron.Response] envelope as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reqID := uuid.NewString()
	log := observe.Logger(r.Context()).With("request_id", reqID)

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	clip, reference, err := s.readRequest(r)
	if err != nil {
		log.Warn("bad analyze request", "error", err)
		kind := analysis.Classify(err)
		s.record(ctx, string(kind), started)
		writeJSON(w, statusFor(kind), pron.Response{Success: false, Error: err.Error()})
		return
	}

	result, err := s.analyzer.Analyze(ctx, clip, reference)
	resp := s.analyzer.Respond(result, err)

	status := http.StatusOK
	outcome := "ok"
	if err != nil {
		kind := analysis.Classify(err)
		status = statusFor(kind)
		outcome = string(kind)
	}
	s.record(ctx, outcome, started)

	log.Info("analyze request served",
		"status", status,
		"outcome", outcome,
		"clip_duration", clip.Duration(),
		"elapsed", time.Since(started),
	)
	writeJSON(w, status, resp)
}

// readRequest extracts the audio clip and reference text from the request.
// It accepts multipart/form-data with an "audio" file part and a "reference"
// field.
func (s *Server) readRequest(r *http.Request) (audio.Clip, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return audio.Clip{}, "", fmt.Errorf("%w: request must be multipart/form-data with an audio file and a reference field", audio.ErrInvalid)
	}
	defer r.MultipartForm.RemoveAll()

	reference := r.FormValue("reference")
	if reference == "" {
		return audio.Clip{}, "", fmt.Errorf("%w: reference text is required", analysis.ErrInvalidReference)
	}

	f, _, err := r.FormFile("audio")
	if err != nil {
		return audio.Clip{}, "", fmt.Errorf("%w: audio file is required", audio.ErrInvalid)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return audio.Clip{}, "", fmt.Errorf("%w: failed to read audio upload", audio.ErrInvalid)
	}

	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Clip{}, "", err
	}
	return clip, reference, nil
}

// record updates the analysis request metrics for one served request.
func (s *Server) record(ctx context.Context, status string, started time.Time) {
	s.metrics.RecordAnalysis(ctx, status, time.Since(started))
}

// statusFor maps a failure kind onto an HTTP status code.
func statusFor(kind analysis.Kind) int {
	switch kind {
	case analysis.KindAudioInvalid, analysis.KindInvalidReference:
		return http.StatusBadRequest
	case analysis.KindInferenceTimeout:
		return http.StatusGatewayTimeout
	case analysis.KindCapacityExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON with the given status code. On encoding
// failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"success":false,"error":"internal error"}`, http.StatusInternalServerError)
	}
}
