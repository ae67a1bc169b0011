// Command vietspeak is the pronunciation assessment server for
// Vietnamese-L1 English learners.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vietspeak/vietspeak/internal/analysis"
	"github.com/vietspeak/vietspeak/internal/config"
	"github.com/vietspeak/vietspeak/internal/feedback"
	"github.com/vietspeak/vietspeak/internal/g2p"
	"github.com/vietspeak/vietspeak/internal/gop"
	"github.com/vietspeak/vietspeak/internal/health"
	"github.com/vietspeak/vietspeak/internal/interference"
	"github.com/vietspeak/vietspeak/internal/observe"
	"github.com/vietspeak/vietspeak/internal/resilience"
	"github.com/vietspeak/vietspeak/internal/scheduler"
	"github.com/vietspeak/vietspeak/internal/server"
	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/acoustic/openai"
	"github.com/vietspeak/vietspeak/pkg/acoustic/remote"
	"github.com/vietspeak/vietspeak/pkg/acoustic/whisper"
	"github.com/vietspeak/vietspeak/pkg/audio"
	"github.com/vietspeak/vietspeak/pkg/pron"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vietspeak: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vietspeak: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can change it without
	// rebuilding the handler.
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("vietspeak starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"backend", cfg.Backend.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "vietspeak",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Grapheme-to-phoneme converter ─────────────────────────────────────────
	// Shared between word-level backends (span synthesis) and the analyzer
	// (reference expansion).
	converter := g2p.New()

	// ── Acoustic backend registry ─────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBackends(reg, converter)

	provider, err := reg.CreateAcoustic(cfg.Backend)
	if err != nil {
		slog.Error("failed to create acoustic backend", "backend", cfg.Backend.Name, "err", err)
		return 1
	}
	if fb := cfg.Backend.Fallback; fb != nil {
		secondary, err := reg.CreateAcoustic(*fb)
		if err != nil {
			slog.Error("failed to create fallback backend", "backend", fb.Name, "err", err)
			return 1
		}
		group := resilience.NewAcousticFallback(provider, string(cfg.Backend.Name), resilience.FallbackConfig{})
		group.AddFallback(string(fb.Name), secondary)
		provider = group
		slog.Info("fallback backend ready", "backend", fb.Name)
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Warn("backend close error", "err", err)
			}
		}()
	}
	slog.Info("acoustic backend ready", "backend", cfg.Backend.Name)

	// ── Inference scheduler ───────────────────────────────────────────────────
	sched, err := scheduler.New(provider, schedulerOptions(cfg.Scheduler, metrics)...)
	if err != nil {
		slog.Error("failed to create scheduler", "err", err)
		return 1
	}
	sched.Start()
	defer func() {
		if err := sched.Close(); err != nil {
			slog.Warn("scheduler close error", "err", err)
		}
	}()

	// ── Analysis pipeline ─────────────────────────────────────────────────────
	// Wrapped in a swappable holder so scoring calibration can be hot-reloaded.
	pipeline, err := buildAnalyzer(cfg, sched, converter, metrics)
	if err != nil {
		slog.Error("failed to build analysis pipeline", "err", err)
		return 1
	}
	analyzer := &reloadableAnalyzer{}
	analyzer.current.Store(pipeline)

	// ── Config watcher ────────────────────────────────────────────────────────
	// Log level and scoring calibration apply live; everything else needs a
	// restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ScoringChanged {
			p, err := buildAnalyzer(new, sched, converter, metrics)
			if err != nil {
				slog.Warn("scoring reload failed, keeping previous calibration", "err", err)
				return
			}
			analyzer.current.Store(p)
			slog.Info("scoring calibration reloaded")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── HTTP server ───────────────────────────────────────────────────────────
	checks := health.New(
		health.Checker{Name: "scheduler", Check: func(ctx context.Context) error {
			return sched.Ping(ctx)
		}},
	)

	serverOpts := []server.Option{
		server.WithMetrics(metrics),
		server.WithHealth(checks),
	}
	if cfg.Scheduler.RequestTimeoutMs > 0 {
		serverOpts = append(serverOpts, server.WithRequestTimeout(time.Duration(cfg.Scheduler.RequestTimeoutMs)*time.Millisecond))
	}
	srv, err := server.New(analyzer, serverOpts...)
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", addr)
		if tls := cfg.Server.TLS; tls != nil {
			errCh <- httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- httpSrv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Hot reload ────────────────────────────────────────────────────────────────

// reloadableAnalyzer lets the config watcher swap in a freshly calibrated
// pipeline while requests are in flight. In-flight requests finish on the
// pipeline they started with.
type reloadableAnalyzer struct {
	current atomic.Pointer[analysis.Analyzer]
}

var _ server.Analyzer = (*reloadableAnalyzer)(nil)

func (r *reloadableAnalyzer) Analyze(ctx context.Context, clip audio.Clip, referenceText string) (*pron.Result, error) {
	return r.current.Load().Analyze(ctx, clip, referenceText)
}

func (r *reloadableAnalyzer) Respond(result *pron.Result, err error) pron.Response {
	return r.current.Load().Respond(result, err)
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBackends wires all built-in acoustic backend factories into reg.
func registerBackends(reg *config.Registry, converter *g2p.Converter) {
	reg.RegisterAcoustic(config.BackendWhisper, func(entry config.BackendConfig) (acoustic.Provider, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.ModelPath, converter, opts...)
	})

	reg.RegisterAcoustic(config.BackendOpenAI, func(entry config.BackendConfig) (acoustic.Provider, error) {
		model := entry.Model
		if model == "" {
			model = openai.DefaultModel
		}
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, openai.WithLanguage(entry.Language))
		}
		return openai.New(entry.APIKey, model, converter, opts...)
	})

	reg.RegisterAcoustic(config.BackendRemote, func(entry config.BackendConfig) (acoustic.Provider, error) {
		var opts []remote.Option
		if entry.Language != "" {
			opts = append(opts, remote.WithLanguage(entry.Language))
		}
		return remote.New(entry.URL, opts...)
	})

	for _, name := range reg.Backends() {
		slog.Debug("registered acoustic backend", "name", name)
	}
}

// schedulerOptions translates the scheduler config section into options.
// Zero values are skipped so the scheduler's own defaults apply.
func schedulerOptions(sc config.SchedulerConfig, metrics *observe.Metrics) []scheduler.Option {
	opts := []scheduler.Option{
		scheduler.WithMonitor(&observe.SchedulerMonitor{Metrics: metrics}),
	}
	if sc.Slots > 0 {
		opts = append(opts, scheduler.WithSlots(sc.Slots))
	}
	if sc.QueueDepth > 0 {
		opts = append(opts, scheduler.WithQueueDepth(sc.QueueDepth))
	}
	if sc.BatchWindowMs > 0 {
		opts = append(opts, scheduler.WithBatchWindow(time.Duration(sc.BatchWindowMs)*time.Millisecond))
	}
	return opts
}

// buildAnalyzer assembles the scoring pipeline from the config's scoring and
// audio sections. Zero values fall back to the calibrated defaults.
func buildAnalyzer(cfg *config.Config, sched *scheduler.Scheduler, converter *g2p.Converter, metrics *observe.Metrics) (*analysis.Analyzer, error) {
	opts := []analysis.Option{
		analysis.WithConverter(converter),
		analysis.WithMetrics(metrics),
	}

	// Audio constraints.
	cons := analysis.DefaultConstraints
	if cfg.Audio.SampleRate > 0 {
		cons.SampleRate = cfg.Audio.SampleRate
	}
	if cfg.Audio.MinDurationMs > 0 {
		cons.MinDuration = time.Duration(cfg.Audio.MinDurationMs) * time.Millisecond
	}
	if cfg.Audio.MaxDurationMs > 0 {
		cons.MaxDuration = time.Duration(cfg.Audio.MaxDurationMs) * time.Millisecond
	}
	opts = append(opts, analysis.WithConstraints(cons))

	// GOP band. A zero floor means the calibrated default.
	if cfg.Scoring.GopFloor != 0 || cfg.Scoring.GopCeiling != 0 {
		floor := cfg.Scoring.GopFloor
		if floor == 0 {
			floor = gop.DefaultFloor
		}
		scorer, err := gop.New(gop.WithBand(floor, cfg.Scoring.GopCeiling))
		if err != nil {
			return nil, fmt.Errorf("gop band: %w", err)
		}
		opts = append(opts, analysis.WithScorer(scorer))
	}

	// Interference detector, optionally from an external rule table.
	var detOpts []interference.Option
	if cfg.Scoring.InterferenceThreshold > 0 {
		detOpts = append(detOpts, interference.WithThreshold(cfg.Scoring.InterferenceThreshold))
	}
	var (
		det *interference.Detector
		err error
	)
	if cfg.Scoring.RulesPath != "" {
		det, err = interference.Load(cfg.Scoring.RulesPath, detOpts...)
	} else {
		det, err = interference.New(detOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("interference rules: %w", err)
	}
	opts = append(opts, analysis.WithDetector(det))

	// Overall score weights.
	if w := cfg.Scoring.Weights; w != nil {
		agg, err := feedback.New(feedback.WithWeights(feedback.Weights{
			Accuracy:     w.Accuracy,
			Fluency:      w.Fluency,
			Completeness: w.Completeness,
		}))
		if err != nil {
			return nil, fmt.Errorf("feedback weights: %w", err)
		}
		opts = append(opts, analysis.WithAggregator(agg))
	}

	return analysis.New(sched, opts...)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
