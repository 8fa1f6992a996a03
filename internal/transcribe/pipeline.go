package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"polyscribe/internal/config"
	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
)

const defaultDeadline = 120 * time.Second

// Config is the explicit pipeline configuration. Nothing is read from globals.
type Config struct {
	// DefaultLanguage is rendered when the chosen pass observed no language.
	DefaultLanguage string
	// SecondaryHint is the language hint sent with the hinted pass.
	SecondaryHint string
	// HintInstruction is the prompt sent with the hinted pass.
	HintInstruction string
	// Deadline bounds both passes together.
	Deadline time.Duration
	// Speculative starts the hinted pass alongside the neutral pass.
	Speculative bool
}

// ConfigFromSettings derives the pipeline configuration from loaded settings.
func ConfigFromSettings(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}.withDefaults()
	}
	return Config{
		DefaultLanguage: cfg.Pipeline.DefaultLanguage,
		SecondaryHint:   cfg.Pipeline.SecondaryHint,
		HintInstruction: cfg.Pipeline.HintInstruction,
		Deadline:        cfg.PipelineDeadline(),
		Speculative:     cfg.Pipeline.SpeculativeSecond,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.DefaultLanguage) == "" {
		c.DefaultLanguage = "en"
	}
	if strings.TrimSpace(c.SecondaryHint) == "" {
		c.SecondaryHint = "zh"
	}
	if strings.TrimSpace(c.HintInstruction) == "" {
		c.HintInstruction = config.DefaultHintInstruction
	}
	if c.Deadline <= 0 {
		c.Deadline = defaultDeadline
	}
	return c
}

// Trace describes how an Outcome was reached. EngineCalls counts dispatched
// passes and bounds the billed calls; EngineRequests counts every HTTP attempt
// an instrumented engine made, retries of rejected requests included.
type Trace struct {
	States         []State
	EngineCalls    int
	EngineRequests int
	FailedPasses   []PassKind
	Fault          FaultKind
	Elapsed        time.Duration
}

// Pipeline coordinates the passes and the selector for one audio input at a time.
// A Pipeline holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	orch   *orchestrator
	logger *slog.Logger
}

// New constructs a Pipeline around engine.
func New(cfg Config, engine Engine, logger *slog.Logger) (*Pipeline, error) {
	if engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "engine required", nil)
	}
	cfg = cfg.withDefaults()
	logger = logging.NewComponentLogger(logger, "pipeline")
	neutral, hinted := newPasses(cfg, engine, logger)
	return &Pipeline{
		cfg: cfg,
		orch: &orchestrator{
			neutral:         neutral,
			hinted:          hinted,
			speculative:     cfg.Speculative,
			defaultLanguage: cfg.DefaultLanguage,
			logger:          logger,
		},
		logger: logger,
	}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run transcribes audio and selects the rendering language. It never fails;
// degraded runs return FallbackOutcome. audio is released before Run returns.
func (p *Pipeline) Run(ctx context.Context, audio *Audio) Outcome {
	outcome, _ := p.Execute(ctx, audio)
	return outcome
}

// Execute is Run plus the trace of how the outcome was reached.
func (p *Pipeline) Execute(ctx context.Context, audio *Audio) (outcome Outcome, trace Trace) {
	start := time.Now()
	logger := logging.WithContext(ctx, p.logger)

	defer func() {
		if err := audio.Release(); err != nil {
			logging.WarnWithContext(logger, "audio release failed", "audio_release",
				logging.Error(err),
				logging.String(logging.FieldImpact, "temporary upload may remain on disk"),
			)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			outcome = FallbackOutcome(p.cfg.DefaultLanguage)
			trace.Fault = FaultInternalPanic
			logging.ErrorWithContext(logger, "pipeline panicked; returning fallback", FaultInternalPanic.String(),
				logging.String("panic", fmt.Sprint(rec)))
		}
		trace.Elapsed = time.Since(start)
	}()

	if audio == nil {
		logging.ErrorWithContext(logger, "pipeline invoked without audio", FaultTotalFailure.String())
		return FallbackOutcome(p.cfg.DefaultLanguage), Trace{Fault: FaultTotalFailure, States: []State{StateStart}}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()
	meter := &whisper.Meter{}
	ctx = whisper.WithMeter(ctx, meter)

	type finished struct {
		run *run
		err error
	}
	var calls atomic.Int32
	done := make(chan finished, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- finished{err: &panicError{value: rec}}
			}
		}()
		r, err := p.orch.execute(ctx, audio, &calls)
		done <- finished{run: r, err: err}
	}()

	var result finished
	select {
	case result = <-done:
	case <-ctx.Done():
		select {
		case result = <-done:
		default:
			result.err = services.Wrap(services.ErrTimeout, "pipeline", "run", "deadline exceeded", ctx.Err())
		}
	}

	trace.EngineCalls = int(calls.Load())
	trace.EngineRequests = meter.Requests()
	if result.run != nil {
		trace.States = append([]State(nil), result.run.trail...)
		trace.FailedPasses = result.run.failedPasses()
	}

	if result.err != nil {
		trace.Fault = FaultKindOf(result.err)
		outcome = FallbackOutcome(p.cfg.DefaultLanguage)
		p.logFallback(logger, trace, result.err)
		return outcome, trace
	}

	outcome = result.run.outcome
	switch {
	case outcome.Strategy == StrategyDetectFirstFallback:
		trace.Fault = FaultAmbiguousLanguage
	case len(trace.FailedPasses) > 0:
		trace.Fault = FaultEngineUnavailable
	}
	p.logDecision(logger, outcome, trace, time.Since(start))
	return outcome, trace
}

func (p *Pipeline) logFallback(logger *slog.Logger, trace Trace, err error) {
	attrs := []logging.Attr{
		logging.Error(err),
		logging.Fault(trace.Fault),
		logging.Int("engine_calls", trace.EngineCalls),
		logging.Int("engine_requests", trace.EngineRequests),
		logging.String(logging.FieldImpact, "returning empty fallback transcript"),
	}
	if errors.Is(err, ErrTotalFailure) {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "engine rejected or failed every pass; check engine logs above"))
	}
	if trace.Fault == FaultInternalPanic {
		logging.ErrorWithContext(logger, "pipeline fallback", trace.Fault.String(), attrs...)
		return
	}
	logging.WarnWithContext(logger, "pipeline fallback", trace.Fault.String(), attrs...)
}

func (p *Pipeline) logDecision(logger *slog.Logger, outcome Outcome, trace Trace, elapsed time.Duration) {
	attrs := logging.DecisionAttrs("strategy", outcome.Strategy.String(), strategyReason(outcome.Strategy))
	attrs = append(attrs,
		logging.String("primary_script", outcome.ScriptAnalysis.Detected),
		logging.Float64("confidence", outcome.ScriptAnalysis.Confidence),
		logging.Strings("detected_languages", outcome.DetectedLanguages),
		logging.String("rendering_language", outcome.RenderingLanguage),
		logging.Int("engine_calls", trace.EngineCalls),
		logging.Int("engine_requests", trace.EngineRequests),
		logging.Duration("pipeline_duration", elapsed),
	)
	if trace.Fault != FaultNone {
		attrs = append(attrs, logging.Fault(trace.Fault))
	}
	logger.Info("transcription strategy selected", logging.Args(attrs...)...)
}

func strategyReason(s Strategy) string {
	switch s {
	case StrategyAutoConfidentDefault:
		return "neutral pass confidently Latin with no Han characters"
	case StrategyDefaultPreferred:
		return "neutral pass confidence at least as high as hinted pass"
	case StrategySecondaryPreferred:
		return "hinted pass confidence higher"
	case StrategyDetectFirstFallback:
		return "neither pass classified with useful confidence"
	default:
		return "no usable pass"
	}
}
