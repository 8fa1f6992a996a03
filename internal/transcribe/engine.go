package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
)

// Engine performs one external transcription call. *whisper.Client satisfies it.
type Engine interface {
	Transcribe(ctx context.Context, source whisper.Source, opts whisper.Options) (whisper.Transcription, error)
}

// pass is the adapter around one engine configuration. It never returns an
// error: a failed call yields EmptyResult and ok=false.
type pass struct {
	kind    PassKind
	engine  Engine
	options whisper.Options
	logger  *slog.Logger
}

func newPasses(cfg Config, engine Engine, logger *slog.Logger) (neutral, hinted pass) {
	neutral = pass{kind: PassNeutral, engine: engine, logger: logger}
	hinted = pass{
		kind:   PassHinted,
		engine: engine,
		options: whisper.Options{
			Language: cfg.SecondaryHint,
			Prompt:   cfg.HintInstruction,
		},
		logger: logger,
	}
	return neutral, hinted
}

func (p pass) submit(ctx context.Context, audio *Audio) (result Result, ok bool) {
	ctx = services.WithPass(ctx, p.kind.String())
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()

	transcription, err := p.engine.Transcribe(ctx, audio, p.options)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		logger.Debug("engine pass cancelled", logging.Duration("pass_duration", time.Since(start)))
		return EmptyResult(), false
	}
	if err != nil {
		logging.WarnWithContext(logger, "engine pass failed; continuing with empty result", FaultEngineUnavailable.String(),
			logging.Error(err),
			logging.Fault(FaultKindOf(err)),
			logging.Duration("pass_duration", time.Since(start)),
			logging.String(logging.FieldErrorHint, "check engine.base_url, engine.api_key and engine availability"),
			logging.String(logging.FieldImpact, "selection continues without this pass"),
		)
		return EmptyResult(), false
	}
	result = resultFromEngine(transcription)
	logger.Debug("engine pass completed",
		logging.String("engine_language", result.Language),
		logging.Int("text_length", len([]rune(result.Text))),
		logging.Int("segment_count", len(result.Segments)),
		logging.Duration("pass_duration", time.Since(start)),
	)
	return result, true
}
