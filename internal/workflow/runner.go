package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"polyscribe/internal/history"
	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/transcribe"
)

// ErrNoTranscript reports a run that ended on the fallback outcome.
var ErrNoTranscript = errors.New("no usable transcript")

// Recorder persists completed transcriptions.
type Recorder interface {
	Add(ctx context.Context, rec history.Record) (history.Record, error)
}

// Result is the product of one job.
type Result struct {
	RequestID   string
	FileName    string
	FileSize    int64
	ContentType string
	RecordID    string
	Outcome     transcribe.Outcome
	Trace       transcribe.Trace
}

// Runner executes jobs against a pipeline.
type Runner struct {
	pipeline *transcribe.Pipeline
	recorder Recorder
	logger   *slog.Logger
}

// NewRunner constructs a Runner. recorder may be nil when history is disabled.
func NewRunner(pipeline *transcribe.Pipeline, recorder Recorder, logger *slog.Logger) *Runner {
	return &Runner{
		pipeline: pipeline,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Run transcribes audio and records the outcome. audio is released before Run
// returns.
func (r *Runner) Run(ctx context.Context, audio *transcribe.Audio, source string) Result {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = xid.New().String()
		ctx = services.WithRequestID(ctx, requestID)
	}
	logger := logging.WithContext(ctx, r.logger)

	result := Result{RequestID: requestID}
	if audio != nil {
		result.FileName = audio.Name()
		result.FileSize = audio.Size()
		result.ContentType = audio.ContentType()
	}

	result.Outcome, result.Trace = r.pipeline.Execute(ctx, audio)

	if r.recorder != nil {
		rec := history.NewRecord(source, result.FileName, result.FileSize, result.Outcome, result.Trace)
		stored, err := r.recorder.Add(ctx, rec)
		if err != nil {
			logging.WarnWithContext(logger, "history write failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "transcription not listed in history"),
			)
		} else {
			result.RecordID = stored.ID
		}
	}

	logger.Info("transcription completed",
		logging.String("source", source),
		logging.String("file", result.FileName),
		logging.String("strategy", result.Outcome.Strategy.String()),
		logging.String("rendering_language", result.Outcome.RenderingLanguage),
		logging.Int("engine_calls", result.Trace.EngineCalls),
		logging.Int("engine_requests", result.Trace.EngineRequests),
		logging.Fault(result.Trace.Fault),
		logging.Duration("elapsed", result.Trace.Elapsed),
	)
	return result
}

// RunFile transcribes a local file, leaving it in place. It returns an error
// when the file cannot be opened, when ctx ends first, or when the run produced
// no transcript; the Result is still populated in the last two cases.
func (r *Runner) RunFile(ctx context.Context, path, source string) (Result, error) {
	audio, err := transcribe.OpenAudioFile(path)
	if err != nil {
		return Result{}, err
	}
	result := r.Run(ctx, audio, source)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if fault := result.Trace.Fault; fault.Failed() {
		return result, fmt.Errorf("%s: %w (%s)", result.FileName, ErrNoTranscript, fault)
	}
	return result, nil
}
