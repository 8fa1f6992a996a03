package transcribe_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
	"polyscribe/internal/transcribe"
)

type engineReply func(ctx context.Context) (whisper.Transcription, error)

// fakeEngine routes calls by whether a language hint is present.
type fakeEngine struct {
	mu      sync.Mutex
	neutral engineReply
	hinted  engineReply
	options []whisper.Options
}

func (f *fakeEngine) Transcribe(ctx context.Context, source whisper.Source, opts whisper.Options) (whisper.Transcription, error) {
	f.mu.Lock()
	f.options = append(f.options, opts)
	f.mu.Unlock()
	if rc, err := source.Open(); err == nil {
		rc.Close()
	}
	if opts.Language == "" {
		return f.neutral(ctx)
	}
	return f.hinted(ctx)
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.options)
}

func reply(text, lang string, duration float64) engineReply {
	return func(context.Context) (whisper.Transcription, error) {
		return whisper.Transcription{
			Text:     text,
			Language: lang,
			Duration: duration,
			Segments: []whisper.Segment{{ID: 0, Start: 0, End: duration, Text: text}},
		}, nil
	}
}

func fail() engineReply {
	return func(context.Context) (whisper.Transcription, error) {
		return whisper.Transcription{}, services.Wrap(services.ErrEngineUnavailable, "engine", "transcribe", "test", errors.New("connection refused"))
	}
}

func blockUntilDone() engineReply {
	return func(ctx context.Context) (whisper.Transcription, error) {
		<-ctx.Done()
		return whisper.Transcription{}, ctx.Err()
	}
}

func newAudio(t *testing.T) *transcribe.Audio {
	t.Helper()
	audio, err := transcribe.StageAudio(t.TempDir(), "clip.wav", "audio/wav", strings.NewReader("RIFF....WAVE"), 0)
	if err != nil {
		t.Fatalf("StageAudio: %v", err)
	}
	return audio
}
