package transcribe_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"polyscribe/internal/logging"
	"polyscribe/internal/services/whisper"
	"polyscribe/internal/transcribe"
)

func newHTTPPipeline(t *testing.T, handler http.HandlerFunc) *transcribe.Pipeline {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := whisper.NewClient(
		whisper.Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"},
		whisper.WithRetryMaxAttempts(3),
		whisper.WithSleeper(func(time.Duration) {}),
	)
	pipeline, err := transcribe.New(transcribe.Config{}, client, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pipeline
}

func TestEmptyEngineResponsesAreBilledOncePerPass(t *testing.T) {
	var hits atomic.Int32
	pipeline := newHTTPPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"text":""}`)
	})

	outcome, trace := pipeline.Execute(context.Background(), newAudio(t))
	if outcome.Strategy != transcribe.StrategyPipelineFallback {
		t.Fatalf("strategy = %v", outcome.Strategy)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("engine received %d requests, want 2", got)
	}
	if trace.EngineCalls != 2 || trace.EngineRequests != 2 {
		t.Fatalf("trace calls=%d requests=%d, want 2/2", trace.EngineCalls, trace.EngineRequests)
	}
}

func TestRejectedRequestsAreRetriedAndReported(t *testing.T) {
	var hits atomic.Int32
	pipeline := newHTTPPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"text":"hello world how are you today","language":"english","duration":2}`)
	})

	outcome, trace := pipeline.Execute(context.Background(), newAudio(t))
	if outcome.Strategy != transcribe.StrategyAutoConfidentDefault {
		t.Fatalf("strategy = %v", outcome.Strategy)
	}
	if trace.EngineCalls != 1 || trace.EngineRequests != 3 {
		t.Fatalf("trace calls=%d requests=%d, want 1/3", trace.EngineCalls, trace.EngineRequests)
	}
	if outcome.DurationSeconds != 2 {
		t.Fatalf("duration = %v", outcome.DurationSeconds)
	}
}
