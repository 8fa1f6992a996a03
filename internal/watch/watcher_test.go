package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"polyscribe/internal/history"
	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
	"polyscribe/internal/testsupport"
	"polyscribe/internal/transcribe"
	"polyscribe/internal/workflow"
)

type recordingHandler struct {
	mu    sync.Mutex
	paths []string
	err   error
	seen  chan string
}

func newRecordingHandler(err error) *recordingHandler {
	return &recordingHandler{err: err, seen: make(chan string, 8)}
}

func (h *recordingHandler) handle(_ context.Context, path string) error {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	h.mu.Unlock()
	h.seen <- path
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.paths)
}

func startWatcher(t *testing.T, opts Options, h *recordingHandler) *Watcher {
	t.Helper()
	w, err := New(opts, h.handle, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	return w
}

func waitForPath(t *testing.T, h *recordingHandler) string {
	t.Helper()
	select {
	case path := <-h.seen:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
		return ""
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
}

func fastOptions(dir string) Options {
	return Options{Dir: dir, SettleDelay: 40 * time.Millisecond, PollInterval: 50 * time.Millisecond}
}

func TestNewRequiresDirAndHandler(t *testing.T) {
	if _, err := New(Options{}, func(context.Context, string) error { return nil }, nil); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := New(Options{Dir: t.TempDir()}, nil, nil); err == nil {
		t.Fatal("expected error for missing handler")
	}
}

func TestExistingFileProcessedAndMoved(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteAudio(t, dir, "existing.wav")
	h := newRecordingHandler(nil)
	w := startWatcher(t, fastOptions(dir), h)

	if got := waitForPath(t, h); got != filepath.Join(dir, "existing.wav") {
		t.Fatalf("handled %q", got)
	}
	waitForFile(t, filepath.Join(w.ProcessedDir(), "existing.wav"))
}

func TestNewFileProcessed(t *testing.T) {
	for _, pollOnly := range []bool{false, true} {
		name := "fsnotify"
		if pollOnly {
			name = "poll only"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			opts := fastOptions(dir)
			opts.PollOnly = pollOnly
			h := newRecordingHandler(nil)
			w := startWatcher(t, opts, h)

			testsupport.WriteAudio(t, dir, "dropped.mp3")
			if got := waitForPath(t, h); filepath.Base(got) != "dropped.mp3" {
				t.Fatalf("handled %q", got)
			}
			waitForFile(t, filepath.Join(w.ProcessedDir(), "dropped.mp3"))
		})
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	h := newRecordingHandler(nil)
	startWatcher(t, fastOptions(dir), h)

	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, ".partial.wav"), 10)
	testsupport.WriteAudio(t, dir, "real.ogg")

	if got := waitForPath(t, h); filepath.Base(got) != "real.ogg" {
		t.Fatalf("handled %q", got)
	}
	time.Sleep(200 * time.Millisecond)
	if n := h.count(); n != 1 {
		t.Fatalf("handler calls = %d, want 1", n)
	}
}

func TestFailedFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	h := newRecordingHandler(errors.New("cannot open"))
	w := startWatcher(t, fastOptions(dir), h)

	testsupport.WriteAudio(t, dir, "broken.wav")
	waitForPath(t, h)
	waitForFile(t, filepath.Join(w.FailedDir(), "broken.wav"))
}

type downEngine struct{}

func (downEngine) Transcribe(context.Context, whisper.Source, whisper.Options) (whisper.Transcription, error) {
	return whisper.Transcription{}, services.Wrap(services.ErrEngineUnavailable, "engine", "transcribe", "test", errors.New("connection refused"))
}

func TestUntranscribedFileMovedToFailed(t *testing.T) {
	pipeline, err := transcribe.New(transcribe.Config{}, downEngine{}, logging.NewNop())
	if err != nil {
		t.Fatalf("transcribe.New: %v", err)
	}
	runner := workflow.NewRunner(pipeline, nil, logging.NewNop())
	h := newRecordingHandler(nil)
	handler := func(ctx context.Context, path string) error {
		_, runErr := runner.RunFile(ctx, path, history.SourceWatch)
		h.err = runErr
		return h.handle(ctx, path)
	}

	dir := t.TempDir()
	testsupport.WriteAudio(t, dir, "memo.wav")
	w, err := New(fastOptions(dir), handler, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitForPath(t, h)
	waitForFile(t, filepath.Join(w.FailedDir(), "memo.wav"))
	if !errors.Is(h.err, workflow.ErrNoTranscript) {
		t.Fatalf("handler err = %v", h.err)
	}
	if _, err := os.Stat(filepath.Join(w.ProcessedDir(), "memo.wav")); !os.IsNotExist(err) {
		t.Fatalf("file must not reach processed/, stat err = %v", err)
	}
}

func TestInterruptedFileLeftInPlace(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteAudio(t, dir, "long.wav")
	started := make(chan struct{})
	var once sync.Once
	handler := func(ctx context.Context, _ string) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}
	w, err := New(fastOptions(dir), handler, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	cancel()
	<-done

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("interrupted file must stay in the watch dir: %v", err)
	}
	for _, moved := range []string{w.ProcessedDir(), w.FailedDir()} {
		if _, err := os.Stat(filepath.Join(moved, "long.wav")); !os.IsNotExist(err) {
			t.Fatalf("file moved to %s, stat err = %v", moved, err)
		}
	}
}
