package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"polyscribe/internal/logging"
)

const (
	processedDirName    = "processed"
	failedDirName       = "failed"
	defaultSettleDelay  = time.Second
	defaultPollInterval = 5 * time.Second
)

// DefaultExtensions lists the audio containers the engine accepts.
var DefaultExtensions = []string{".flac", ".m4a", ".mp3", ".mp4", ".mpeg", ".mpga", ".oga", ".ogg", ".wav", ".webm"}

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Options configure a Watcher.
type Options struct {
	Dir          string
	Extensions   []string
	SettleDelay  time.Duration
	PollInterval time.Duration
	// PollOnly skips fsnotify and relies on the directory scan.
	PollOnly bool
}

type pendingFile struct {
	size    int64
	changed time.Time
}

// Watcher feeds settled audio files from a directory to a Handler.
type Watcher struct {
	opts    Options
	handler Handler
	logger  *slog.Logger
	pending map[string]pendingFile
}

// New validates opts and constructs a Watcher.
func New(opts Options, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watch directory required")
	}
	if handler == nil {
		return nil, errors.New("watch handler required")
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	for _, dir := range []string{opts.Dir, filepath.Join(opts.Dir, processedDirName), filepath.Join(opts.Dir, failedDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create watch directory %q: %w", dir, err)
		}
	}
	return &Watcher{
		opts:    opts,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watch"),
		pending: make(map[string]pendingFile),
	}, nil
}

// ProcessedDir is where handled files are moved.
func (w *Watcher) ProcessedDir() string {
	return filepath.Join(w.opts.Dir, processedDirName)
}

// FailedDir is where files whose handler failed are moved.
func (w *Watcher) FailedDir() string {
	return filepath.Join(w.opts.Dir, failedDirName)
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var errs <-chan error

	if !w.opts.PollOnly {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("fsnotify not available, falling back to polling",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_polling_fallback"),
				logging.String(logging.FieldErrorHint, "new files are noticed on the next scan"),
			)
		} else {
			defer fsw.Close()
			if err := fsw.Add(w.opts.Dir); err != nil {
				w.logger.Warn("failed to watch directory, falling back to polling",
					logging.Error(err),
					logging.String(logging.FieldEventType, "watch_polling_fallback"),
					logging.String(logging.FieldErrorHint, "new files are noticed on the next scan"),
				)
			} else {
				events = fsw.Events
				errs = fsw.Errors
			}
		}
	}

	w.logger.Info("watching directory",
		logging.String("dir", w.opts.Dir),
		logging.Bool("fsnotify", events != nil),
		logging.Duration("poll_interval", w.opts.PollInterval),
	)

	w.scan()

	settle := time.NewTicker(max(w.opts.SettleDelay/2, 10*time.Millisecond))
	defer settle.Stop()
	poll := time.NewTicker(w.opts.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.track(event.Name)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("file watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldErrorHint, "directory scan continues"),
			)
		case <-poll.C:
			w.scan()
		case <-settle.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(name)))
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		w.logger.Warn("watch directory scan failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "watch_scan_failed"),
			logging.String(logging.FieldErrorHint, "check that the watch directory exists"),
		)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(filepath.Join(w.opts.Dir, entry.Name()))
	}
}

func (w *Watcher) track(path string) {
	if !w.accepts(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if prev, ok := w.pending[path]; ok && prev.size == info.Size() {
		return
	}
	w.pending[path] = pendingFile{size: info.Size(), changed: time.Now()}
}

// flush hands over files whose size has held steady for the settle delay.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	ready := make([]string, 0, len(w.pending))
	for path, state := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != state.size {
			w.pending[path] = pendingFile{size: info.Size(), changed: now}
			continue
		}
		if info.Size() > 0 && now.Sub(state.changed) >= w.opts.SettleDelay {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)
	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, path)
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	err := w.handler(ctx, path)
	if ctx.Err() != nil {
		// Interrupted mid-file; leave it for the next run.
		w.logger.Info("watched file left in place",
			logging.String("file", path),
			logging.String(logging.FieldEventType, "watch_file_interrupted"),
		)
		return
	}
	target := w.ProcessedDir()
	if err != nil {
		target = w.FailedDir()
		w.logger.Warn("watched file failed",
			logging.String("file", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "watch_file_failed"),
			logging.String(logging.FieldErrorHint, "file moved to "+target),
		)
	}
	dest := filepath.Join(target, filepath.Base(path))
	if renameErr := os.Rename(path, dest); renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
		w.logger.Error("failed to move watched file",
			logging.String("file", path),
			logging.Error(renameErr),
			logging.String(logging.FieldEventType, "watch_move_failed"),
			logging.String(logging.FieldErrorHint, "remove the file manually to stop reprocessing"),
		)
	}
}
