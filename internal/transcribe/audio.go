package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"polyscribe/internal/services"
)

// Audio is the request-scoped audio input. Release closes out the resource and,
// for staged uploads, removes the temporary file. Release is safe to call more
// than once.
type Audio struct {
	name        string
	path        string
	size        int64
	contentType string
	owned       bool

	once       sync.Once
	releaseErr error
}

// OpenAudioFile wraps an existing file. Release leaves the file in place.
func OpenAudioFile(path string) (*Audio, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "open", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "audio", "open", path+" is a directory", nil)
	}
	if info.Size() == 0 {
		return nil, services.Wrap(services.ErrValidation, "audio", "open", path+" is empty", nil)
	}
	return &Audio{name: filepath.Base(path), path: path, size: info.Size()}, nil
}

// StageAudio copies r into a temporary file under dir (os.TempDir when empty).
// Uploads larger than limit bytes are rejected with services.ErrTooLarge; a
// non-positive limit disables the check. The staged file is removed on every
// error path and by Release.
func StageAudio(dir, name, contentType string, r io.Reader, limit int64) (*Audio, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, services.Wrap(services.ErrValidation, "audio", "stage", "file name required", nil)
	}
	file, err := os.CreateTemp(dir, "polyscribe-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("stage audio: create temp file: %w", err)
	}
	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(file, src)
	closeErr := file.Close()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("stage audio: copy upload: %w", err)
	}
	if closeErr != nil {
		cleanup()
		return nil, fmt.Errorf("stage audio: close temp file: %w", closeErr)
	}
	if limit > 0 && written > limit {
		cleanup()
		return nil, services.Wrap(services.ErrTooLarge, "audio", "stage", fmt.Sprintf("%s exceeds %d bytes", name, limit), nil)
	}
	if written == 0 {
		cleanup()
		return nil, services.Wrap(services.ErrValidation, "audio", "stage", name+" is empty", nil)
	}
	return &Audio{
		name:        name,
		path:        path,
		size:        written,
		contentType: contentType,
		owned:       true,
	}, nil
}

// Name returns the client-facing file name.
func (a *Audio) Name() string { return a.name }

// Path returns the on-disk location.
func (a *Audio) Path() string { return a.path }

// Size returns the payload size in bytes.
func (a *Audio) Size() int64 { return a.size }

// ContentType returns the declared MIME type, if any.
func (a *Audio) ContentType() string { return a.contentType }

// Open returns a fresh reader over the payload.
func (a *Audio) Open() (io.ReadCloser, error) {
	return os.Open(a.path)
}

// Release frees the audio. Staged files are deleted.
func (a *Audio) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if !a.owned {
			return
		}
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.releaseErr = fmt.Errorf("release audio: %w", err)
		}
	})
	return a.releaseErr
}
