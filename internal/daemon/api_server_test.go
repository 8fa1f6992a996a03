package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"polyscribe/internal/api"
	"polyscribe/internal/config"
	"polyscribe/internal/history"
	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
	"polyscribe/internal/testsupport"
	"polyscribe/internal/transcribe"
	"polyscribe/internal/workflow"
)

type scriptedEngine struct {
	text string
	lang string
	err  error
}

func (e scriptedEngine) Transcribe(context.Context, whisper.Source, whisper.Options) (whisper.Transcription, error) {
	if e.err != nil {
		return whisper.Transcription{}, e.err
	}
	return whisper.Transcription{Text: e.text, Language: e.lang, Duration: 2, Segments: []whisper.Segment{{End: 2, Text: e.text}}}, nil
}

type testServer struct {
	daemon   *Daemon
	stageDir string
	store    *history.Store
}

func newTestServer(t *testing.T, engine transcribe.Engine, opts ...testsupport.ConfigOption) *testServer {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenHistory(t, cfg)
	return newTestServerWithConfig(t, cfg, engine, store)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, engine transcribe.Engine, store *history.Store) *testServer {
	t.Helper()
	pipeline, err := transcribe.New(transcribe.ConfigFromSettings(cfg), engine, logging.NewNop())
	if err != nil {
		t.Fatalf("transcribe.New: %v", err)
	}
	var recorder workflow.Recorder
	if store != nil {
		recorder = store
	}
	d, err := New(cfg, workflow.NewRunner(pipeline, recorder, logging.NewNop()), store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stageDir := t.TempDir()
	d.api.stageDir = stageDir
	return &testServer{daemon: d, stageDir: stageDir, store: store}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.daemon.api.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) assertStageDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ts.stageDir)
	if err != nil {
		t.Fatalf("read stage dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected staged uploads removed, found %d entries", len(entries))
	}
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", "whisper-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/whisper", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestWhisperUploadReturnsResponse(t *testing.T) {
	ts := newTestServer(t, scriptedEngine{text: "Please schedule the meeting for Monday.", lang: "english"})

	w := ts.do(multipartRequest(t, "file", "memo.wav", []byte("RIFF-audio")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	var resp api.TranscriptionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Text != "Please schedule the meeting for Monday." || resp.Language != "en" || resp.LanguageRendered != "en" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Debug.Strategy != transcribe.StrategyAutoConfidentDefault || !resp.Enhanced {
		t.Fatalf("unexpected debug: %+v", resp.Debug)
	}
	if resp.Debug.FileSize != int64(len("RIFF-audio")) {
		t.Fatalf("file size = %d", resp.Debug.FileSize)
	}
	ts.assertStageDirEmpty(t)

	count, err := ts.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("history rows = %d, want 1", count)
	}
}

func TestWhisperUploadRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{
			name:   "missing file part",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "", "", nil) },
			status: http.StatusBadRequest,
		},
		{
			name:   "empty file",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", "empty.wav", nil) },
			status: http.StatusBadRequest,
		},
		{
			name:   "no file name",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", "", []byte("abc")) },
			status: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/whisper", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusBadRequest,
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "big.wav", bytes.Repeat([]byte{0x42}, (1<<20)+16))
			},
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, scriptedEngine{text: "unused text", lang: "en"}, testsupport.WithMaxUploadMB(1))
			w := ts.do(tt.req(t))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tt.status, w.Body.String())
			}
			var resp api.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error == "" {
				t.Fatal("expected error message")
			}
			ts.assertStageDirEmpty(t)
		})
	}
}

func TestWhisperEngineFailureStillAnswers(t *testing.T) {
	engineErr := services.Wrap(services.ErrEngineUnavailable, "engine", "transcribe", "test", errors.New("connection refused"))
	ts := newTestServer(t, scriptedEngine{err: engineErr}, testsupport.WithDefaultLanguage("zh"))

	w := ts.do(multipartRequest(t, "file", "clip.mp3", []byte("ID3")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp api.TranscriptionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.Outcome(); got.Strategy != transcribe.StrategyPipelineFallback || got.RenderingLanguage != "zh" {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	ts.assertStageDirEmpty(t)
}

func TestAuthRequiredWhenTokenConfigured(t *testing.T) {
	ts := newTestServer(t, scriptedEngine{text: "hello there friend", lang: "en"}, testsupport.WithAPIToken("secret"))

	if w := ts.do(multipartRequest(t, "file", "a.wav", []byte("x"))); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", w.Code)
	}

	req := multipartRequest(t, "file", "a.wav", []byte("x"))
	req.Header.Set("Authorization", "Bearer wrong")
	if w := ts.do(req); w.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d", w.Code)
	}

	req = multipartRequest(t, "file", "a.wav", []byte("x"))
	req.Header.Set("Authorization", "Bearer secret")
	if w := ts.do(req); w.Code != http.StatusOK {
		t.Fatalf("status with token = %d", w.Code)
	}

	if w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Fatalf("health should not require auth, got %d", w.Code)
	}
}

func TestTranscriptionsListing(t *testing.T) {
	ts := newTestServer(t, scriptedEngine{text: "你好，我们明天见面吧", lang: "zh"})
	for range 2 {
		if w := ts.do(multipartRequest(t, "file", "zh.wav", []byte("x"))); w.Code != http.StatusOK {
			t.Fatalf("upload status = %d", w.Code)
		}
	}

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/transcriptions?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list api.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Transcriptions) != 1 {
		t.Fatalf("entries = %d, want 1", len(list.Transcriptions))
	}
	entry := list.Transcriptions[0]
	if entry.Source != history.SourceUpload || entry.EngineCalls != 2 || entry.RenderingLanguage != "zh" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/transcriptions/"+entry.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	if w := ts.do(httptest.NewRequest(http.MethodGet, "/api/transcriptions/missing", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
	if w := ts.do(httptest.NewRequest(http.MethodGet, "/api/transcriptions?limit=zero", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", w.Code)
	}
}

func TestTranscriptionsWithoutHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	ts := newTestServerWithConfig(t, cfg, scriptedEngine{text: "hello there friend", lang: "en"}, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/transcriptions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"transcriptions":[]`) {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}
}
