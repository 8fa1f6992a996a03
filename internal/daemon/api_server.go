package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"polyscribe/internal/api"
	"polyscribe/internal/config"
	"polyscribe/internal/history"
	"polyscribe/internal/logging"
	"polyscribe/internal/services"
	"polyscribe/internal/transcribe"
)

const (
	uploadField        = "file"
	requestIDHeader    = "X-Request-ID"
	defaultHistoryPage = 50
	// Room for multipart headers and boundaries around the audio part.
	multipartOverhead = 1 << 20
)

type apiServer struct {
	bind      string
	token     string
	maxUpload int64
	stageDir  string
	logger    *slog.Logger
	daemon    *Daemon
	handler   http.Handler

	address  atomic.Value
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Server.Bind),
		token:     cfg.Server.APIToken,
		maxUpload: cfg.MaxUploadBytes(),
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("POST /api/whisper", authMiddleware(srv.token, srv.handleWhisper))
	mux.HandleFunc("GET /api/transcriptions", authMiddleware(srv.token, srv.handleTranscriptions))
	mux.HandleFunc("GET /api/transcriptions/{id}", authMiddleware(srv.token, srv.handleTranscription))
	srv.handler = srv.withRequestID(mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.PipelineDeadline() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.address.Store(listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if v, ok := s.address.Load().(string); ok {
		return v
	}
	return ""
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	payload := api.HealthResponse{
		Status:    "ok",
		SessionID: status.SessionID,
		Pipeline:  "enhanced",
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
		payload.Uptime = time.Since(status.StartedAt).Truncate(time.Second).String()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleWhisper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithContext(ctx, s.logger)

	audio, err := s.stageUpload(w, r)
	if err != nil {
		status := services.StatusCode(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logger, "upload staging failed", "upload_failed", logging.Error(err))
			s.writeError(w, status, "Transcription failed", err.Error())
			return
		}
		s.logger.InfoContext(ctx, "upload rejected", logging.Int("status", status), logging.Error(err))
		s.writeError(w, status, uploadMessage(status), err.Error())
		return
	}

	logger.Info("upload received",
		logging.String("file", audio.Name()),
		logging.String("content_type", audio.ContentType()),
		logging.Int("bytes", int(audio.Size())),
	)

	result := s.daemon.runner.Run(ctx, audio, history.SourceUpload)
	resp := api.FromOutcome(result.Outcome, api.FileInfo{Size: result.FileSize, ContentType: result.ContentType})
	s.writeJSON(w, http.StatusOK, resp)
}

// stageUpload streams the "file" part to a temporary file.
func (s *apiServer) stageUpload(w http.ResponseWriter, r *http.Request) (*transcribe.Audio, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse", "multipart form required", err)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse", "multipart form required", err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, "upload", "parse", "missing audio file", nil)
		}
		if err != nil {
			if tooLarge(err) {
				return nil, services.Wrap(services.ErrTooLarge, "upload", "parse", "request body too large", err)
			}
			return nil, services.Wrap(services.ErrValidation, "upload", "parse", "malformed multipart body", err)
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		if strings.TrimSpace(part.FileName()) == "" {
			_ = part.Close()
			return nil, services.Wrap(services.ErrValidation, "upload", "parse", "no file selected", nil)
		}
		audio, err := transcribe.StageAudio(s.stageDir, part.FileName(), part.Header.Get("Content-Type"), part, s.maxUpload)
		_ = part.Close()
		if err != nil && tooLarge(err) {
			return nil, services.Wrap(services.ErrTooLarge, "upload", "stage", "request body too large", err)
		}
		return audio, err
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func uploadMessage(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "Audio file too large"
	case http.StatusBadRequest:
		return "Missing audio file"
	default:
		return http.StatusText(status)
	}
}

func (s *apiServer) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	store := s.daemon.store
	if store == nil {
		s.writeJSON(w, http.StatusOK, api.HistoryResponse{Transcriptions: []api.TranscriptionEntry{}})
		return
	}
	limit := defaultHistoryPage
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit", value)
			return
		}
		limit = parsed
	}
	records, err := store.List(r.Context(), limit)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "history list failed", "history_read_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "history unavailable", "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Transcriptions: api.FromRecords(records)})
}

func (s *apiServer) handleTranscription(w http.ResponseWriter, r *http.Request) {
	store := s.daemon.store
	if store == nil {
		s.writeError(w, http.StatusNotFound, "transcription not found", "")
		return
	}
	rec, err := store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := services.StatusCode(err)
		if status == http.StatusNotFound {
			s.writeError(w, status, "transcription not found", "")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "history unavailable", "")
		return
	}
	resp := api.FromOutcome(rec.Outcome, api.FileInfo{Size: rec.FileSize})
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, details string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Details: details})
}
