package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"polyscribe/internal/config"
	"polyscribe/internal/services"
	"polyscribe/internal/transcribe"
)

// Fixed-width UTC timestamps so that text comparison matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Sources of a transcription.
const (
	SourceUpload = "upload"
	SourceCLI    = "cli"
	SourceWatch  = "watch"
)

// Record is one logged transcription.
type Record struct {
	ID                string
	CreatedAt         time.Time
	Source            string
	FileName          string
	FileSize          int64
	Strategy          transcribe.Strategy
	PrimaryLanguage   string
	RenderingLanguage string
	Languages         []string
	EngineCalls       int
	EngineRequests    int
	Fault             transcribe.FaultKind
	Elapsed           time.Duration
	Outcome           transcribe.Outcome
}

// NewRecord captures a finished pipeline run.
func NewRecord(source, fileName string, fileSize int64, outcome transcribe.Outcome, trace transcribe.Trace) Record {
	return Record{
		Source:            source,
		FileName:          fileName,
		FileSize:          fileSize,
		Strategy:          outcome.Strategy,
		PrimaryLanguage:   outcome.PrimaryLanguage,
		RenderingLanguage: outcome.RenderingLanguage,
		Languages:         append([]string(nil), outcome.DetectedLanguages...),
		EngineCalls:       trace.EngineCalls,
		EngineRequests:    trace.EngineRequests,
		Fault:             trace.Fault,
		Elapsed:           trace.Elapsed,
		Outcome:           outcome,
	}
}

// Store manages transcription history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and prunes rows older
// than the configured retention.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	store, err := OpenPath(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}
	if days := cfg.History.RetentionDays; days > 0 {
		cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		if _, err := store.Prune(context.Background(), cutoff); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts rec, assigning an identifier and timestamp when missing.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Source == "" {
		rec.Source = SourceCLI
	}

	outcomeJSON, err := json.Marshal(rec.Outcome)
	if err != nil {
		return Record{}, fmt.Errorf("marshal outcome: %w", err)
	}
	segments := rec.Outcome.Segments
	if segments == nil {
		segments = []transcribe.Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return Record{}, fmt.Errorf("marshal segments: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO transcriptions (
            id, created_at, source, file_name, file_size, strategy,
            primary_language, rendering_language, languages, engine_calls,
            engine_requests, fault, elapsed_ms, duration_seconds, segments_json,
            outcome_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(timestampLayout),
		rec.Source,
		rec.FileName,
		rec.FileSize,
		rec.Strategy.String(),
		rec.PrimaryLanguage,
		rec.RenderingLanguage,
		strings.Join(rec.Languages, ","),
		rec.EngineCalls,
		rec.EngineRequests,
		rec.Fault.String(),
		rec.Elapsed.Milliseconds(),
		rec.Outcome.DurationSeconds,
		string(segmentsJSON),
		string(outcomeJSON),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert transcription: %w", err)
	}
	return rec, nil
}

const selectColumns = `id, created_at, source, file_name, file_size, strategy,
    primary_language, rendering_language, languages, engine_calls,
    engine_requests, fault, elapsed_ms, duration_seconds, segments_json,
    outcome_json`

// List returns the most recent records first. A limit <= 0 returns all rows.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT " + selectColumns + " FROM transcriptions ORDER BY created_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcriptions: %w", err)
	}
	return records, nil
}

// Get returns the record with the given identifier.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM transcriptions WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("no transcription %q", id), nil)
	}
	return rec, err
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM transcriptions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcriptions: %w", err)
	}
	return n, nil
}

// Prune removes records created before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transcriptions WHERE created_at < ?",
		cutoff.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune transcriptions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec          Record
		createdAt    string
		strategy     string
		languages    string
		fault        string
		elapsedMS    int64
		duration     float64
		segmentsJSON string
		outcomeJSON  string
	)
	err := row.Scan(
		&rec.ID,
		&createdAt,
		&rec.Source,
		&rec.FileName,
		&rec.FileSize,
		&strategy,
		&rec.PrimaryLanguage,
		&rec.RenderingLanguage,
		&languages,
		&rec.EngineCalls,
		&rec.EngineRequests,
		&fault,
		&elapsedMS,
		&duration,
		&segmentsJSON,
		&outcomeJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan transcription: %w", err)
	}

	if rec.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if err := rec.Strategy.UnmarshalText([]byte(strategy)); err != nil {
		return Record{}, fmt.Errorf("parse strategy: %w", err)
	}
	if err := rec.Fault.UnmarshalText([]byte(fault)); err != nil {
		return Record{}, fmt.Errorf("parse fault: %w", err)
	}
	rec.Languages = splitLanguages(languages)
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if err := json.Unmarshal([]byte(outcomeJSON), &rec.Outcome); err != nil {
		return Record{}, fmt.Errorf("decode outcome: %w", err)
	}
	// Duration and segments are not part of the outcome wire form.
	rec.Outcome.DurationSeconds = duration
	rec.Outcome.Segments = []transcribe.Segment{}
	if err := json.Unmarshal([]byte(segmentsJSON), &rec.Outcome.Segments); err != nil {
		return Record{}, fmt.Errorf("decode segments: %w", err)
	}
	return rec, nil
}

func splitLanguages(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}
