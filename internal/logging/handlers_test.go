package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"polyscribe/internal/services"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return record
}

func TestNewTeeHandlerCollapsesNil(t *testing.T) {
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Error("expected NoopHandler when both sides are nil")
	}
	if newTeeHandler(inner, nil) != inner || newTeeHandler(nil, inner) != inner {
		t.Error("expected single handler returned unwrapped")
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	file := slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newTeeHandler(console, file)).With(FieldComponent, "pipeline")
	logger.Debug("pass detail")
	logger.Info("strategy selected")

	if strings.Contains(consoleBuf.String(), "pass detail") {
		t.Error("console should not receive debug record")
	}
	if !strings.Contains(fileBuf.String(), "pass detail") || !strings.Contains(fileBuf.String(), "strategy selected") {
		t.Errorf("file missing records: %q", fileBuf.String())
	}
	if !strings.Contains(consoleBuf.String(), `"component":"pipeline"`) {
		t.Errorf("expected WithAttrs on both sides, got %q", consoleBuf.String())
	}
}

func TestContextHandlerInjectsRequestFields(t *testing.T) {
	ctx := services.WithPass(services.WithRequestID(context.Background(), "req-7"), "hinted")

	tests := []struct {
		name    string
		logger  func(slog.Handler) *slog.Logger
		wantRID string
	}{
		{name: "from context", logger: slog.New, wantRID: "req-7"},
		{
			name:    "bound value wins",
			logger:  func(h slog.Handler) *slog.Logger { return slog.New(h).With(RequestID("req-bound")) },
			wantRID: "req-bound",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := tt.logger(newContextHandler(slog.NewJSONHandler(&buf, nil)))
			logger.InfoContext(ctx, "pass finished")

			if n := strings.Count(buf.String(), `"`+FieldRequestID+`"`); n != 1 {
				t.Fatalf("request_id appears %d times in %q", n, buf.String())
			}
			record := decodeLine(t, &buf)
			if record[FieldRequestID] != tt.wantRID || record[FieldPass] != "hinted" {
				t.Fatalf("unexpected record: %v", record)
			}
		})
	}
}

func TestContextHandlerWithoutContextFields(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newContextHandler(slog.NewJSONHandler(&buf, nil))).Info("startup")
	record := decodeLine(t, &buf)
	if _, ok := record[FieldRequestID]; ok {
		t.Fatalf("unexpected request_id: %v", record)
	}
}

func TestJSONHandlerFormatsTimingAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	h, err := newJSONHandler(&buf, lvl, false)
	if err != nil {
		t.Fatalf("newJSONHandler: %v", err)
	}
	slog.New(h).Warn("pipeline fallback", Duration("pipeline_duration", 1500*time.Millisecond), Fault(stringer("pipeline_timeout")))

	record := decodeLine(t, &buf)
	if record["level"] != "warn" {
		t.Fatalf("level = %v", record["level"])
	}
	if record["pipeline_duration"] != "1.5s" {
		t.Fatalf("pipeline_duration = %v", record["pipeline_duration"])
	}
	if record[FieldFault] != "pipeline_timeout" {
		t.Fatalf("fault = %v", record[FieldFault])
	}
	ts, _ := record["ts"].(string)
	if _, err := time.Parse(jsonTimestampLayout, ts); err != nil {
		t.Fatalf("ts %q: %v", ts, err)
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value slog.Value
		want  string
	}{
		{slog.StringValue("zh"), "zh"},
		{slog.StringValue(""), `""`},
		{slog.StringValue("你好 world"), `"你好 world"`},
		{slog.StringValue("a=b"), `"a=b"`},
		{slog.Float64Value(0.75), "0.75"},
		{slog.DurationValue(250 * time.Millisecond), "250ms"},
		{slog.AnyValue(stringer("secondary_preferred")), "secondary_preferred"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.value); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
