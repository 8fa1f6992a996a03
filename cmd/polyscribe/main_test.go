package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"polyscribe/internal/api"
	"polyscribe/internal/config"
	"polyscribe/internal/testsupport"
	"polyscribe/internal/transcribe"
)

type cliTestEnv struct {
	cfg         *config.Config
	configPath  string
	baseDir     string
	engineCalls *atomic.Int32
}

func setupCLITestEnv(t *testing.T, engineText, engineLang string) *cliTestEnv {
	t.Helper()

	calls := new(atomic.Int32)
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			w.WriteHeader(http.StatusOK)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     engineText,
			"language": engineLang,
			"duration": 1.25,
			"segments": []map[string]any{{"id": 0, "start": 0, "end": 1.25, "text": engineText}},
		})
	}))
	t.Cleanup(engine.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")

	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engine.URL))
	cfg.Engine.RetryAttempts = 1
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "polyscribe.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, engineCalls: calls}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestTranscribeCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, "Thanks for calling, see you tomorrow.", "english")
	audio := testsupport.WriteAudio(t, env.baseDir, "call.wav")

	out, err := runCLI(t, "--config", env.configPath, "transcribe", "--format", "json", audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	var resp api.TranscriptionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if resp.Text != "Thanks for calling, see you tomorrow." || resp.LanguageRendered != "en" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Debug.Strategy != transcribe.StrategyAutoConfidentDefault {
		t.Fatalf("strategy = %v", resp.Debug.Strategy)
	}
	if resp.Duration != 1.25 || len(resp.Segments) != 1 {
		t.Fatalf("duration/segments = %v %v", resp.Duration, resp.Segments)
	}
	if got := env.engineCalls.Load(); got != 1 {
		t.Fatalf("engine calls = %d, want 1", got)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("local input must not be removed: %v", err)
	}
}

func TestTranscribeThenHistory(t *testing.T) {
	env := setupCLITestEnv(t, "我们下午三点开会讨论预算", "chinese")
	audio := testsupport.WriteAudio(t, env.baseDir, "meeting.m4a")

	if _, err := runCLI(t, "--config", env.configPath, "transcribe", "-f", "yaml", audio); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got := env.engineCalls.Load(); got != 2 {
		t.Fatalf("engine calls = %d, want 2", got)
	}

	out, err := runCLI(t, "--config", env.configPath, "history", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []api.TranscriptionEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].FileName != "meeting.m4a" || entries[0].RenderingLanguage != "zh" || entries[0].EngineCalls != 2 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestTranscribeYAMLFieldNames(t *testing.T) {
	env := setupCLITestEnv(t, "Quick status update for the team.", "en")
	audio := testsupport.WriteAudio(t, env.baseDir, "update.mp3")

	out, err := runCLI(t, "--config", env.configPath, "transcribe", "--no-history", "--format", "yaml", audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	for _, want := range []string{"language_rendered: en", "strategy: auto_confident_default", "francAnalysis:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	env := setupCLITestEnv(t, "unused", "en")
	if _, err := runCLI(t, "--config", env.configPath, "transcribe", filepath.Join(env.baseDir, "nope.wav")); err == nil {
		t.Fatal("expected error for missing input")
	}
	if got := env.engineCalls.Load(); got != 0 {
		t.Fatalf("engine calls = %d, want 0", got)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := runCLI(t, "analyze", "--format", "json", "hello", "world", "again")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var report scriptReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.Language != "en" || !report.ShortCircuit || report.Mixed {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Length != len("hello world again") {
		t.Fatalf("length = %d", report.Length)
	}
}

func TestAnalyzeReadsStdin(t *testing.T) {
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader("今天天气很好\n"))
	cmd.SetArgs([]string{"analyze", "-f", "json"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var report scriptReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Language != "zh" || report.ShortCircuit {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestConfigInitCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t, "unused", "en")
	out, err := runCLI(t, "--config", env.configPath, "status", "--offline", "--format", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var checks []statusCheck
	if err := json.Unmarshal([]byte(out), &checks); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(checks) != 3 {
		t.Fatalf("checks = %d, want 3", len(checks))
	}
	for _, c := range checks {
		if !c.Passed {
			t.Fatalf("check failed: %+v", c)
		}
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "", want: formatJSON},
		{value: "YAML", want: formatYAML},
		{value: "table", want: formatTable},
		{value: "xml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.value, &buf)
		if (err != nil) != tt.wantErr {
			t.Fatalf("resolveFormat(%q) err = %v", tt.value, err)
		}
		if got != tt.want {
			t.Fatalf("resolveFormat(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("你好世界朋友", 4); got != "你好世…" {
		t.Fatalf("truncateText = %q", got)
	}
	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("truncateText = %q", got)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t, "unused", "en")
	out, err := runCLI(t, "--config", env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || strings.Contains(out, "Warning") {
		t.Fatalf("unexpected output: %q", out)
	}

	broken := filepath.Join(env.baseDir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[pipeline]\ndefault_language = \"english\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "--config", broken, "config", "validate"); err == nil {
		t.Fatal("expected validation error")
	}
}
