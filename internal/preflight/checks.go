package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"polyscribe/internal/config"
	"polyscribe/internal/notifications"
	"polyscribe/internal/services"
	"polyscribe/internal/services/whisper"
)

// CheckEngine verifies that the engine is reachable and the key is valid.
// It uses a 15-second timeout and a single attempt.
func CheckEngine(ctx context.Context, cfg config.Engine) Result {
	const name = "Speech engine"

	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set engine.api_key or OPENAI_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := whisper.NewClient(whisper.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, whisper.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEngineError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.BaseURL)}
}

// CheckNotifications sends a test message to the configured ntfy topic.
func CheckNotifications(ctx context.Context, cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return Result{Name: name, Passed: true, Detail: "disabled (notifications.ntfy_topic unset)"}
	}
	if err := notifications.NewService(cfg).Publish(ctx, notifications.EventTest, nil); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("test message sent to %s", cfg.Notifications.NtfyTopic)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeEngineError(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "auth failed (invalid api key)"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return fmt.Sprintf("unreachable (%v)", err)
	}
}
