package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateEngine() error {
	parsed, err := url.Parse(c.Engine.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("engine.base_url must be an absolute URL, got %q", c.Engine.BaseURL)
	}
	if err := ensurePositiveMap(map[string]int{
		"engine.timeout_seconds": c.Engine.TimeoutSeconds,
		"engine.retry_attempts":  c.Engine.RetryAttempts,
	}); err != nil {
		return err
	}
	return nil
}

// RequireEngineKey reports a configuration error when no engine API key is set.
// Only commands that call the engine need it, so Validate does not enforce it.
func (c *Config) RequireEngineKey() error {
	if strings.TrimSpace(c.Engine.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/polyscribe/config.toml"
	}
	return fmt.Errorf("engine.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'polyscribe config init')", defaultPath)
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DeadlineSeconds <= 0 {
		return errors.New("pipeline.deadline_seconds must be positive")
	}
	if c.Pipeline.DeadlineSeconds < c.Engine.TimeoutSeconds {
		return errors.New("pipeline.deadline_seconds must not be shorter than engine.timeout_seconds")
	}
	if len(c.Pipeline.DefaultLanguage) != 2 {
		return fmt.Errorf("pipeline.default_language must be an ISO 639-1 code, got %q", c.Pipeline.DefaultLanguage)
	}
	if len(c.Pipeline.SecondaryHint) != 2 {
		return fmt.Errorf("pipeline.secondary_hint must be an ISO 639-1 code, got %q", c.Pipeline.SecondaryHint)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full topic URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
