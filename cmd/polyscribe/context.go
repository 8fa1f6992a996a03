package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"polyscribe/internal/config"
	"polyscribe/internal/history"
	"polyscribe/internal/logging"
	"polyscribe/internal/services/whisper"
	"polyscribe/internal/transcribe"
	"polyscribe/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openHistory returns nil when history is disabled or skipped.
func (c *commandContext) openHistory(skip bool) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if skip || !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func (c *commandContext) newEngine() (*whisper.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireEngineKey(); err != nil {
		return nil, err
	}
	return whisper.NewClient(whisper.Config{
		APIKey:         cfg.Engine.APIKey,
		BaseURL:        cfg.Engine.BaseURL,
		Model:          cfg.Engine.Model,
		TimeoutSeconds: cfg.Engine.TimeoutSeconds,
	}, whisper.WithRetryMaxAttempts(cfg.Engine.RetryAttempts)), nil
}

// newRunner builds the pipeline and runner. store may be nil.
func (c *commandContext) newRunner(store *history.Store, speculative bool) (*workflow.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	engine, err := c.newEngine()
	if err != nil {
		return nil, err
	}
	pipelineCfg := transcribe.ConfigFromSettings(cfg)
	if speculative {
		pipelineCfg.Speculative = true
	}
	pipeline, err := transcribe.New(pipelineCfg, engine, logger)
	if err != nil {
		return nil, err
	}
	var recorder workflow.Recorder
	if store != nil {
		recorder = store
	}
	return workflow.NewRunner(pipeline, recorder, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
