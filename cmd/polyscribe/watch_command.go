package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"polyscribe/internal/api"
	"polyscribe/internal/history"
	"polyscribe/internal/language"
	"polyscribe/internal/logging"
	"polyscribe/internal/notifications"
	"polyscribe/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var pollInterval time.Duration
	var pollOnly bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Transcribe audio files dropped into the watch directory",
		Long: "Transcribe audio files dropped into the watch directory. Each finished file is moved to processed/ " +
			"next to a JSON transcript, or to failed/ when it could not be read or transcribed. Files interrupted by shutdown stay put.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(dir) == "" {
				dir = cfg.Paths.WatchDir
			}

			store, err := ctx.openHistory(false)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			runner, err := ctx.newRunner(store, false)
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			publish := func(event notifications.Event, payload notifications.Payload) {
				if err := notifier.Publish(signalCtx, event, payload); err != nil {
					logging.WarnWithContext(logger, "notification failed", "notification_failed",
						logging.String("event", string(event)),
						logging.Error(err),
						logging.String(logging.FieldImpact, "watch continues without this notification"),
					)
				}
			}

			var watcher *watch.Watcher
			handler := func(runCtx context.Context, path string) error {
				name := filepath.Base(path)
				result, err := runner.RunFile(runCtx, path, history.SourceWatch)
				if err != nil {
					if runCtx.Err() == nil {
						publish(notifications.EventTranscriptionFailed, notifications.Payload{
							"fileName": name,
							"fault":    result.Trace.Fault.String(),
							"error":    err.Error(),
						})
					}
					return err
				}
				resp := api.FromOutcome(result.Outcome, api.FileInfo{Size: result.FileSize})
				if err := writeTranscript(filepath.Join(watcher.ProcessedDir(), name+".json"), resp); err != nil {
					publish(notifications.EventTranscriptionFailed, notifications.Payload{"fileName": name, "error": err.Error()})
					return err
				}
				publish(notifications.EventTranscriptionCompleted, notifications.Payload{
					"fileName": name,
					"language": language.DisplayName(result.Outcome.RenderingLanguage),
					"strategy": result.Outcome.Strategy.String(),
					"fault":    result.Trace.Fault.String(),
					"preview":  truncateText(result.Outcome.Text, 80),
				})
				return nil
			}

			watcher, err = watch.New(watch.Options{
				Dir:          dir,
				PollInterval: pollInterval,
				PollOnly:     pollOnly,
			}, handler, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", dir)
			publish(notifications.EventWatchStarted, notifications.Payload{"dir": dir})
			if err := watcher.Run(signalCtx); err != nil {
				logger.Error("watch stopped", logging.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to watch (defaults to paths.watch_dir)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "Directory scan interval")
	cmd.Flags().BoolVar(&pollOnly, "poll", false, "Disable filesystem notifications and rely on scanning")
	return cmd
}

func writeTranscript(path string, resp api.TranscriptionResponse) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		_ = file.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	return file.Close()
}
