package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"polyscribe/internal/api"
	"polyscribe/internal/history"
	"polyscribe/internal/language"
	"polyscribe/internal/transcribe"
	"polyscribe/internal/workflow"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var format string
	var noHistory bool
	var speculative bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>...",
		Short: "Transcribe local audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := ctx.openHistory(noHistory)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			runner, err := ctx.newRunner(store, speculative)
			if err != nil {
				return err
			}

			results := make([]workflow.Result, 0, len(args))
			for _, path := range args {
				audio, err := transcribe.OpenAudioFile(path)
				if err != nil {
					return err
				}
				results = append(results, runner.Run(signalCtx, audio, history.SourceCLI))
				if err := signalCtx.Err(); err != nil {
					return err
				}
			}

			responses := make([]api.TranscriptionResponse, 0, len(results))
			for _, r := range results {
				responses = append(responses, api.FromOutcome(r.Outcome, api.FileInfo{Size: r.FileSize, ContentType: r.ContentType}))
			}
			var payload any = responses
			if len(responses) == 1 {
				payload = responses[0]
			}
			if handled, err := writeStructured(cmd, resolved, payload); handled {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, yaml, or table (default table on a terminal, json otherwise)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record these transcriptions in the history log")
	cmd.Flags().BoolVar(&speculative, "speculative", false, "Start the hinted pass alongside the neutral pass")
	return cmd
}

func renderResults(results []workflow.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		o := r.Outcome
		rows := [][]string{
			{"File", r.FileName},
			{"Strategy", o.Strategy.String()},
			{"Primary language", language.DisplayName(o.PrimaryLanguage)},
			{"Rendering language", language.DisplayName(o.RenderingLanguage)},
			{"Detected", strings.Join(o.DetectedLanguages, ", ")},
			{"Confidence", formatRatio(o.Confidence[o.Strategy.String()])},
			{"Mixed", yesNo(o.MixedLanguage)},
			{"Engine calls", fmt.Sprintf("%d", r.Trace.EngineCalls)},
			{"Fault", r.Trace.Fault.String()},
			{"Text", truncateText(o.Text, 200)},
		}
		blocks = append(blocks, renderTable([]string{"Field", "Value"}, rows, nil))
	}
	return strings.Join(blocks, "\n")
}
