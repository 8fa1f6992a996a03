package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"polyscribe/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(false)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("history is disabled (set history.enabled = true)")
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			entries := api.FromRecords(records)
			if handled, err := writeStructured(cmd, resolved, entries); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "No transcriptions recorded")
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range records {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					e.Source,
					truncateText(e.FileName, 32),
					e.Strategy.String(),
					e.RenderingLanguage,
					strconv.Itoa(e.EngineCalls),
					e.Fault.String(),
					truncateText(e.Outcome.Text, 48),
				})
			}
			_, err = fmt.Fprintln(out, renderTable(
				[]string{"When", "Source", "File", "Strategy", "Lang", "Calls", "Fault", "Text"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, yaml, or table")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows (0 for all)")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove transcriptions older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := ctx.openHistory(false)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("history is disabled (set history.enabled = true)")
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transcription(s)\n", removed)
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove rows created before now minus this duration")
	return cmd
}
