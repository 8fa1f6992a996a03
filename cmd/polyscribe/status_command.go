package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polyscribe/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var format string
	var skipEngine bool
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check engine connectivity and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var results []preflight.Result
			if skipEngine {
				results = preflight.DirectoryChecks(cfg)
			} else {
				checkCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				results = preflight.RunAll(checkCtx, cfg)
			}
			if testNotify {
				results = append(results, preflight.CheckNotifications(cmd.Context(), cfg))
			}

			if handled, err := writeStructured(cmd, resolved, statusPayload(results)); handled {
				return err
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, yaml, or table")
	cmd.Flags().BoolVar(&skipEngine, "offline", false, "Skip the engine connectivity check")
	cmd.Flags().BoolVar(&testNotify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

type statusCheck struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail" yaml:"detail"`
}

func statusPayload(results []preflight.Result) []statusCheck {
	out := make([]statusCheck, 0, len(results))
	for _, r := range results {
		out = append(out, statusCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}
