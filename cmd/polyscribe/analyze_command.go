package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"polyscribe/internal/script"
	"polyscribe/internal/transcribe"
)

type scriptReport struct {
	Text         string             `json:"text" yaml:"text"`
	Length       int                `json:"length" yaml:"length"`
	Primary      script.Script      `json:"primary" yaml:"primary"`
	Language     string             `json:"language" yaml:"language"`
	Confidence   float64            `json:"confidence" yaml:"confidence"`
	Mixed        bool               `json:"mixed" yaml:"mixed"`
	Languages    []string           `json:"languages" yaml:"languages"`
	Ratios       map[string]float64 `json:"ratios" yaml:"ratios"`
	ShortCircuit bool               `json:"shortCircuit" yaml:"shortCircuit"`
}

func newAnalyzeCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:         "analyze [text]",
		Short:       "Show the script profile the language selector sees for a piece of text",
		Long:        "Show the script profile for text given as arguments, or read from stdin when no arguments are given.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}

			report := buildScriptReport(text)
			if handled, err := writeStructured(cmd, resolved, report); handled {
				return err
			}
			rows := [][]string{
				{"Primary", report.Primary.String()},
				{"Language", report.Language},
				{"Confidence", formatRatio(report.Confidence)},
				{"Mixed", yesNo(report.Mixed)},
				{"Latin ratio", formatRatio(report.Ratios[script.Latin.String()])},
				{"Han ratio", formatRatio(report.Ratios[script.Han.String()])},
				{"Short-circuits", yesNo(report.ShortCircuit)},
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, yaml, or table")
	return cmd
}

func buildScriptReport(text string) scriptReport {
	profile := script.Classify(text)
	ratios := make(map[string]float64, len(profile.Ratios))
	for s, ratio := range profile.Ratios {
		ratios[s.String()] = ratio
	}
	return scriptReport{
		Text:         text,
		Length:       utf8.RuneCountInString(text),
		Primary:      profile.Primary,
		Language:     profile.Primary.Language(),
		Confidence:   profile.Confidence,
		Mixed:        profile.Mixed(),
		Languages:    profile.Languages(),
		Ratios:       ratios,
		ShortCircuit: transcribe.ShortCircuits(transcribe.NewCandidate(transcribe.PassNeutral, transcribe.Result{Text: text}, true)),
	}
}
