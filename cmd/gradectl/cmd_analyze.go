package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/report"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

var (
	analyzeSubjects string
	analyzeStudent  string
	analyzeFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a CSV score table",
	Long: `Reads a CSV score table and prints the report for one student, or the
class overview when --student is empty or does not match any name.
Use "-" to read the table from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSubjects, "subjects", "", "comma separated subject columns (default: every numeric subject)")
	analyzeCmd.Flags().StringVar(&analyzeStudent, "student", "", "student name to profile")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", formatMarkdown, "output format: markdown or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	if analyzeFormat != formatMarkdown && analyzeFormat != formatJSON {
		return fmt.Errorf("unknown format %q", analyzeFormat)
	}
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	svc := service.New(service.WithLogger(logger.Named("analyze")), service.WithMaxRows(0))
	t, err := svc.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return err
	}
	a, err := svc.AnalyzeTable(ctx, t, service.Query{
		Subjects: splitList(analyzeSubjects),
		Student:  analyzeStudent,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFormat == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	_, err = io.WriteString(out, report.Markdown(a.Result, a.Insights, a.Recommendations))
	return err
}
