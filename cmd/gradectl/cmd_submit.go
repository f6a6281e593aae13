package main

import (
	"fmt"
	"io"
	"time"

	"github.com/okian/gradelens/internal/samplegen"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	submitURL      string
	submitStudent  string
	submitSubjects string
	submitTimeout  time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Upload a table to the service and print its report",
	Long: `Uploads a CSV score table to a running gradelens service, then fetches
and prints the markdown report for the stored table.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitURL, "url", "http://localhost:9080", "service base URL")
	submitCmd.Flags().StringVar(&submitStudent, "student", "", "student name to profile")
	submitCmd.Flags().StringVar(&submitSubjects, "subjects", "", "comma separated subject columns")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 30*time.Second, "request timeout")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	client := samplegen.NewClient(submitURL, samplegen.WithTimeout(submitTimeout))
	info, err := client.Upload(ctx, data)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	logger.Get().Info(ctx, "table uploaded",
		logger.String("tableID", info.ID),
		logger.Int("rows", info.Rows),
	)

	md, err := client.Report(ctx, info.ID, submitStudent, splitList(submitSubjects))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), md)
	return err
}
