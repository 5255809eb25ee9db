package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pressroom/internal/config"
)

// NewPublishCmd creates the publish command: one scheduled batch pass
// from the command line instead of the HTTP trigger.
func NewPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Run one scheduled publishing batch",
		Long: `Run a single scheduled orchestrator pass.

Picks up every approved topic whose scheduled publish date has arrived,
publishes it through the quality gate, then generates and posts
cross-channel content where the topic opts in. Equivalent to one
POST /api/pipeline/run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context())
		},
	}
}

func runPublish(ctx context.Context) error {
	cfg := config.Get()

	orch, st, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := orch.RunScheduled(ctx)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	fmt.Printf("Batch complete in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("  Published:   %d\n", report.Published)
	fmt.Printf("  Cross-posts: %d\n", report.CrosspostCount)
	if len(report.Errors) > 0 {
		fmt.Printf("  Errors:      %d\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("    - %s: %s\n", e.TopicID, e.Error)
		}
	}
	return nil
}
