package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pressroom/internal/config"
	"pressroom/internal/core"
	"pressroom/internal/gate"
	"pressroom/internal/store"
)

// NewQualityCmd creates the quality command: print the gate verdict for
// a topic's article artifacts without publishing anything.
func NewQualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality <topic-id>",
		Short: "Print the quality verdict for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuality(cmd.Context(), args[0])
		},
	}
}

func runQuality(ctx context.Context, topicID string) error {
	cfg := config.Get()

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	topic, err := st.Topic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}

	artifacts, err := st.ArtifactsByTopic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}

	fmt.Printf("Topic:  %s\n", topic.Title)
	fmt.Printf("Status: %s\n", topic.Status)

	evaluated := 0
	for i := range artifacts {
		if artifacts[i].Channel != core.ChannelArticle {
			continue
		}
		evaluated++
		printVerdict(&artifacts[i], gate.Evaluate(&artifacts[i]))
	}
	if evaluated == 0 {
		fmt.Println("\nNo article artifacts yet; generate articles first.")
	}
	return nil
}

func printVerdict(artifact *core.ContentArtifact, verdict gate.Verdict) {
	fmt.Printf("\n[%s] %s\n", artifact.Language, artifact.Title)
	fmt.Println(strings.Repeat("-", 50))
	for _, check := range verdict.Checks {
		fmt.Printf("  %-4s %-18s %s\n", statusTag(check.Status), check.ID, check.Message)
	}
	if verdict.CanPublish {
		fmt.Printf("Publishable (%d passed, %d warnings)\n", verdict.PassCount, verdict.WarnCount)
	} else {
		fmt.Printf("Blocked (%d failed, %d warnings)\n", verdict.FailCount, verdict.WarnCount)
	}
}

func statusTag(s gate.RuleStatus) string {
	switch s {
	case gate.StatusPass:
		return "PASS"
	case gate.StatusWarn:
		return "WARN"
	default:
		return "FAIL"
	}
}
