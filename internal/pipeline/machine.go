// Package pipeline owns the Topic state machine: the legal states, the
// allowed transitions and their preconditions, and the stage handlers that
// move a topic through generation and approval.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"pressroom/internal/core"
	"pressroom/internal/logger"
)

// Machine validates and executes pipeline transitions against the store.
// A Topic is always in exactly one state; transitions are taken only when
// their preconditions hold.
type Machine struct {
	store     TopicStore
	generator Generator
	languages []string // target languages; one article artifact per language is required to approve
}

// NewMachine wires the state machine with its collaborators.
func NewMachine(store TopicStore, generator Generator, languages []string) *Machine {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &Machine{store: store, generator: generator, languages: languages}
}

// Languages returns the configured target languages.
func (m *Machine) Languages() []string {
	return m.languages
}

// Transition moves the topic along a table edge after checking the edge's
// precondition. The store update is guarded by the topic's current status,
// so a concurrent actor losing the race gets ErrStatusConflict.
func (m *Machine) Transition(ctx context.Context, topic *core.Topic, to core.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(topic.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, topic.Status, to)
	}
	if err := m.checkPrecondition(ctx, topic, to); err != nil {
		return err
	}
	if err := m.store.TransitionStatus(ctx, topic.ID, topic.Status, to); err != nil {
		return err
	}
	topic.Status = to
	return nil
}

// checkPrecondition enforces per-target-state requirements beyond the edge
// itself.
func (m *Machine) checkPrecondition(ctx context.Context, topic *core.Topic, to core.Status) error {
	switch to {
	case core.StatusArticleApproved:
		return m.requireArticleArtifacts(ctx, topic)
	case core.StatusPublishing:
		if _, ok := topic.ScheduledPublishDate(); !ok {
			// Direct (operator-triggered) publishes carry no directive;
			// that is fine. Only a malformed value is rejected.
			if _, present := topic.Metadata[core.MetaScheduledPublishDate]; present {
				return fmt.Errorf("%w: malformed %s", ErrPrecondition, core.MetaScheduledPublishDate)
			}
		}
	}
	return nil
}

// requireArticleArtifacts verifies one non-empty article artifact exists
// per configured language.
func (m *Machine) requireArticleArtifacts(ctx context.Context, topic *core.Topic) error {
	artifacts, err := m.store.ArtifactsByTopic(ctx, topic.ID)
	if err != nil {
		return fmt.Errorf("load artifacts for topic %s: %w", topic.ID, err)
	}

	byLanguage := make(map[string]bool)
	for _, a := range artifacts {
		if a.Channel == core.ChannelArticle && a.Body != "" {
			byLanguage[a.Language] = true
		}
	}
	for _, lang := range m.languages {
		if !byLanguage[lang] {
			return fmt.Errorf("%w: no %s article artifact for topic %s", ErrPrecondition, lang, topic.ID)
		}
	}
	return nil
}

// BeginPublishing enters the transient publishing state, snapshotting the
// current stable state into metadata so a failed publish can revert.
func (m *Machine) BeginPublishing(ctx context.Context, topic *core.Topic) error {
	snapshot := map[string]any{core.MetaPreviousStatus: string(topic.Status)}
	if err := m.store.MergeTopicMetadata(ctx, topic.ID, snapshot); err != nil {
		return fmt.Errorf("snapshot status for topic %s: %w", topic.ID, err)
	}
	if topic.Metadata == nil {
		topic.Metadata = map[string]any{}
	}
	topic.Metadata[core.MetaPreviousStatus] = string(topic.Status)
	return m.Transition(ctx, topic, core.StatusPublishing)
}

// RevertPublishing returns a topic stuck in publishing to its pre-stage
// stable state and records the failure. This keeps the publish stage
// safely retryable on the next scheduled run.
func (m *Machine) RevertPublishing(ctx context.Context, topic *core.Topic, cause error) error {
	prev := core.StatusArticleApproved
	if s, ok := topic.Metadata[core.MetaPreviousStatus].(string); ok && core.Status(s).Valid() {
		prev = core.Status(s)
	}

	if err := m.recordError(ctx, topic, cause); err != nil {
		logger.Warn("Failed to record publish error", "topic_id", topic.ID, "error", err.Error())
	}
	if err := m.store.TransitionStatus(ctx, topic.ID, core.StatusPublishing, prev); err != nil {
		return fmt.Errorf("revert topic %s to %s: %w", topic.ID, prev, err)
	}
	topic.Status = prev
	return nil
}

// FailToReview routes a topic to needs_review after an unrecoverable
// error, snapshotting the state it failed from so a human can reset it.
func (m *Machine) FailToReview(ctx context.Context, topic *core.Topic, cause error) error {
	if err := m.store.MergeTopicMetadata(ctx, topic.ID, map[string]any{
		core.MetaPreviousStatus: string(topic.Status),
	}); err != nil {
		logger.Warn("Failed to snapshot status before review", "topic_id", topic.ID, "error", err.Error())
	}
	if err := m.recordError(ctx, topic, cause); err != nil {
		logger.Warn("Failed to record review error", "topic_id", topic.ID, "error", err.Error())
	}
	if err := m.store.TransitionStatus(ctx, topic.ID, topic.Status, core.StatusNeedsReview); err != nil {
		return fmt.Errorf("move topic %s to review: %w", topic.ID, err)
	}
	topic.Status = core.StatusNeedsReview
	return nil
}

// ResetReview is the explicit resume operation: a human returns a reviewed
// topic to the stable state it failed from.
func (m *Machine) ResetReview(ctx context.Context, topic *core.Topic) error {
	if topic.Status != core.StatusNeedsReview {
		return fmt.Errorf("%w: %s -> reset", ErrInvalidTransition, topic.Status)
	}
	target := core.StatusArticleApproved
	if s, ok := topic.Metadata[core.MetaPreviousStatus].(string); ok && core.Status(s).Valid() {
		target = core.Status(s)
	}
	if target == core.StatusPublishing || target == core.StatusNeedsReview {
		target = core.StatusArticleApproved
	}
	if err := m.Transition(ctx, topic, target); err != nil {
		return err
	}

	// A human reset restarts the retry cycle: the recorded failure must not
	// escalate the next transient error straight back to review.
	if err := m.store.MergeTopicMetadata(ctx, topic.ID, map[string]any{
		core.MetaLastError:   "",
		core.MetaLastErrorAt: "",
	}); err != nil {
		logger.Warn("Failed to clear review error", "topic_id", topic.ID, "error", err.Error())
	}
	if topic.Metadata == nil {
		topic.Metadata = map[string]any{}
	}
	topic.Metadata[core.MetaLastError] = ""
	topic.Metadata[core.MetaLastErrorAt] = ""
	return nil
}

func (m *Machine) recordError(ctx context.Context, topic *core.Topic, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return m.store.MergeTopicMetadata(ctx, topic.ID, map[string]any{
		core.MetaLastError:   msg,
		core.MetaLastErrorAt: time.Now().UTC().Format(time.RFC3339),
	})
}
