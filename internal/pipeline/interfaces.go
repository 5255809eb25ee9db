package pipeline

import (
	"context"
	"time"

	"pressroom/internal/core"
)

// TopicStore is the persistence contract the pipeline depends on. Update
// operations are atomic at the single-record level; TransitionStatus is
// guarded by the expected current status and returns ErrStatusConflict
// when another actor moved the topic first.
type TopicStore interface {
	Topic(ctx context.Context, id string) (*core.Topic, error)
	TopicsByStatus(ctx context.Context, status core.Status) ([]core.Topic, error)
	TransitionStatus(ctx context.Context, id string, from, to core.Status) error
	MergeTopicMetadata(ctx context.Context, id string, patch map[string]any) error
	ArtifactsByTopic(ctx context.Context, topicID string) ([]core.ContentArtifact, error)
	SaveArtifact(ctx context.Context, artifact *core.ContentArtifact) error
	MarkArtifactPublished(ctx context.Context, artifactID, slug, canonicalURL string, publishedAt time.Time) error
}

// Generator is the opaque text-generation capability. Failures must
// surface as stage errors, never be swallowed.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
