package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"pressroom/internal/core"
)

// SaveArtifact inserts or replaces a content artifact.
func (s *Store) SaveArtifact(ctx context.Context, artifact *core.ContentArtifact) error {
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	if artifact.PublishStatus == "" {
		artifact.PublishStatus = core.PublishStatusDraft
	}

	keywords, err := json.Marshal(artifact.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	var publishedAt any
	if artifact.PublishedAt != nil {
		publishedAt = *artifact.PublishedAt
	}

	query, args, err := s.builder.
		Insert("artifacts").
		Options("OR REPLACE").
		Columns("id", "topic_id", "language", "channel", "title", "meta_description", "slug", "body",
			"keywords", "seo_score", "semantic_score", "featured_image", "publish_status",
			"published_at", "canonical_url", "external_ref", "created_at").
		Values(artifact.ID, artifact.TopicID, artifact.Language, artifact.Channel, artifact.Title,
			artifact.MetaDescription, artifact.Slug, artifact.Body, string(keywords),
			artifact.SEOScore, artifact.SemanticScore, artifact.FeaturedImage, artifact.PublishStatus,
			publishedAt, artifact.CanonicalURL, artifact.ExternalRef, artifact.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Artifact loads a single artifact by id.
func (s *Store) Artifact(ctx context.Context, id string) (*core.ContentArtifact, error) {
	query, args, err := s.artifactSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	artifact, err := scanArtifact(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
	}
	return artifact, err
}

// ArtifactsByTopic lists every artifact belonging to a topic.
func (s *Store) ArtifactsByTopic(ctx context.Context, topicID string) ([]core.ContentArtifact, error) {
	query, args, err := s.artifactSelect().
		Where(sq.Eq{"topic_id": topicID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []core.ContentArtifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

// MarkArtifactPublished records the normalized identifier, publish
// timestamp, canonical URL and published status in one atomic update.
func (s *Store) MarkArtifactPublished(ctx context.Context, artifactID, slug, canonicalURL string, publishedAt time.Time) error {
	query, args, err := s.builder.
		Update("artifacts").
		Set("publish_status", core.PublishStatusPublished).
		Set("slug", slug).
		Set("published_at", publishedAt).
		Set("canonical_url", canonicalURL).
		Where(sq.Eq{"id": artifactID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("artifact %s: %w", artifactID, ErrNotFound)
	}
	return nil
}

func (s *Store) artifactSelect() sq.SelectBuilder {
	return s.builder.
		Select("id", "topic_id", "language", "channel", "title", "meta_description", "slug", "body",
			"keywords", "seo_score", "semantic_score", "featured_image", "publish_status",
			"published_at", "canonical_url", "external_ref", "created_at").
		From("artifacts")
}

func scanArtifact(row rowScanner) (*core.ContentArtifact, error) {
	var (
		artifact    core.ContentArtifact
		keywords    string
		publishedAt sql.NullTime
	)
	err := row.Scan(&artifact.ID, &artifact.TopicID, &artifact.Language, &artifact.Channel,
		&artifact.Title, &artifact.MetaDescription, &artifact.Slug, &artifact.Body,
		&keywords, &artifact.SEOScore, &artifact.SemanticScore, &artifact.FeaturedImage,
		&artifact.PublishStatus, &publishedAt, &artifact.CanonicalURL, &artifact.ExternalRef,
		&artifact.CreatedAt)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		artifact.PublishedAt = &t
	}
	if keywords != "" {
		if err := json.Unmarshal([]byte(keywords), &artifact.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for artifact %s: %w", artifact.ID, err)
		}
	}
	return &artifact, nil
}
