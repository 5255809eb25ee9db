// Package store persists Topics and Content Artifacts in SQLite. Update
// operations are atomic at the single-record level; the metadata bag is
// merged, never replaced, so concurrent unrelated writes survive.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"pressroom/internal/core"
	"pressroom/internal/pipeline"
)

// ErrNotFound is returned when a topic or artifact does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the SQLite-backed persistence layer.
type Store struct {
	db      *sql.DB
	path    string
	builder sq.StatementBuilderType
}

var _ pipeline.TopicStore = (*Store)(nil)

// NewStore opens (creating if needed) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pressroom.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{
		db:      db,
		path:    dbPath,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return store, nil
}

// initialize creates the necessary tables.
func (s *Store) initialize() error {
	topicsTable := `
	CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		locked INTEGER NOT NULL DEFAULT 0,
		locked_by TEXT NOT NULL DEFAULT '',
		locked_at DATETIME,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	artifactsTable := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		language TEXT NOT NULL,
		channel TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		meta_description TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		seo_score INTEGER NOT NULL DEFAULT 0,
		semantic_score INTEGER NOT NULL DEFAULT 0,
		featured_image TEXT NOT NULL DEFAULT '',
		publish_status TEXT NOT NULL DEFAULT 'draft',
		published_at DATETIME,
		canonical_url TEXT NOT NULL DEFAULT '',
		external_ref TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (topic_id) REFERENCES topics (id)
	);`

	statusIndex := `CREATE INDEX IF NOT EXISTS idx_topics_status ON topics (status);`
	topicIndex := `CREATE INDEX IF NOT EXISTS idx_artifacts_topic ON artifacts (topic_id);`

	for _, stmt := range []string{topicsTable, artifactsTable, statusIndex, topicIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTopic inserts a new topic in its initial state.
func (s *Store) CreateTopic(ctx context.Context, topic *core.Topic) error {
	if topic.Status == "" {
		topic.Status = core.StatusCreated
	}
	if topic.Metadata == nil {
		topic.Metadata = map[string]any{}
	}
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	topic.UpdatedAt = now

	metadata, err := json.Marshal(topic.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query, args, err := s.builder.
		Insert("topics").
		Columns("id", "title", "status", "metadata", "locked", "locked_by", "archived", "created_at", "updated_at").
		Values(topic.ID, topic.Title, string(topic.Status), string(metadata), topic.Locked, topic.LockedBy, topic.Archived, topic.CreatedAt, topic.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

// Topic loads a single topic by id.
func (s *Store) Topic(ctx context.Context, id string) (*core.Topic, error) {
	query, args, err := s.topicSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	topic, err := scanTopic(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return topic, err
}

// TopicsByStatus lists non-archived topics in the given status, oldest
// first. This is the cheap indexed filter of the due-topic query; the
// scheduling directive is filtered in process by the orchestrator.
func (s *Store) TopicsByStatus(ctx context.Context, status core.Status) ([]core.Topic, error) {
	query, args, err := s.topicSelect().
		Where(sq.Eq{"status": string(status), "archived": false}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []core.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// TransitionStatus moves a topic from one status to another with a guarded
// update. If the topic is no longer in the expected status the update
// affects zero rows and ErrStatusConflict is returned: a concurrent run
// claimed the topic first.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to core.Status) error {
	query, args, err := s.builder.
		Update("topics").
		Set("status", string(to)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, lookupErr := s.Topic(ctx, id)
		if lookupErr != nil {
			return lookupErr
		}
		return fmt.Errorf("topic %s is %s, expected %s: %w",
			id, current.Status, from, pipeline.ErrStatusConflict)
	}
	return nil
}

// MergeTopicMetadata shallow-merges the patch into the stored metadata
// document inside a transaction. Keys absent from the patch are preserved,
// so automation never drops fields written through the manual-edit path.
func (s *Store) MergeTopicMetadata(ctx context.Context, id string, patch map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, "SELECT metadata FROM topics WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	metadata := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}
	for k, v := range patch {
		metadata[k] = v
	}

	merged, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE topics SET metadata = ?, updated_at = ? WHERE id = ?",
		string(merged), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return tx.Commit()
}

// SetLock acquires the advisory edit lock for an operator.
func (s *Store) SetLock(ctx context.Context, id, lockedBy string) error {
	query, args, err := s.builder.
		Update("topics").
		Set("locked", true).
		Set("locked_by", lockedBy).
		Set("locked_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock update: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// ReleaseLock clears the advisory edit lock.
func (s *Store) ReleaseLock(ctx context.Context, id string) error {
	query, args, err := s.builder.
		Update("topics").
		Set("locked", false).
		Set("locked_by", "").
		Set("locked_at", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build unlock update: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// ArchiveTopic soft-archives a topic. Topics referenced by published
// artifacts are never hard-deleted.
func (s *Store) ArchiveTopic(ctx context.Context, id string) error {
	query, args, err := s.builder.
		Update("topics").
		Set("archived", true).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build archive update: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) topicSelect() sq.SelectBuilder {
	return s.builder.
		Select("id", "title", "status", "metadata", "locked", "locked_by", "locked_at", "archived", "created_at", "updated_at").
		From("topics")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*core.Topic, error) {
	var (
		topic    core.Topic
		status   string
		raw      string
		lockedAt sql.NullTime
	)
	err := row.Scan(&topic.ID, &topic.Title, &status, &raw, &topic.Locked, &topic.LockedBy, &lockedAt, &topic.Archived, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, err
	}

	topic.Status = core.Status(status)
	if lockedAt.Valid {
		topic.LockedAt = lockedAt.Time
	}
	topic.Metadata = map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &topic.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for topic %s: %w", topic.ID, err)
		}
	}
	return &topic, nil
}
