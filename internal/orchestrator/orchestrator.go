// Package orchestrator runs the unattended publish and cross-post stages
// for every topic whose scheduled publish time has passed. Each invocation
// is a bounded single pass; failures are isolated per topic and, within
// cross-post publishing, per language.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pressroom/internal/core"
	"pressroom/internal/gate"
	"pressroom/internal/llm"
	"pressroom/internal/logger"
	"pressroom/internal/pipeline"
	"pressroom/internal/slug"
)

// IndexNotifier pings the search-indexing endpoint for a published URL.
// Best effort: a failed ping never fails the publish stage.
type IndexNotifier interface {
	Ping(ctx context.Context, publishedURL string) error
}

// SocialPublisher posts one language variant and returns its external
// post reference.
type SocialPublisher interface {
	PublishPost(ctx context.Context, text, canonicalURL string) (string, error)
}

// Config bounds a batch invocation.
type Config struct {
	BaseURL       string        // canonical site base URL, no trailing slash
	BatchBudget   time.Duration // stop accepting new topics past this wall-clock budget
	NotifyTimeout time.Duration // per index ping
	PostTimeout   time.Duration // per social post
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchBudget:   300 * time.Second,
		NotifyTimeout: 10 * time.Second,
		PostTimeout:   30 * time.Second,
	}
}

// TopicError is one per-topic failure in the batch report.
type TopicError struct {
	TopicID string `json:"topicId"`
	Error   string `json:"error"`
}

// BatchReport aggregates one orchestrator invocation.
type BatchReport struct {
	Published      int           `json:"published"`
	CrosspostCount int           `json:"crosspostCount"`
	Errors         []TopicError  `json:"errors"`
	Duration       time.Duration `json:"duration"`
	StartedAt      time.Time     `json:"startedAt"`
}

// Orchestrator executes the final pipeline stages unattended.
type Orchestrator struct {
	store     pipeline.TopicStore
	machine   *pipeline.Machine
	generator pipeline.Generator
	indexer   IndexNotifier
	social    SocialPublisher
	config    Config
}

// New wires the orchestrator with its collaborators.
func New(store pipeline.TopicStore, machine *pipeline.Machine, generator pipeline.Generator,
	indexer IndexNotifier, social SocialPublisher, config Config) *Orchestrator {
	if config.BatchBudget <= 0 {
		config.BatchBudget = DefaultConfig().BatchBudget
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = DefaultConfig().NotifyTimeout
	}
	if config.PostTimeout <= 0 {
		config.PostTimeout = DefaultConfig().PostTimeout
	}
	return &Orchestrator{
		store:     store,
		machine:   machine,
		generator: generator,
		indexer:   indexer,
		social:    social,
		config:    config,
	}
}

// RunScheduled selects every due topic and runs the remaining stages for
// each, independently. Only a failed candidate query fails the whole
// batch; everything else lands in the per-topic errors list.
func (o *Orchestrator) RunScheduled(ctx context.Context) (*BatchReport, error) {
	start := time.Now()
	report := &BatchReport{StartedAt: start.UTC(), Errors: []TopicError{}}

	// Status filter first (cheap, indexed); the scheduling directive lives
	// in the metadata bag and is filtered in process.
	candidates, err := o.store.TopicsByStatus(ctx, core.StatusArticleApproved)
	if err != nil {
		return nil, fmt.Errorf("query due topics: %w", err)
	}

	deadline := start.Add(o.config.BatchBudget)
	now := time.Now()

	for i := range candidates {
		topic := &candidates[i]

		due, ok := topic.ScheduledPublishDate()
		if !ok || due.After(now) {
			continue
		}
		if time.Now().After(deadline) {
			logger.Warn("Batch budget exhausted, deferring remaining topics",
				"topic_id", topic.ID, "budget", o.config.BatchBudget.String())
			break
		}
		if topic.Locked {
			report.Errors = append(report.Errors, TopicError{
				TopicID: topic.ID,
				Error:   fmt.Sprintf("topic locked for editing by %s", topic.LockedBy),
			})
			continue
		}

		o.processTopic(ctx, topic, report)
	}

	report.Duration = time.Since(start)
	logger.Info("Scheduled batch complete",
		"published", report.Published,
		"crossposts", report.CrosspostCount,
		"errors", len(report.Errors),
		"duration", report.Duration.String())
	return report, nil
}

// processTopic runs stages A (publish), B (cross-post generation) and C
// (cross-post publish) for one topic. Any error is recorded against this
// topic only; the batch continues with the next candidate.
func (o *Orchestrator) processTopic(ctx context.Context, topic *core.Topic, report *BatchReport) {
	articles, err := o.publishTopic(ctx, topic)
	if err != nil {
		logger.Debug("Topic publish failed", "topic_id", topic.ID, "retryable", Classify(err))
		report.Errors = append(report.Errors, TopicError{TopicID: topic.ID, Error: err.Error()})
		return
	}
	report.Published++

	if !topic.AutoGenerateCrosspost() {
		return
	}
	posts, err := o.generateCrossposts(ctx, topic, articles)
	if err != nil {
		report.Errors = append(report.Errors, TopicError{TopicID: topic.ID, Error: err.Error()})
		return
	}

	if !topic.AutoPostCrosspost() {
		return
	}
	o.publishCrossposts(ctx, topic, articles, posts, report)
}

// publishTopic is stage A: quality-gate the artifacts, enter the
// transient publishing state, compute canonical URLs, mark artifacts
// published, notify the indexer per URL, and advance to published. On
// transient failure the topic reverts to article_approved for retry;
// structural failures route it to needs_review.
func (o *Orchestrator) publishTopic(ctx context.Context, topic *core.Topic) (map[string]core.ContentArtifact, error) {
	all, err := o.store.ArtifactsByTopic(ctx, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}

	articles := make(map[string]core.ContentArtifact)
	for _, a := range all {
		if a.Channel == core.ChannelArticle && a.Body != "" {
			articles[a.Language] = a
		}
	}
	for _, lang := range o.machine.Languages() {
		if _, ok := articles[lang]; !ok {
			cause := fmt.Errorf("%w: no %s article artifact", pipeline.ErrPrecondition, lang)
			if reviewErr := o.machine.FailToReview(ctx, topic, cause); reviewErr != nil {
				logger.Error("Failed to move topic to review", reviewErr, "topic_id", topic.ID)
			}
			return nil, cause
		}
	}

	// The gate is mandatory on the automated path unless policy set an
	// explicit override.
	if !topic.QualityOverride() {
		for _, lang := range o.machine.Languages() {
			artifact := articles[lang]
			verdict := gate.Evaluate(&artifact)
			if !verdict.CanPublish {
				cause := fmt.Errorf("%w: quality gate failed for %s (%d failing rules)",
					pipeline.ErrPrecondition, lang, verdict.FailCount)
				if reviewErr := o.machine.FailToReview(ctx, topic, cause); reviewErr != nil {
					logger.Error("Failed to move topic to review", reviewErr, "topic_id", topic.ID)
				}
				return nil, cause
			}
			if verdict.WarnCount > 0 {
				logger.Warn("Publishing with quality warnings",
					"topic_id", topic.ID, "language", lang, "warnings", verdict.WarnCount)
			}
		}
	}

	// Claim the topic. A concurrent run that got here first wins the
	// guarded update and this one backs off with a conflict error.
	if err := o.machine.BeginPublishing(ctx, topic); err != nil {
		return nil, fmt.Errorf("claim topic: %w", err)
	}

	publishedAt := time.Now().UTC()
	urls := map[string]string{}
	for _, lang := range o.machine.Languages() {
		artifact := articles[lang]

		identifier := artifact.Slug
		if identifier == "" {
			identifier = slug.Normalize(artifact.Title)
		}
		canonicalURL := fmt.Sprintf("%s/%s/%s", strings.TrimRight(o.config.BaseURL, "/"), lang, identifier)

		if err := o.store.MarkArtifactPublished(ctx, artifact.ID, identifier, canonicalURL, publishedAt); err != nil {
			cause := fmt.Errorf("mark %s artifact published: %w", lang, err)
			o.revertOrEscalate(ctx, topic, cause)
			return nil, cause
		}

		artifact.Slug = identifier
		artifact.CanonicalURL = canonicalURL
		artifact.PublishStatus = core.PublishStatusPublished
		artifact.PublishedAt = &publishedAt
		articles[lang] = artifact
		urls[lang] = canonicalURL
	}

	// Best effort: indexing failures degrade discoverability, not state.
	for lang, canonicalURL := range urls {
		notifyCtx, cancel := context.WithTimeout(ctx, o.config.NotifyTimeout)
		if err := o.indexer.Ping(notifyCtx, canonicalURL); err != nil {
			logger.Warn("Index notification failed",
				"topic_id", topic.ID, "language", lang, "url", canonicalURL, "error", err.Error())
		}
		cancel()
	}

	patch := map[string]any{
		core.MetaPublishedAt:   publishedAt.Format(time.RFC3339),
		core.MetaCanonicalURLs: urls,
	}
	if err := o.store.MergeTopicMetadata(ctx, topic.ID, patch); err != nil {
		cause := fmt.Errorf("record publish metadata: %w", err)
		o.revertOrEscalate(ctx, topic, cause)
		return nil, cause
	}

	if err := o.machine.Transition(ctx, topic, core.StatusPublished); err != nil {
		cause := fmt.Errorf("advance to published: %w", err)
		o.revertOrEscalate(ctx, topic, cause)
		return nil, cause
	}
	return articles, nil
}

// revertOrEscalate handles a transient failure during the publishing state.
// The first failure reverts the topic to article_approved so the next run
// retries it; a topic that already carries a recorded failure goes to
// needs_review instead of retrying forever.
func (o *Orchestrator) revertOrEscalate(ctx context.Context, topic *core.Topic, cause error) {
	if prior, ok := topic.Metadata[core.MetaLastError].(string); ok && prior != "" {
		if err := o.machine.FailToReview(ctx, topic, cause); err != nil {
			logger.Error("Failed to move topic to review", err, "topic_id", topic.ID)
		}
		return
	}
	if err := o.machine.RevertPublishing(ctx, topic, cause); err != nil {
		logger.Error("Failed to revert publishing", err, "topic_id", topic.ID)
	}
}

// generateCrossposts is stage B: derive channel-specific text per language
// from the published articles. On failure the topic stays published;
// nothing external happened yet.
func (o *Orchestrator) generateCrossposts(ctx context.Context, topic *core.Topic, articles map[string]core.ContentArtifact) (map[string]string, error) {
	posts := make(map[string]string, len(articles))
	for _, lang := range o.machine.Languages() {
		artifact := articles[lang]
		prompt := llm.CrosspostPrompt(lang, artifact.Title, excerpt(artifact.Body), artifact.CanonicalURL)

		text, err := o.generator.GenerateText(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("generate %s crosspost: %w", lang, err)
		}
		posts[lang] = strings.TrimSpace(text)
	}

	patch := map[string]any{
		core.MetaCrossposts:            posts,
		core.MetaCrosspostsGeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := o.store.MergeTopicMetadata(ctx, topic.ID, patch); err != nil {
		return nil, fmt.Errorf("store crossposts: %w", err)
	}
	if err := o.machine.Transition(ctx, topic, core.StatusCrosspostReady); err != nil {
		return nil, fmt.Errorf("advance to crosspost_ready: %w", err)
	}
	return posts, nil
}

// publishCrossposts is stage C: post each language variant independently.
// A failed language is recorded and retried later without undoing the
// successful ones; the topic advances only if at least one post went out.
func (o *Orchestrator) publishCrossposts(ctx context.Context, topic *core.Topic,
	articles map[string]core.ContentArtifact, posts map[string]string, report *BatchReport) {
	succeeded := 0
	for _, lang := range o.machine.Languages() {
		text, ok := posts[lang]
		if !ok || text == "" {
			continue
		}
		artifact := articles[lang]

		postCtx, cancel := context.WithTimeout(ctx, o.config.PostTimeout)
		ref, err := o.social.PublishPost(postCtx, text, artifact.CanonicalURL)
		cancel()
		if err != nil {
			report.Errors = append(report.Errors, TopicError{
				TopicID: topic.ID,
				Error:   fmt.Sprintf("crosspost %s: %v", lang, err),
			})
			continue
		}

		now := time.Now().UTC()
		social := &core.ContentArtifact{
			ID:            uuid.NewString(),
			TopicID:       topic.ID,
			Language:      lang,
			Channel:       core.ChannelSocial,
			Title:         artifact.Title,
			Body:          text,
			PublishStatus: core.PublishStatusPublished,
			PublishedAt:   &now,
			CanonicalURL:  artifact.CanonicalURL,
			ExternalRef:   ref,
			CreatedAt:     now,
		}
		if err := o.store.SaveArtifact(ctx, social); err != nil {
			// The post is out; losing the record is worth surfacing but
			// must not undo the publish.
			report.Errors = append(report.Errors, TopicError{
				TopicID: topic.ID,
				Error:   fmt.Sprintf("record crosspost %s: %v", lang, err),
			})
			continue
		}

		report.CrosspostCount++
		succeeded++
	}

	if succeeded == 0 {
		// Every language failed: stay at crosspost_ready for retry.
		return
	}
	if err := o.machine.Transition(ctx, topic, core.StatusCrosspostPublished); err != nil {
		report.Errors = append(report.Errors, TopicError{
			TopicID: topic.ID,
			Error:   fmt.Sprintf("advance to crosspost_published: %v", err),
		})
	}
}

// excerpt clips the article body to prompt-friendly length without
// splitting a rune.
func excerpt(body string) string {
	const limit = 600
	text := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

// Classify reports whether an error should be retried automatically.
// Precondition and conflict errors are not: they need a human or already
// belong to another run.
func Classify(err error) (retryable bool) {
	return err != nil &&
		!errors.Is(err, pipeline.ErrPrecondition) &&
		!errors.Is(err, pipeline.ErrStatusConflict)
}
