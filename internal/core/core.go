package core

import "time"

// Status is the pipeline position of a Topic. The string values are
// wire-level identifiers shared with the dashboard and must not change.
type Status string

const (
	StatusCreated            Status = "created"
	StatusPromptReady        Status = "prompt_ready"
	StatusPromptApproved     Status = "prompt_approved"
	StatusArticleReady       Status = "article_ready"
	StatusArticleApproved    Status = "article_approved"
	StatusPublishing         Status = "publishing"
	StatusPublished          Status = "published"
	StatusCrosspostReady     Status = "crosspost_ready"
	StatusCrosspostPublished Status = "crosspost_published"
	StatusCompleted          Status = "completed"
	StatusNeedsReview        Status = "needs_review"
)

// AllStatuses lists every legal status in pipeline order, needs_review last.
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusPromptReady,
		StatusPromptApproved,
		StatusArticleReady,
		StatusArticleApproved,
		StatusPublishing,
		StatusPublished,
		StatusCrosspostReady,
		StatusCrosspostPublished,
		StatusCompleted,
		StatusNeedsReview,
	}
}

// Valid reports whether s is a member of the defined status set.
func (s Status) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Metadata keys used by the pipeline stage handlers. The metadata bag is
// open: the dashboard writes additional keys that automation must preserve.
const (
	MetaScheduledPublishDate  = "scheduledPublishDate"  // RFC 3339 timestamp, set by the operator
	MetaAutoGenerateCrosspost = "autoGenerateCrosspost" // default-on unless explicitly false
	MetaAutoPostCrosspost     = "autoPostCrosspost"     // default-off, explicit opt-in
	MetaQualityOverride       = "qualityOverride"       // bypass the gate on the automated path
	MetaPreviousStatus        = "previousStatus"        // snapshot taken when entering publishing
	MetaLastError             = "lastError"
	MetaLastErrorAt           = "lastErrorAt"
	MetaPrompts               = "prompts"
	MetaPromptsGeneratedAt    = "promptsGeneratedAt"
	MetaArticlesGeneratedAt   = "articlesGeneratedAt"
	MetaPublishedAt           = "publishedAt"
	MetaCanonicalURLs         = "canonicalUrls"
	MetaCrossposts            = "crossposts"
	MetaCrosspostsGeneratedAt = "crosspostsGeneratedAt"
)

// Topic is the unit of content moving through the pipeline.
type Topic struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`    // single source of truth for pipeline position
	Metadata  map[string]any `json:"metadata"`  // open, stage-specific attribute bag (additively merged)
	Locked    bool           `json:"locked"`    // advisory lock for concurrent human edits
	LockedBy  string         `json:"locked_by"` // operator holding the lock
	LockedAt  time.Time      `json:"locked_at"` // zero value when unlocked
	Archived  bool           `json:"archived"`  // soft delete; topics referenced by published artifacts are never hard-deleted
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ScheduledPublishDate reads the scheduling directive from the metadata bag.
// The second return is false when the directive is absent or malformed.
func (t *Topic) ScheduledPublishDate() (time.Time, bool) {
	s, ok := t.Metadata[MetaScheduledPublishDate].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// AutoGenerateCrosspost reports whether stage B should run. Default is on;
// only an explicit false disables it.
func (t *Topic) AutoGenerateCrosspost() bool {
	v, ok := t.Metadata[MetaAutoGenerateCrosspost].(bool)
	return !ok || v
}

// AutoPostCrosspost reports whether stage C should run. Default is off
// because social posting is externally irreversible.
func (t *Topic) AutoPostCrosspost() bool {
	v, ok := t.Metadata[MetaAutoPostCrosspost].(bool)
	return ok && v
}

// QualityOverride reports whether policy allows publishing past a failing
// quality verdict.
func (t *Topic) QualityOverride() bool {
	v, ok := t.Metadata[MetaQualityOverride].(bool)
	return ok && v
}

// Artifact channels.
const (
	ChannelArticle = "article" // long-form site content
	ChannelSocial  = "social"  // derived cross-post
)

// Artifact publish statuses.
const (
	PublishStatusDraft     = "draft"
	PublishStatusPublished = "published"
)

// ContentArtifact is a generated piece of content tied to one Topic and one
// target language/channel combination.
type ContentArtifact struct {
	ID              string     `json:"id"`
	TopicID         string     `json:"topic_id"`
	Language        string     `json:"language"` // e.g. "en", "es"
	Channel         string     `json:"channel"`  // "article" or "social"
	Title           string     `json:"title"`
	MetaDescription string     `json:"meta_description"` // search-result summary text
	Slug            string     `json:"slug"`             // normalized identifier, set at publish time
	Body            string     `json:"body"`             // rendered HTML for articles, plain text for social
	Keywords        []string   `json:"keywords"`
	SEOScore        int        `json:"seo_score"`      // cached primary score, gate input
	SemanticScore   int        `json:"semantic_score"` // cached secondary score, gate input
	FeaturedImage   string     `json:"featured_image"` // URL, empty when absent
	PublishStatus   string     `json:"publish_status"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CanonicalURL    string     `json:"canonical_url"`
	ExternalRef     string     `json:"external_ref"` // post reference returned by the social network
	CreatedAt       time.Time  `json:"created_at"`
}

// WordCount counts whitespace-separated words in the artifact body.
func (a *ContentArtifact) WordCount() int {
	n := 0
	inWord := false
	for _, r := range a.Body {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				n++
				inWord = true
			}
		}
	}
	return n
}
