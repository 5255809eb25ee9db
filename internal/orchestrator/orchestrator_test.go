package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pressroom/internal/core"
	"pressroom/internal/pipeline"
)

// memStore is an in-memory pipeline.TopicStore for orchestrator tests.
type memStore struct {
	topics    map[string]*core.Topic
	artifacts map[string][]core.ContentArtifact

	markErr  error // forced MarkArtifactPublished failure
	mergeErr error
}

func newMemStore(topics ...*core.Topic) *memStore {
	s := &memStore{
		topics:    map[string]*core.Topic{},
		artifacts: map[string][]core.ContentArtifact{},
	}
	for _, t := range topics {
		if t.Metadata == nil {
			t.Metadata = map[string]any{}
		}
		s.topics[t.ID] = t
	}
	return s
}

func (s *memStore) Topic(ctx context.Context, id string) (*core.Topic, error) {
	t, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %s not found", id)
	}
	copied := *t
	return &copied, nil
}

func (s *memStore) TopicsByStatus(ctx context.Context, status core.Status) ([]core.Topic, error) {
	var out []core.Topic
	for _, t := range s.topics {
		if t.Status == status && !t.Archived {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) TransitionStatus(ctx context.Context, id string, from, to core.Status) error {
	t, ok := s.topics[id]
	if !ok {
		return fmt.Errorf("topic %s not found", id)
	}
	if t.Status != from {
		return fmt.Errorf("%w: topic %s is %s, expected %s", pipeline.ErrStatusConflict, id, t.Status, from)
	}
	t.Status = to
	return nil
}

func (s *memStore) MergeTopicMetadata(ctx context.Context, id string, patch map[string]any) error {
	if s.mergeErr != nil {
		return s.mergeErr
	}
	t, ok := s.topics[id]
	if !ok {
		return fmt.Errorf("topic %s not found", id)
	}
	for k, v := range patch {
		t.Metadata[k] = v
	}
	return nil
}

func (s *memStore) ArtifactsByTopic(ctx context.Context, topicID string) ([]core.ContentArtifact, error) {
	return s.artifacts[topicID], nil
}

func (s *memStore) SaveArtifact(ctx context.Context, artifact *core.ContentArtifact) error {
	s.artifacts[artifact.TopicID] = append(s.artifacts[artifact.TopicID], *artifact)
	return nil
}

func (s *memStore) MarkArtifactPublished(ctx context.Context, artifactID, slug, canonicalURL string, publishedAt time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	for topicID, list := range s.artifacts {
		for i := range list {
			if list[i].ID == artifactID {
				list[i].PublishStatus = core.PublishStatusPublished
				list[i].Slug = slug
				list[i].CanonicalURL = canonicalURL
				at := publishedAt
				list[i].PublishedAt = &at
				s.artifacts[topicID] = list
				return nil
			}
		}
	}
	return fmt.Errorf("artifact %s not found", artifactID)
}

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type recordingIndexer struct {
	urls []string
	err  error
}

func (i *recordingIndexer) Ping(ctx context.Context, publishedURL string) error {
	i.urls = append(i.urls, publishedURL)
	return i.err
}

type recordingSocial struct {
	posts   []string
	failFor map[string]bool // canonical URL substring -> fail
}

func (p *recordingSocial) PublishPost(ctx context.Context, text, canonicalURL string) (string, error) {
	for needle := range p.failFor {
		if strings.Contains(canonicalURL, needle) {
			return "", errors.New("social service unavailable")
		}
	}
	p.posts = append(p.posts, text)
	return fmt.Sprintf("post-%d", len(p.posts)), nil
}

func dueTopic(id string) *core.Topic {
	return &core.Topic{
		ID:     id,
		Title:  "Scheduled Topic",
		Status: core.StatusArticleApproved,
		Metadata: map[string]any{
			core.MetaScheduledPublishDate: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		},
	}
}

// publishableArtifact clears every quality-gate rule.
func publishableArtifact(topicID, lang string) core.ContentArtifact {
	return core.ContentArtifact{
		ID:              "artifact-" + topicID + "-" + lang,
		TopicID:         topicID,
		Language:        lang,
		Channel:         core.ChannelArticle,
		Title:           "Scheduled Topic",
		MetaDescription: strings.Repeat("d", 140),
		Slug:            "scheduled-topic",
		Body:            strings.Repeat("word ", 350),
		Keywords:        []string{"one", "two", "three"},
		SEOScore:        85,
		SemanticScore:   82,
		FeaturedImage:   "https://cdn.example.com/hero.jpg",
		PublishStatus:   core.PublishStatusDraft,
	}
}

func testOrchestrator(store *memStore, gen pipeline.Generator, indexer IndexNotifier, social SocialPublisher, langs []string) *Orchestrator {
	machine := pipeline.NewMachine(store, gen, langs)
	return New(store, machine, gen, indexer, social, Config{BaseURL: "https://example.com"})
}

func TestRunScheduledFullPipeline(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaAutoPostCrosspost] = true
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{
		publishableArtifact("t1", "en"),
		publishableArtifact("t1", "es"),
	}

	indexer := &recordingIndexer{}
	social := &recordingSocial{}
	o := testOrchestrator(store, &stubGenerator{text: "Punchy social copy."}, indexer, social, []string{"en", "es"})

	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 {
		t.Errorf("published = %d, want 1", report.Published)
	}
	if report.CrosspostCount != 2 {
		t.Errorf("crosspost count = %d, want 2", report.CrosspostCount)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", report.Errors)
	}
	if got := store.topics["t1"].Status; got != core.StatusCrosspostPublished {
		t.Errorf("topic status = %s, want crosspost_published", got)
	}
	if len(indexer.urls) != 2 {
		t.Errorf("index pings = %d, want one per language", len(indexer.urls))
	}
	for _, a := range store.artifacts["t1"] {
		if a.Channel != core.ChannelArticle {
			continue
		}
		if a.PublishStatus != core.PublishStatusPublished {
			t.Errorf("%s artifact publish status = %s, want published", a.Language, a.PublishStatus)
		}
		want := "https://example.com/" + a.Language + "/scheduled-topic"
		if a.CanonicalURL != want {
			t.Errorf("%s canonical URL = %s, want %s", a.Language, a.CanonicalURL, want)
		}
	}

	// Social artifacts were recorded with their external refs.
	socials := 0
	for _, a := range store.artifacts["t1"] {
		if a.Channel == core.ChannelSocial {
			socials++
			if a.ExternalRef == "" {
				t.Error("social artifact missing external ref")
			}
		}
	}
	if socials != 2 {
		t.Errorf("social artifacts = %d, want 2", socials)
	}
}

func TestRunScheduledSkipsNotDue(t *testing.T) {
	future := dueTopic("future")
	future.Metadata[core.MetaScheduledPublishDate] = time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	unscheduled := &core.Topic{ID: "manual", Status: core.StatusArticleApproved, Metadata: map[string]any{}}
	store := newMemStore(future, unscheduled)

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 0 || len(report.Errors) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if store.topics["future"].Status != core.StatusArticleApproved {
		t.Error("future topic moved before its schedule")
	}
	if store.topics["manual"].Status != core.StatusArticleApproved {
		t.Error("unscheduled topic picked up by automation")
	}
}

func TestRunScheduledSkipsLockedTopics(t *testing.T) {
	topic := dueTopic("locked")
	topic.Locked = true
	topic.LockedBy = "editor@example.com"
	store := newMemStore(topic)
	store.artifacts["locked"] = []core.ContentArtifact{publishableArtifact("locked", "en")}

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 0 {
		t.Errorf("published a locked topic")
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0].Error, "locked") {
		t.Errorf("expected a locked-topic error, got %+v", report.Errors)
	}
	if store.topics["locked"].Status != core.StatusArticleApproved {
		t.Error("locked topic state changed")
	}
}

func TestRunScheduledMissingArtifactGoesToReview(t *testing.T) {
	topic := dueTopic("t1")
	store := newMemStore(topic)
	// Only the en artifact exists; es is configured.
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en", "es"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 0 {
		t.Error("published despite missing artifact")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", report.Errors)
	}
	if got := store.topics["t1"].Status; got != core.StatusNeedsReview {
		t.Errorf("topic status = %s, want needs_review", got)
	}
	if store.topics["t1"].Metadata[core.MetaLastError] == nil {
		t.Error("failure not recorded in metadata")
	}
}

func TestRunScheduledGateFailureGoesToReview(t *testing.T) {
	topic := dueTopic("t1")
	store := newMemStore(topic)
	weak := publishableArtifact("t1", "en")
	weak.SEOScore = 30 // below the gate floor
	store.artifacts["t1"] = []core.ContentArtifact{weak}

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 0 {
		t.Error("published a gate-failing topic")
	}
	if got := store.topics["t1"].Status; got != core.StatusNeedsReview {
		t.Errorf("topic status = %s, want needs_review", got)
	}
}

func TestRunScheduledQualityOverrideBypassesGate(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaQualityOverride] = true
	topic.Metadata[core.MetaAutoGenerateCrosspost] = false
	store := newMemStore(topic)
	weak := publishableArtifact("t1", "en")
	weak.SEOScore = 30
	store.artifacts["t1"] = []core.ContentArtifact{weak}

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 {
		t.Errorf("published = %d, want 1 with override", report.Published)
	}
	if got := store.topics["t1"].Status; got != core.StatusPublished {
		t.Errorf("topic status = %s, want published", got)
	}
}

func TestRunScheduledRevertsOnPublishFailure(t *testing.T) {
	topic := dueTopic("t1")
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}
	store.markErr = errors.New("disk full")

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 0 {
		t.Error("reported a publish that failed")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", report.Errors)
	}
	// Transient failure: the topic reverts and is retried next run.
	if got := store.topics["t1"].Status; got != core.StatusArticleApproved {
		t.Errorf("topic status = %s, want article_approved after revert", got)
	}
}

func TestRunScheduledIsolatesTopicFailures(t *testing.T) {
	healthy := dueTopic("healthy")
	healthy.Metadata[core.MetaAutoGenerateCrosspost] = false
	broken := dueTopic("broken")
	store := newMemStore(healthy, broken)
	store.artifacts["healthy"] = []core.ContentArtifact{publishableArtifact("healthy", "en")}
	// broken has no artifacts at all.

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 {
		t.Errorf("published = %d, want the healthy topic", report.Published)
	}
	if len(report.Errors) != 1 || report.Errors[0].TopicID != "broken" {
		t.Errorf("expected one error for the broken topic, got %+v", report.Errors)
	}
	if store.topics["healthy"].Status != core.StatusPublished {
		t.Errorf("healthy topic status = %s, want published", store.topics["healthy"].Status)
	}
	if store.topics["broken"].Status != core.StatusNeedsReview {
		t.Errorf("broken topic status = %s, want needs_review", store.topics["broken"].Status)
	}
}

func TestRunScheduledStopsAtCrosspostReadyWithoutOptIn(t *testing.T) {
	topic := dueTopic("t1") // autoPostCrosspost defaults off
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}

	social := &recordingSocial{}
	o := testOrchestrator(store, &stubGenerator{text: "Generated post."}, &recordingIndexer{}, social, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.CrosspostCount != 0 {
		t.Errorf("crosspost count = %d, want 0 without opt-in", report.CrosspostCount)
	}
	if len(social.posts) != 0 {
		t.Error("posted externally without explicit opt-in")
	}
	if got := store.topics["t1"].Status; got != core.StatusCrosspostReady {
		t.Errorf("topic status = %s, want crosspost_ready", got)
	}
	if store.topics["t1"].Metadata[core.MetaCrossposts] == nil {
		t.Error("generated crossposts not stored for manual posting")
	}
}

func TestRunScheduledSkipsCrosspostGenerationWhenDisabled(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaAutoGenerateCrosspost] = false
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}

	o := testOrchestrator(store, &stubGenerator{err: errors.New("must not be called")}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 || len(report.Errors) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if got := store.topics["t1"].Status; got != core.StatusPublished {
		t.Errorf("topic status = %s, want published", got)
	}
}

func TestRunScheduledPartialCrosspostFailure(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaAutoPostCrosspost] = true
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{
		publishableArtifact("t1", "en"),
		publishableArtifact("t1", "es"),
	}

	social := &recordingSocial{failFor: map[string]bool{"/es/": true}}
	o := testOrchestrator(store, &stubGenerator{text: "Post."}, &recordingIndexer{}, social, []string{"en", "es"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.CrosspostCount != 1 {
		t.Errorf("crosspost count = %d, want 1", report.CrosspostCount)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0].Error, "crosspost es") {
		t.Errorf("expected an es crosspost error, got %+v", report.Errors)
	}
	// At least one language went out, so the topic still advances.
	if got := store.topics["t1"].Status; got != core.StatusCrosspostPublished {
		t.Errorf("topic status = %s, want crosspost_published", got)
	}
}

func TestRunScheduledAllCrosspostsFailStaysReady(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaAutoPostCrosspost] = true
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}

	social := &recordingSocial{failFor: map[string]bool{"/en/": true}}
	o := testOrchestrator(store, &stubGenerator{text: "Post."}, &recordingIndexer{}, social, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.CrosspostCount != 0 {
		t.Errorf("crosspost count = %d, want 0", report.CrosspostCount)
	}
	if got := store.topics["t1"].Status; got != core.StatusCrosspostReady {
		t.Errorf("topic status = %s, want crosspost_ready for retry", got)
	}
}

func TestRunScheduledIndexFailureIsBestEffort(t *testing.T) {
	topic := dueTopic("t1")
	topic.Metadata[core.MetaAutoGenerateCrosspost] = false
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}

	indexer := &recordingIndexer{err: errors.New("indexing endpoint down")}
	o := testOrchestrator(store, &stubGenerator{text: "x"}, indexer, &recordingSocial{}, []string{"en"})
	report, err := o.RunScheduled(context.Background())
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 || len(report.Errors) != 0 {
		t.Errorf("index failure must not fail the publish, got %+v", report)
	}
	if got := store.topics["t1"].Status; got != core.StatusPublished {
		t.Errorf("topic status = %s, want published", got)
	}
}

// strongDraft carries enough citation, structure and takeaway signal for a
// generated artifact to clear the quality gate on its cached scores.
var strongDraft = strings.Repeat(`
<h2>Adoption keeps climbing</h2>
<p>According to a 2025 industry report, 73% of teams now publish weekly updates. The same study shows output is 40 percent higher with automated pipelines. Research from a follow-up survey found teams save 12 hours every single week.</p>
<ul><li>Scheduling</li><li>Quality gates</li><li>Cross-posting</li></ul>
<blockquote>Automation is the single biggest lever for consistent publishing cadence.</blockquote>
<img src="chart.png" alt="cadence chart"/>
`, 6)

func TestGeneratedArticlesPublishEndToEnd(t *testing.T) {
	topic := &core.Topic{
		ID:     "t1",
		Title:  "Automation Report",
		Status: core.StatusCreated,
		Metadata: map[string]any{
			core.MetaScheduledPublishDate: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
			"keywords":                    []any{"automation", "publishing", "pipeline"},
		},
	}
	store := newMemStore(topic)
	gen := &stubGenerator{text: strongDraft}
	machine := pipeline.NewMachine(store, gen, []string{"en"})
	ctx := context.Background()

	// Walk the generation half of the pipeline exactly as operators do.
	if err := machine.GeneratePrompts(ctx, topic); err != nil {
		t.Fatalf("generate prompts: %v", err)
	}
	if err := machine.ApprovePrompts(ctx, topic); err != nil {
		t.Fatalf("approve prompts: %v", err)
	}
	topic.Metadata = store.topics["t1"].Metadata
	if err := machine.GenerateArticles(ctx, topic); err != nil {
		t.Fatalf("generate articles: %v", err)
	}
	if err := machine.ApproveArticles(ctx, topic); err != nil {
		t.Fatalf("approve articles: %v", err)
	}

	o := New(store, machine, gen, &recordingIndexer{}, &recordingSocial{}, Config{BaseURL: "https://example.com"})
	report, err := o.RunScheduled(ctx)
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}

	if report.Published != 1 {
		t.Fatalf("published = %d, want the generated topic to clear its own gate: %+v", report.Published, report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", report.Errors)
	}
	if got := store.topics["t1"].Status; got != core.StatusCrosspostReady {
		t.Errorf("topic status = %s, want crosspost_ready", got)
	}

	for _, a := range store.artifacts["t1"] {
		if a.Channel != core.ChannelArticle {
			continue
		}
		if a.Slug != "automation-report" {
			t.Errorf("stored slug = %q, want automation-report", a.Slug)
		}
		if a.CanonicalURL != "https://example.com/en/automation-report" {
			t.Errorf("canonical URL = %q", a.CanonicalURL)
		}
		if a.PublishStatus != core.PublishStatusPublished {
			t.Errorf("publish status = %s, want published", a.PublishStatus)
		}
	}
}

func TestRunScheduledRepeatedFailureEscalates(t *testing.T) {
	topic := dueTopic("t1")
	store := newMemStore(topic)
	store.artifacts["t1"] = []core.ContentArtifact{publishableArtifact("t1", "en")}
	store.markErr = errors.New("disk full")

	o := testOrchestrator(store, &stubGenerator{text: "x"}, &recordingIndexer{}, &recordingSocial{}, []string{"en"})
	ctx := context.Background()

	// First failure reverts for retry.
	if _, err := o.RunScheduled(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if got := store.topics["t1"].Status; got != core.StatusArticleApproved {
		t.Fatalf("after first failure status = %s, want article_approved", got)
	}

	// The failure persists: the second attempt escalates to review instead
	// of looping forever.
	if _, err := o.RunScheduled(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := store.topics["t1"].Status; got != core.StatusNeedsReview {
		t.Errorf("after repeated failure status = %s, want needs_review", got)
	}
}

func TestExcerptRuneSafe(t *testing.T) {
	long := strings.Repeat("á", 700)
	got := excerpt(long)
	if n := len([]rune(got)); n != 600 {
		t.Errorf("excerpt length = %d runes, want 600", n)
	}
	for _, r := range got {
		if r != 'á' {
			t.Fatalf("clip split a rune: found %q", r)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"precondition", fmt.Errorf("wrap: %w", pipeline.ErrPrecondition), false},
		{"conflict", fmt.Errorf("wrap: %w", pipeline.ErrStatusConflict), false},
		{"transient", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%s: Classify = %v, want %v", tt.name, got, tt.want)
		}
	}
}
