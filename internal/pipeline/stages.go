package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pressroom/internal/core"
	"pressroom/internal/scoring"
	"pressroom/internal/slug"
)

// Prompt templates for the generation stages.
const (
	topicPromptsTemplate = `Draft three alternative article briefs for the topic below.
Each brief: a working title, the angle, and the three key points to cover.
Write one brief per paragraph, nothing else.

Topic: %s`

	articleTemplate = `Write a complete article in %s based on the approved brief below.
Requirements: HTML body with h2 section headings, at least one list, concrete
figures with attributed sources where possible, and a strong opening paragraph
that works as a standalone summary. No preamble, return the HTML only.

Topic: %s

Brief:
%s`
)

// metaDescriptionLimit caps the derived search-result summary.
const metaDescriptionLimit = 155

// GeneratePrompts produces article briefs for a freshly created topic and
// advances it to prompt_ready.
func (m *Machine) GeneratePrompts(ctx context.Context, topic *core.Topic) error {
	if topic.Status != core.StatusCreated {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, topic.Status, core.StatusPromptReady)
	}

	text, err := m.generator.GenerateText(ctx, fmt.Sprintf(topicPromptsTemplate, topic.Title))
	if err != nil {
		return fmt.Errorf("generate prompts for topic %s: %w", topic.ID, err)
	}

	patch := map[string]any{
		core.MetaPrompts:            text,
		core.MetaPromptsGeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.store.MergeTopicMetadata(ctx, topic.ID, patch); err != nil {
		return fmt.Errorf("store prompts for topic %s: %w", topic.ID, err)
	}
	return m.Transition(ctx, topic, core.StatusPromptReady)
}

// ApprovePrompts records the operator's sign-off on the generated briefs.
func (m *Machine) ApprovePrompts(ctx context.Context, topic *core.Topic) error {
	return m.Transition(ctx, topic, core.StatusPromptApproved)
}

// GenerateArticles produces one draft article artifact per configured
// language from the approved brief and advances the topic to
// article_ready. Scores are computed once here and cached on the artifact
// as gate inputs.
func (m *Machine) GenerateArticles(ctx context.Context, topic *core.Topic) error {
	if topic.Status != core.StatusPromptApproved {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, topic.Status, core.StatusArticleReady)
	}

	brief, _ := topic.Metadata[core.MetaPrompts].(string)
	if strings.TrimSpace(brief) == "" {
		return fmt.Errorf("%w: topic %s has no approved brief", ErrPrecondition, topic.ID)
	}

	for _, lang := range m.languages {
		body, err := m.generator.GenerateText(ctx, fmt.Sprintf(articleTemplate, lang, topic.Title, brief))
		if err != nil {
			return fmt.Errorf("generate %s article for topic %s: %w", lang, topic.ID, err)
		}

		primary := scoring.ScoreArticle(body, nil)
		semantic := scoring.ScoreSemantic(body)

		artifact := &core.ContentArtifact{
			ID:              uuid.NewString(),
			TopicID:         topic.ID,
			Language:        lang,
			Channel:         core.ChannelArticle,
			Title:           topic.Title,
			MetaDescription: deriveMetaDescription(body),
			Slug:            slug.Normalize(topic.Title),
			Body:            body,
			Keywords:        topicKeywords(topic),
			SEOScore:        primary.Score,
			SemanticScore:   semantic.Score,
			PublishStatus:   core.PublishStatusDraft,
			CreatedAt:       time.Now().UTC(),
		}
		if err := m.store.SaveArtifact(ctx, artifact); err != nil {
			return fmt.Errorf("save %s article for topic %s: %w", lang, topic.ID, err)
		}
	}

	patch := map[string]any{
		core.MetaArticlesGeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.store.MergeTopicMetadata(ctx, topic.ID, patch); err != nil {
		return fmt.Errorf("record generation time for topic %s: %w", topic.ID, err)
	}
	return m.Transition(ctx, topic, core.StatusArticleReady)
}

// ApproveArticles records the operator's sign-off on the drafts. The
// transition precondition verifies a non-empty artifact per language.
func (m *Machine) ApproveArticles(ctx context.Context, topic *core.Topic) error {
	return m.Transition(ctx, topic, core.StatusArticleApproved)
}

// Complete closes out a fully cross-posted topic.
func (m *Machine) Complete(ctx context.Context, topic *core.Topic) error {
	return m.Transition(ctx, topic, core.StatusCompleted)
}

// deriveMetaDescription clips the draft's plain text to search-result
// length at a word boundary. The limit counts runes so accented text is
// not shortchanged and no rune is split.
func deriveMetaDescription(body string) string {
	text := strings.Join(strings.Fields(stripTags(body)), " ")
	if utf8.RuneCountInString(text) <= metaDescriptionLimit {
		return text
	}
	clipped := string([]rune(text)[:metaDescriptionLimit])
	if i := strings.LastIndexByte(clipped, ' '); i > 0 {
		clipped = clipped[:i]
	}
	return clipped
}

// stripTags removes markup crudely; scoring does the real HTML parsing,
// this only needs readable text for a description.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// topicKeywords reads the operator-curated keyword list from metadata.
func topicKeywords(topic *core.Topic) []string {
	raw, ok := topic.Metadata["keywords"].([]any)
	if !ok {
		return nil
	}
	keywords := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, isStr := v.(string); isStr && s != "" {
			keywords = append(keywords, s)
		}
	}
	return keywords
}
