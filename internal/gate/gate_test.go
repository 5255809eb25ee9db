package gate

import (
	"strings"
	"testing"

	"pressroom/internal/core"
)

// passingArtifact builds an artifact that clears every rule.
func passingArtifact() *core.ContentArtifact {
	return &core.ContentArtifact{
		Title:           "Test Article",
		MetaDescription: strings.Repeat("x", 140),
		Slug:            "test-article",
		Body:            strings.Repeat("word ", 350),
		Keywords:        []string{"alpha", "beta", "gamma"},
		SEOScore:        85,
		SemanticScore:   82,
		FeaturedImage:   "https://example.com/hero.jpg",
		Channel:         core.ChannelArticle,
	}
}

func TestEvaluateAllPass(t *testing.T) {
	verdict := Evaluate(passingArtifact())

	if !verdict.CanPublish {
		t.Errorf("expected CanPublish, got verdict %+v", verdict)
	}
	if verdict.FailCount != 0 || verdict.WarnCount != 0 {
		t.Errorf("expected clean verdict, got %d fails %d warns", verdict.FailCount, verdict.WarnCount)
	}
	if verdict.PassCount != len(verdict.Checks) {
		t.Errorf("expected %d passes, got %d", len(verdict.Checks), verdict.PassCount)
	}
	if len(verdict.Checks) != 7 {
		t.Errorf("expected 7 checks, got %d", len(verdict.Checks))
	}
}

func TestEvaluateWarningsDoNotBlock(t *testing.T) {
	artifact := passingArtifact()
	artifact.SEOScore = 70       // warn band
	artifact.FeaturedImage = ""  // warn
	artifact.Keywords = artifact.Keywords[:2] // warn

	verdict := Evaluate(artifact)

	if !verdict.CanPublish {
		t.Error("warnings must not block publishing")
	}
	if verdict.WarnCount != 3 {
		t.Errorf("expected 3 warnings, got %d: %+v", verdict.WarnCount, verdict.Checks)
	}
}

func TestEvaluateFailuresBlock(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.ContentArtifact)
		rule   string
	}{
		{"seo below floor", func(a *core.ContentArtifact) { a.SEOScore = 40 }, RuleSEOScore},
		{"semantic below floor", func(a *core.ContentArtifact) { a.SemanticScore = 59 }, RuleSemanticScore},
		{"empty meta description", func(a *core.ContentArtifact) { a.MetaDescription = "" }, RuleMetaDescription},
		{"no keywords", func(a *core.ContentArtifact) { a.Keywords = nil }, RuleKeywords},
		{"body too short", func(a *core.ContentArtifact) { a.Body = "too short" }, RuleWordCount},
		{"empty slug", func(a *core.ContentArtifact) { a.Slug = "" }, RuleSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := passingArtifact()
			tt.mutate(artifact)

			verdict := Evaluate(artifact)
			if verdict.CanPublish {
				t.Fatalf("expected blocked verdict, got %+v", verdict)
			}
			if verdict.FailCount != 1 {
				t.Errorf("expected exactly 1 failure, got %d", verdict.FailCount)
			}
			for _, c := range verdict.Checks {
				if c.ID == tt.rule && c.Status != StatusFail {
					t.Errorf("rule %s: got status %s, want fail", tt.rule, c.Status)
				}
			}
		})
	}
}

func TestFeaturedImageNeverFails(t *testing.T) {
	artifact := passingArtifact()
	artifact.FeaturedImage = ""

	verdict := Evaluate(artifact)
	for _, c := range verdict.Checks {
		if c.ID == RuleFeaturedImage {
			if c.Status != StatusWarn {
				t.Errorf("missing image should warn, got %s", c.Status)
			}
			return
		}
	}
	t.Error("featured image check missing from verdict")
}

func TestMetaDescriptionBands(t *testing.T) {
	tests := []struct {
		length int
		want   RuleStatus
	}{
		{0, StatusFail},
		{80, StatusWarn},
		{120, StatusPass},
		{160, StatusPass},
		{200, StatusWarn},
	}

	for _, tt := range tests {
		artifact := passingArtifact()
		artifact.MetaDescription = strings.Repeat("a", tt.length)

		verdict := Evaluate(artifact)
		for _, c := range verdict.Checks {
			if c.ID == RuleMetaDescription && c.Status != tt.want {
				t.Errorf("length %d: got %s, want %s", tt.length, c.Status, tt.want)
			}
		}
	}
}

func TestMetaDescriptionCountsRunesNotBytes(t *testing.T) {
	artifact := passingArtifact()
	// 140 accented characters: in-band by character count, 280 bytes.
	artifact.MetaDescription = strings.Repeat("é", 140)

	verdict := Evaluate(artifact)
	for _, c := range verdict.Checks {
		if c.ID == RuleMetaDescription && c.Status != StatusPass {
			t.Errorf("140-char accented description got %s, want pass", c.Status)
		}
	}
}

func TestSlugCountsRunesNotBytes(t *testing.T) {
	artifact := passingArtifact()
	// 40 accented characters: within the 3-60 band by character count.
	artifact.Slug = strings.Repeat("é", 40)

	verdict := Evaluate(artifact)
	for _, c := range verdict.Checks {
		if c.ID == RuleSlug && c.Status != StatusPass {
			t.Errorf("40-char accented slug got %s, want pass", c.Status)
		}
	}
}

func TestEvaluateWithThresholds(t *testing.T) {
	artifact := passingArtifact()
	artifact.SEOScore = 85

	strict := DefaultThresholds()
	strict.ScorePass = 90
	strict.ScoreWarn = 86

	verdict := EvaluateWithThresholds(artifact, strict)
	if verdict.CanPublish {
		t.Error("score 85 should fail a 86 floor")
	}
}

func TestCountsSumToChecks(t *testing.T) {
	artifact := passingArtifact()
	artifact.SEOScore = 65
	artifact.Slug = ""

	verdict := Evaluate(artifact)
	total := verdict.PassCount + verdict.WarnCount + verdict.FailCount
	if total != len(verdict.Checks) {
		t.Errorf("counts %d do not cover %d checks", total, len(verdict.Checks))
	}
}
