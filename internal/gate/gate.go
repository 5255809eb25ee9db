// Package gate evaluates a fixed rule set against a content artifact and
// produces a publish verdict. Verdicts are recomputed on demand and never
// persisted; the stored scores on the artifact are cached inputs only.
package gate

import (
	"fmt"
	"unicode/utf8"

	"pressroom/internal/core"
)

// RuleStatus is the outcome of a single rule.
type RuleStatus string

const (
	StatusPass RuleStatus = "pass"
	StatusWarn RuleStatus = "warn"
	StatusFail RuleStatus = "fail"
)

// Rule identifiers, stable for dashboard display.
const (
	RuleSEOScore        = "seo_score"
	RuleSemanticScore   = "semantic_score"
	RuleMetaDescription = "meta_description"
	RuleFeaturedImage   = "featured_image"
	RuleKeywords        = "keywords"
	RuleWordCount       = "word_count"
	RuleSlug            = "slug"
)

// Check is the result of one rule evaluation.
type Check struct {
	ID      string     `json:"id"`
	Status  RuleStatus `json:"status"`
	Message string     `json:"message"`
}

// Verdict aggregates every rule outcome. CanPublish is true iff no rule
// failed; warnings allow publish but must be surfaced to the approver.
type Verdict struct {
	Checks     []Check `json:"checks"`
	PassCount  int     `json:"pass_count"`
	WarnCount  int     `json:"warn_count"`
	FailCount  int     `json:"fail_count"`
	CanPublish bool    `json:"can_publish"`
}

// Thresholds define the rule boundaries. Defaults mirror the editorial
// policy; they are injectable for tests and future per-tenant tuning.
type Thresholds struct {
	ScorePass          int // primary and secondary score pass floor
	ScoreWarn          int // warn floor; below is fail
	MetaDescriptionMin int
	MetaDescriptionMax int
	KeywordsPass       int
	WordCountPass      int
	WordCountWarn      int
	SlugMin            int
	SlugMax            int
}

// DefaultThresholds returns the editorial-policy defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ScorePass:          80,
		ScoreWarn:          60,
		MetaDescriptionMin: 120,
		MetaDescriptionMax: 160,
		KeywordsPass:       3,
		WordCountPass:      300,
		WordCountWarn:      150,
		SlugMin:            3,
		SlugMax:            60,
	}
}

// Evaluate runs every rule against the artifact. Rules are independent;
// there is no short-circuiting.
func Evaluate(artifact *core.ContentArtifact) Verdict {
	return EvaluateWithThresholds(artifact, DefaultThresholds())
}

// EvaluateWithThresholds runs the rule set with custom boundaries.
func EvaluateWithThresholds(artifact *core.ContentArtifact, t Thresholds) Verdict {
	checks := []Check{
		scoreCheck(RuleSEOScore, "SEO score", artifact.SEOScore, t),
		scoreCheck(RuleSemanticScore, "semantic score", artifact.SemanticScore, t),
		metaDescriptionCheck(artifact.MetaDescription, t),
		featuredImageCheck(artifact.FeaturedImage),
		keywordsCheck(len(artifact.Keywords), t),
		wordCountCheck(artifact.WordCount(), t),
		slugCheck(artifact.Slug, t),
	}

	verdict := Verdict{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case StatusPass:
			verdict.PassCount++
		case StatusWarn:
			verdict.WarnCount++
		case StatusFail:
			verdict.FailCount++
		}
	}
	verdict.CanPublish = verdict.FailCount == 0
	return verdict
}

func scoreCheck(id, label string, score int, t Thresholds) Check {
	switch {
	case score >= t.ScorePass:
		return Check{id, StatusPass, fmt.Sprintf("%s %d meets the %d threshold", label, score, t.ScorePass)}
	case score >= t.ScoreWarn:
		return Check{id, StatusWarn, fmt.Sprintf("%s %d is below the %d target", label, score, t.ScorePass)}
	default:
		return Check{id, StatusFail, fmt.Sprintf("%s %d is below the %d floor", label, score, t.ScoreWarn)}
	}
}

// Length rules count runes, not bytes: accented text in the non-English
// languages must not overcount against the band.
func metaDescriptionCheck(desc string, t Thresholds) Check {
	length := utf8.RuneCountInString(desc)
	switch {
	case length == 0:
		return Check{RuleMetaDescription, StatusFail, "meta description is empty"}
	case length >= t.MetaDescriptionMin && length <= t.MetaDescriptionMax:
		return Check{RuleMetaDescription, StatusPass, fmt.Sprintf("meta description is %d chars", length)}
	default:
		return Check{RuleMetaDescription, StatusWarn,
			fmt.Sprintf("meta description is %d chars, target %d-%d", length, t.MetaDescriptionMin, t.MetaDescriptionMax)}
	}
}

// featuredImageCheck never fails: a missing image degrades presentation
// but does not block publishing.
func featuredImageCheck(image string) Check {
	if image == "" {
		return Check{RuleFeaturedImage, StatusWarn, "no featured image set"}
	}
	return Check{RuleFeaturedImage, StatusPass, "featured image present"}
}

func keywordsCheck(count int, t Thresholds) Check {
	switch {
	case count >= t.KeywordsPass:
		return Check{RuleKeywords, StatusPass, fmt.Sprintf("%d keywords", count)}
	case count > 0:
		return Check{RuleKeywords, StatusWarn, fmt.Sprintf("only %d keywords, target %d", count, t.KeywordsPass)}
	default:
		return Check{RuleKeywords, StatusFail, "no keywords set"}
	}
}

func wordCountCheck(words int, t Thresholds) Check {
	switch {
	case words >= t.WordCountPass:
		return Check{RuleWordCount, StatusPass, fmt.Sprintf("%d words", words)}
	case words >= t.WordCountWarn:
		return Check{RuleWordCount, StatusWarn, fmt.Sprintf("%d words, target %d", words, t.WordCountPass)}
	default:
		return Check{RuleWordCount, StatusFail, fmt.Sprintf("%d words, minimum %d", words, t.WordCountWarn)}
	}
}

func slugCheck(s string, t Thresholds) Check {
	length := utf8.RuneCountInString(s)
	switch {
	case length == 0:
		return Check{RuleSlug, StatusFail, "slug is empty"}
	case length >= t.SlugMin && length <= t.SlugMax:
		return Check{RuleSlug, StatusPass, fmt.Sprintf("slug is %d chars", length)}
	default:
		return Check{RuleSlug, StatusWarn, fmt.Sprintf("slug is %d chars, target %d-%d", length, t.SlugMin, t.SlugMax)}
	}
}
