// Package scoring computes deterministic 0-100 quality scores for content
// drafts. The scores feed the quality gate; nothing here performs I/O.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signal-family weights for the primary score. They sum to 1.0.
const (
	weightCitation  = 0.35 // quantitative language, sources, factual sentences
	weightStructure = 0.30 // headings, lists, quotes, embedded media
	weightTakeaway  = 0.25 // quotable sentences and a usable lead
	weightMetadata  = 0.10 // structured-metadata completeness
)

// passThreshold is the sub-score below which a recommendation is emitted.
const passThreshold = 60

// Breakdown holds the per-family sub-scores of a primary score, each
// clamped to [0, 100] before weighting.
type Breakdown struct {
	Citation  int `json:"citation"`
	Structure int `json:"structure"`
	Takeaway  int `json:"takeaway"`
	Metadata  int `json:"metadata"`
}

// Result is the output of a scoring pass.
type Result struct {
	Score           int       `json:"score"` // 0-100, rounded
	Breakdown       Breakdown `json:"breakdown"`
	Recommendations []string  `json:"recommendations"`
}

// ScoreArticle computes the primary (structural/SEO-style) score for a
// rendered HTML draft plus its structured metadata. Deterministic: the same
// input always yields the same result.
func ScoreArticle(html string, structured map[string]any) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	var text string
	if err != nil {
		// Unparseable markup falls back to raw text so scoring stays total.
		text = html
	} else {
		text = doc.Text()
	}

	sentences := SplitSentences(text)

	citation := scoreCitation(text, sentences)
	structure := scoreStructure(doc)
	takeaway := scoreTakeaway(doc, sentences)
	metadata, metaRecs := ScoreStructuredMetadata(structured)

	result := Result{
		Breakdown: Breakdown{
			Citation:  citation,
			Structure: structure,
			Takeaway:  takeaway,
			Metadata:  metadata,
		},
	}

	weighted := float64(citation)*weightCitation +
		float64(structure)*weightStructure +
		float64(takeaway)*weightTakeaway +
		float64(metadata)*weightMetadata
	result.Score = int(math.Round(weighted))

	if citation < passThreshold {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Add statistics and attributed sources: citation signals scored %d/100", citation))
	}
	if structure < passThreshold {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Break the draft into sections with headings, lists and quotes: structure scored %d/100", structure))
	}
	if takeaway < passThreshold {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Add standalone takeaway sentences (10-25 words): takeaways scored %d/100", takeaway))
	}
	result.Recommendations = append(result.Recommendations, metaRecs...)

	return result
}

// scoreCitation blends quantitative language, source attribution and the
// factual-sentence ratio into one family sub-score.
func scoreCitation(text string, sentences []string) int {
	stats := clamp(DetectStatistics(text) * 10)
	sources := clamp(DetectSources(text) * 25)
	factual := clamp(int(math.Round(FactualRatio(sentences) * 100)))

	return clamp(int(math.Round(
		float64(stats)*0.4 + float64(sources)*0.3 + float64(factual)*0.3)))
}

// scoreStructure counts structural markers in the parsed document.
func scoreStructure(doc *goquery.Document) int {
	if doc == nil {
		return 0
	}

	headings := doc.Find("h2, h3").Length()
	lists := doc.Find("ul, ol").Length()
	quotes := doc.Find("blockquote").Length()
	media := doc.Find("img, iframe, video").Length()

	return clamp(int(math.Round(
		float64(clamp(headings*20))*0.4 +
			float64(clamp(lists*25))*0.3 +
			float64(clamp(quotes*34))*0.15 +
			float64(clamp(media*34))*0.15)))
}

// scoreTakeaway rewards quotable sentences and a lead paragraph that can
// stand alone as a summary.
func scoreTakeaway(doc *goquery.Document, sentences []string) int {
	quotable := clamp(CountQuotable(sentences) * 20)

	lead := 0
	if doc != nil {
		if first := doc.Find("p").First(); first.Length() > 0 {
			words := len(strings.Fields(first.Text()))
			switch {
			case words >= 40 && words <= 160:
				lead = 100
			case words > 0:
				lead = 50
			}
		}
	}

	return clamp(int(math.Round(float64(quotable)*0.6 + float64(lead)*0.4)))
}

// ScoreSemantic computes the secondary (semantic completeness /
// AI-readability) score from plain draft text.
func ScoreSemantic(text string) Result {
	sentences := SplitSentences(text)

	factual := clamp(int(math.Round(FactualRatio(sentences) * 100)))
	quotable := clamp(CountQuotable(sentences) * 20)

	// Sentence length band: direct, scannable prose averages 8-25 words.
	length := 0
	if len(sentences) > 0 {
		words := 0
		for _, s := range sentences {
			words += len(strings.Fields(s))
		}
		avg := float64(words) / float64(len(sentences))
		switch {
		case avg >= 8 && avg <= 25:
			length = 100
		case avg > 25 && avg <= 35:
			length = 60
		default:
			length = 30
		}
	}

	result := Result{
		Breakdown: Breakdown{
			Citation: factual,
			Takeaway: quotable,
		},
	}
	result.Score = clamp(int(math.Round(
		float64(factual)*0.4 + float64(length)*0.3 + float64(quotable)*0.3)))

	if factual < passThreshold {
		result.Recommendations = append(result.Recommendations,
			"Raise the share of factual, assertive sentences")
	}
	if length < passThreshold {
		result.Recommendations = append(result.Recommendations,
			"Shorten sentences toward an 8-25 word average")
	}

	return result
}

// clamp restricts a percentage-like value to [0, 100].
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
