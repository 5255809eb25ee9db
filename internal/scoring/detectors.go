package scoring

import (
	"regexp"
	"strings"
	"unicode"
)

// statPattern matches quantitative/statistical language: percentages,
// currency, magnitudes, and multi-digit figures.
var statPattern = regexp.MustCompile(`\d+(\.\d+)?\s*%|\$\s?\d[\d,.]*|\d+(\.\d+)?\s*(percent|million|billion|thousand|mdd|millones)|\b\d{2,}\b`)

// sourcePattern matches attributed-source language.
var sourcePattern = regexp.MustCompile(`(?i)(according to|study|report|research|survey|data from|statistics|cited|source:|seg[uú]n|estudio|informe)`)

// copulaPattern matches assertion sentences built on a copula verb.
var copulaPattern = regexp.MustCompile(`(?i)\b(is|are|was|were|has|have|will|can|must|es|son|fue|fueron|tiene|tienen)\b`)

// DetectStatistics counts occurrences of quantitative language in text.
func DetectStatistics(text string) int {
	return len(statPattern.FindAllString(text, -1))
}

// DetectSources counts occurrences of attributed-source language in text.
func DetectSources(text string) int {
	return len(sourcePattern.FindAllString(text, -1))
}

// SplitSentences breaks text on terminal punctuation. Short fragments
// (under three words) are dropped so headings and list stubs do not skew
// the ratios.
func SplitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(strings.Fields(s)) >= 3 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// IsFactual reports whether a sentence reads as a factual assertion: it
// carries a number or a copula-verb assertion pattern.
func IsFactual(sentence string) bool {
	if strings.ContainsFunc(sentence, unicode.IsDigit) {
		return true
	}
	return copulaPattern.MatchString(sentence)
}

// IsQuotable reports whether a sentence works as a standalone takeaway:
// 10 to 25 words with a capitalized start.
func IsQuotable(sentence string) bool {
	words := strings.Fields(sentence)
	if len(words) < 10 || len(words) > 25 {
		return false
	}
	first := []rune(words[0])
	return len(first) > 0 && unicode.IsUpper(first[0])
}

// FactualRatio returns the share of factual sentences in [0, 1].
func FactualRatio(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	factual := 0
	for _, s := range sentences {
		if IsFactual(s) {
			factual++
		}
	}
	return float64(factual) / float64(len(sentences))
}

// CountQuotable returns the number of standalone quotable sentences.
func CountQuotable(sentences []string) int {
	n := 0
	for _, s := range sentences {
		if IsQuotable(s) {
			n++
		}
	}
	return n
}
