package scoring

import "math"

// Structured-metadata field sets. Required fields carry 60% of the
// completeness sub-score, optional fields the remaining 40%.
var (
	requiredMetaFields = []string{"headline", "description", "author", "datePublished"}
	optionalMetaFields = []string{"image", "publisher", "dateModified", "keywords"}
)

// ScoreStructuredMetadata computes the completeness sub-score for a
// structured-metadata document (e.g. the JSON-LD block attached to a
// draft). A missing or empty document scores 0 and yields a
// recommendation.
func ScoreStructuredMetadata(meta map[string]any) (int, []string) {
	if len(meta) == 0 {
		return 0, []string{"Add structured metadata (headline, description, author, datePublished)"}
	}

	required := 0
	for _, field := range requiredMetaFields {
		if present(meta, field) {
			required++
		}
	}
	optional := 0
	for _, field := range optionalMetaFields {
		if present(meta, field) {
			optional++
		}
	}

	score := clamp(int(math.Round(
		float64(required)/float64(len(requiredMetaFields))*60 +
			float64(optional)/float64(len(optionalMetaFields))*40)))

	var recs []string
	if required < len(requiredMetaFields) {
		recs = append(recs, "Fill the required structured-metadata fields (headline, description, author, datePublished)")
	}
	return score, recs
}

func present(meta map[string]any, field string) bool {
	v, ok := meta[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}
