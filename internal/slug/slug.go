// Package slug normalizes titles into URL identifiers.
package slug

import (
	"strings"
	"unicode"
)

// Normalize lowercases the title and collapses every run of
// non-alphanumeric characters into a single separator, with no leading or
// trailing separators. "A, B & C: Test!" becomes "a-b-c-test".
func Normalize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingSep := false
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}

	return b.String()
}
