package names

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Event tags like (39c3) or (38C3), including surrounding whitespace.
	eventTag = regexp.MustCompile(`(?i)\s*\(\d{2}c\d\)\s*`)
	// Separator characters folded into a single space.
	separators = regexp.MustCompile(`[_\-–—]`)
	// Everything that is neither a word character, whitespace, nor within
	// the Latin Extended accented range (keeps umlauts and similar).
	disallowed = regexp.MustCompile(`[^\w\s\x{00C0}-\x{017F}]`)
)

// Normalize canonicalizes a file name or title for fuzzy comparison.
//
// It strips the extension and event tags, folds separators into spaces,
// removes punctuation while preserving accented characters, collapses
// whitespace and lowercases. Normalization is a fixed point after one pass.
func Normalize(raw string) string {
	name := strings.TrimSuffix(raw, filepath.Ext(raw))

	name = eventTag.ReplaceAllString(name, "")
	name = separators.ReplaceAllString(name, " ")
	name = disallowed.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")

	return strings.ToLower(name)
}
