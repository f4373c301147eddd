package names

import (
	"regexp"
	"unicode/utf8"
)

// DefaultMaxBytes is the byte budget for a sanitized file name including its
// extension. Most filesystems cap names at 255 bytes; 240 leaves headroom
// for the transient ".part" suffix.
const DefaultMaxBytes = 240

var illegalChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// Sanitize creates a safe file name from a title using the default byte budget.
func Sanitize(title, extension string) string {
	return SanitizeWithLimit(title, extension, DefaultMaxBytes)
}

// SanitizeWithLimit creates a safe file name from a title.
//
// Characters that are illegal in filesystem names are replaced with an
// underscore. If the encoded name would exceed maxBytes (including the
// extension), it is truncated at a valid UTF-8 boundary and an ellipsis
// marker is appended before the extension. Distinct titles can in rare cases
// collapse to the same name; collisions are an accepted limitation.
func SanitizeWithLimit(title, extension string, maxBytes int) string {
	name := illegalChars.ReplaceAllString(title, "_")

	available := maxBytes - len(extension)
	if len(name) > available {
		cut := available - 3 // room for the "..." marker
		if cut < 0 {
			cut = 0
		}
		truncated := []byte(name)[:cut]
		// Drop trailing bytes of an incomplete multi-byte sequence.
		for len(truncated) > 0 && !utf8.Valid(truncated) {
			truncated = truncated[:len(truncated)-1]
		}
		name = string(truncated) + "..."
	}

	return name + extension
}
