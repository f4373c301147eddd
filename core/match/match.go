package match

import (
	"os"
	"path/filepath"
	"strings"

	"c3dl/core/names"
)

// DefaultThreshold is the similarity ratio at or above which two titles are
// considered the same talk.
const DefaultThreshold = 0.85

// MediaExtensions are the release file extensions considered during matching.
var MediaExtensions = []string{".mp4", ".webm", ".mp3", ".opus"}

// Ratio computes a similarity measure in [0,1] between two strings.
//
// It is the longest-common-subsequence weighted ratio 2*M/T, where M is the
// number of matched characters and T the combined length of both strings.
// Two empty strings are identical and yield 1.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	return 2 * float64(lcsLength(ra, rb)) / float64(total)
}

// lcsLength returns the length of the longest common subsequence using a
// two-row dynamic program, so memory stays linear in the shorter input.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}

	return prev[len(b)]
}

// FindMatch looks for a file in dir whose normalized name is similar to the
// candidate title.
//
// Only regular files directly inside dir with one of the allowed extensions
// are considered. The first file at or above the threshold wins; enumeration
// order is filesystem-dependent and ties are not disambiguated. A missing
// directory yields no match. FindMatch has no side effects.
func FindMatch(title, dir string, extensions []string, threshold float64) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	candidate := names.Normalize(title)

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}

		if Ratio(candidate, names.Normalize(entry.Name())) >= threshold {
			return filepath.Join(dir, entry.Name()), true
		}
	}

	return "", false
}
