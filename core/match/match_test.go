package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRatio_Basics tests the boundary values of the similarity ratio.
func TestRatio_Basics(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("abc", "abc"))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("ab", ""))
}

// TestRatio_Formula tests the 2*M/T weighting against a hand-computed case.
func TestRatio_Formula(t *testing.T) {
	// LCS("abcd", "abed") = "abd" (3), T = 8.
	assert.InDelta(t, 0.75, Ratio("abcd", "abed"), 1e-9)
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

// TestFindMatch_ThresholdBoundary tests that a similarity exactly at the
// threshold matches while one just below does not.
func TestFindMatch_ThresholdBoundary(t *testing.T) {
	title := "abcdefghijklmnopqrst" // 20 characters

	dir := t.TempDir()
	// LCS 17 against the title: ratio = 2*17/40 = 0.85 exactly.
	writeFile(t, dir, "abcdefghijklmnopquvw.mp4")

	path, ok := FindMatch(title, dir, MediaExtensions, DefaultThreshold)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "abcdefghijklmnopquvw.mp4"), path)

	below := t.TempDir()
	// LCS 16: ratio = 2*16/40 = 0.80, just under the threshold.
	writeFile(t, below, "abcdefghijklmnopuvwx.mp4")

	_, ok = FindMatch(title, below, MediaExtensions, DefaultThreshold)
	assert.False(t, ok)
}

// TestFindMatch_MissingDirectory tests that a nonexistent directory yields
// no match instead of an error.
func TestFindMatch_MissingDirectory(t *testing.T) {
	_, ok := FindMatch("Opening Event", filepath.Join(t.TempDir(), "nope"), MediaExtensions, DefaultThreshold)
	assert.False(t, ok)
}

// TestFindMatch_FiltersExtensionsAndDirectories tests that only regular
// files with allowed extensions are considered.
func TestFindMatch_FiltersExtensionsAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Opening Event.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Opening Event.mp4"), 0755))

	_, ok := FindMatch("Opening Event", dir, MediaExtensions, DefaultThreshold)
	assert.False(t, ok)
}

// TestFindMatch_NormalizedComparison tests that tags, case and separators do
// not prevent a match.
func TestFindMatch_NormalizedComparison(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "opening_event (39c3).mp4")

	path, ok := FindMatch("Opening Event", dir, MediaExtensions, DefaultThreshold)
	assert.True(t, ok)
	assert.Contains(t, path, "opening_event")
}
