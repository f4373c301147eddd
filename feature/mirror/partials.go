package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"c3dl/core/transfer"
)

// CountResumable counts in-flight transfer files under the given
// directories. Missing directories count as empty.
func CountResumable(dirs ...string) int {
	count := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), transfer.PartSuffix) {
				count++
			}
		}
	}
	return count
}

// CleanPartials deletes in-flight transfer files under the given directories
// and returns how many were removed.
func CleanPartials(dirs ...string) (int, error) {
	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), transfer.PartSuffix) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}
