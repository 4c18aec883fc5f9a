// Package results writes the flat key=value results file consumed by
// follow-up automation. One line per track, sorted by key for stable diffs.
package results

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Write replaces the file at path with one "key=value" line per entry.
func Write(path string, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(fmt.Sprintf("%s=%s\n", key, entries[key]))
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write results file %s: %w", path, err)
	}
	return nil
}
