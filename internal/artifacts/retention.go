package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Prune deletes the oldest cycle artifacts beyond keep. Filenames embed the
// cycle date, so lexical order is chronological order. keep <= 0 disables
// pruning. Returns the paths removed.
func (w *Writer) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read artifacts dir: %w", err)
	}

	var cycles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "cycle-") && strings.HasSuffix(name, ".json") {
			cycles = append(cycles, name)
		}
	}
	if len(cycles) <= keep {
		return nil, nil
	}
	sort.Strings(cycles)

	var removed []string
	for _, name := range cycles[:len(cycles)-keep] {
		path := filepath.Join(w.dir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove artifact %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
