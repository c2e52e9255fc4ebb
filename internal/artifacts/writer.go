package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer persists per-cycle output snapshots as JSON for the rendering and
// storage collaborators that do not consume the database sink.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteCycle writes one cycle's full output record set. The filename keys
// on (date, run id) so repeated runs of the same date never clobber each
// other.
func (w *Writer) WriteCycle(date, runID string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("ensure artifacts dir: %w", err)
	}

	filename := fmt.Sprintf("cycle-%s-%s.json", date, runID)
	path := filepath.Join(w.dir, filename)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cycle artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write file %s: %w", path, err)
	}
	return path, nil
}
