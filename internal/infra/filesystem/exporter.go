// Package filesystem exports chronophotos to a local directory.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export writes data to dir/name, creating dir when missing, and returns the
// written path.
func (e *Exporter) Export(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
