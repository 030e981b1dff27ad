package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := NewExporter(dir).Export(context.Background(), "chronophoto-1.jpg", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chronophoto-1.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestExportStripsDirectoryFromName(t *testing.T) {
	dir := t.TempDir()
	path, err := NewExporter(dir).Export(context.Background(), "../escape.jpg", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.jpg"), path)
}
