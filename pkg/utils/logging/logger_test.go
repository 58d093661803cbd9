package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := InitLogger("test", dir)
	require.NoError(t, err)

	logger.Debug("cache miss")
	_ = logger.Sync() // stderr sync can fail on some platforms; the file core still flushes

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"cache miss"`)
}
