package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644))
}

func TestCollectSQL_OrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_divisions.up.sql")
	writeFile(t, dir, "0001_init.up.sql")
	writeFile(t, dir, "0001_init.down.sql")
	writeFile(t, dir, "notes.txt")

	files, err := collectSQL(dir, ".up.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "0001_init.up.sql", files[0].Base)
	assert.Equal(t, "0002_divisions.up.sql", files[1].Base)
}

func TestCollectSQL_MissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "nope"), ".up.sql")
	require.NoError(t, err)
	assert.Empty(t, files)
}
