package web

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublic_Embedded(t *testing.T) {
	fsys, err := Public("")
	require.NoError(t, err)

	for _, name := range []string{"index.html", "admin.html", "upload-login.html"} {
		_, err := fs.Stat(fsys, name)
		assert.NoError(t, err, name)
	}
}

func TestPublic_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "admin.html"), []byte("custom"), 0o644))

	fsys, err := Public(dir)
	require.NoError(t, err)
	b, err := fs.ReadFile(fsys, "admin.html")
	require.NoError(t, err)
	assert.Equal(t, "custom", string(b))
}

func TestPublic_MissingOverride(t *testing.T) {
	_, err := Public(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
