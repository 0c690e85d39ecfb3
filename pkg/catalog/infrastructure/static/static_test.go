package static

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogservice/pkg/catalog/domain/model"
)

func setup(t *testing.T) *Server {
	dir := t.TempDir()
	root := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "app.js"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("secret"), 0o644))

	server, err := NewServer(root)
	require.NoError(t, err)
	return server
}

func TestOpen(t *testing.T) {
	server := setup(t)

	tests := []struct {
		path        string
		body        string
		contentType string
	}{
		{"/static/style.css", "body{}", "text/css; charset=utf-8"},
		{"/static/js/app.js", "1", "application/javascript"},
		{"/static/notes.txt", "n", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			asset, err := server.Open(tt.path)

			require.NoError(t, err)
			assert.Equal(t, tt.body, string(asset.Body))
			assert.Equal(t, tt.contentType, asset.ContentType)
		})
	}
}

func TestOpenNotFound(t *testing.T) {
	server := setup(t)

	for _, p := range []string{
		"/static/missing.css",
		"/static/",
		"/static/js",
		"/static/../secret.txt",
		"/static/js/../../secret.txt",
		"/static/..",
		"/style.css",
		"/static/\x00.css",
	} {
		t.Run(p, func(t *testing.T) {
			asset, err := server.Open(p)

			assert.ErrorIs(t, err, model.ErrNotFound)
			assert.Empty(t, asset.Body)
		})
	}
}

func TestOpenSymlinks(t *testing.T) {
	server := setup(t)
	root := server.Root()
	require.NoError(t, os.Symlink(filepath.Join("..", "secret.txt"), filepath.Join(root, "leak.txt")))
	require.NoError(t, os.Symlink(filepath.Join(filepath.Dir(root), "secret.txt"), filepath.Join(root, "abs-leak.txt")))
	require.NoError(t, os.Symlink("style.css", filepath.Join(root, "alias.css")))

	t.Run("Fail on link escaping the root", func(t *testing.T) {
		for _, p := range []string{"/static/leak.txt", "/static/abs-leak.txt"} {
			asset, err := server.Open(p)

			assert.ErrorIs(t, err, model.ErrNotFound)
			assert.NotContains(t, string(asset.Body), "secret")
		}
	})

	t.Run("Success on link inside the root", func(t *testing.T) {
		asset, err := server.Open("/static/alias.css")

		require.NoError(t, err)
		assert.Equal(t, "body{}", string(asset.Body))
		assert.Equal(t, "text/css; charset=utf-8", asset.ContentType)
	})
}

func TestResolveStaysUnderRoot(t *testing.T) {
	server := setup(t)

	full, err := server.Resolve("/static/js/../style.css")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(server.Root(), "style.css"), full)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/css; charset=utf-8", ContentType("a/B.CSS"))
	assert.Equal(t, "application/javascript", ContentType("x.js"))
	assert.Equal(t, "text/plain", ContentType("README"))
}
