package gallery

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func load(l FileLoader, path string) error {
	ch := make(chan error, 1)
	l.Load(path, func(err error) { ch <- err })
	return <-ch
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ok.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.webp"), []byte("RIFF....WEBP"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not a jpeg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.png"), nil, 0o644))

	l := FileLoader{Root: dir}

	assert.NoError(t, load(l, "ok.png"))
	assert.NoError(t, load(l, "photo.webp"))
	assert.Error(t, load(l, "broken.jpg"))
	assert.Error(t, load(l, "empty.png"))
	assert.Error(t, load(l, "missing.gif"))
}
