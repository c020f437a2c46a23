package billy

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parentfs "github.com/eliasnau/imagetools/fs"
)

func runFilesystemContract(t *testing.T, fs parentfs.Filesystem, root string) {
	t.Helper()

	t.Run("MkdirAll and Stat", func(t *testing.T) {
		require.NoError(t, fs.MkdirAll(filepath.Join(root, "out/rounded"), 0o755))
		info, err := fs.Stat(filepath.Join(root, "out"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("WriteFile and ReadFile", func(t *testing.T) {
		p := filepath.Join(root, "photo.jpg")
		require.NoError(t, fs.WriteFile(p, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0o644))

		got, err := fs.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, got)
	})

	t.Run("Create Open and Read", func(t *testing.T) {
		p := filepath.Join(root, "stream.png")
		f, err := fs.Create(p)
		require.NoError(t, err)
		_, err = f.Write([]byte("pixels"))
		require.NoError(t, err)
		require.NoError(t, f.Close())

		r, err := fs.Open(p)
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "pixels", string(data))

		info, err := r.Stat()
		require.NoError(t, err)
		assert.Equal(t, int64(6), info.Size())
	})

	t.Run("Exists", func(t *testing.T) {
		p := filepath.Join(root, "exists.gif")
		ok, err := fs.Exists(p)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, fs.WriteFile(p, []byte("GIF89a"), 0o644))
		ok, err = fs.Exists(p)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Rename and Remove", func(t *testing.T) {
		src := filepath.Join(root, "tmp-output")
		dst := filepath.Join(root, "final.png")
		require.NoError(t, fs.WriteFile(src, []byte("x"), 0o644))
		require.NoError(t, fs.Rename(src, dst))

		ok, err := fs.Exists(src)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, fs.Remove(dst))
		ok, err = fs.Exists(dst)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Open missing file", func(t *testing.T) {
		_, err := fs.Open(filepath.Join(root, "missing.webp"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billy: open")
	})
}

func TestInMemoryFS(t *testing.T) {
	runFilesystemContract(t, NewInMemoryFS(), "/")
}

func TestOSFS(t *testing.T) {
	dir := t.TempDir()
	runFilesystemContract(t, NewOSFS(dir), "")
}
