package output

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/fs"
	"github.com/eliasnau/imagetools/fs/billy"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		filename, suffix string
		want             string
	}{
		{"photo.jpg", SuffixConverted, "photo-converted"},
		{"photo-converted.png", SuffixConverted, "photo-converted"},
		{"PHOTO-CONVERTED.png", SuffixConverted, "PHOTO-CONVERTED"},
		{"photo-converted.png", SuffixRounded, "photo-converted-rounded"},
		{"archive.tar.gz", SuffixRounded, "archive.tar-rounded"},
		{"/tmp/in/shot.heic", "", "shot"},
		{`C:\Users\me\shot.png`, SuffixRounded, "shot-rounded"},
		{"noext", SuffixConverted, "noext-converted"},
		{".png", SuffixConverted, "output-converted"},
		{"", "", "output"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseName(tt.filename, tt.suffix), tt.filename)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a.webp", FileName("a", formats.MIMEWebP, ""))
	assert.Equal(t, "a.jpg", FileName("a.old", formats.MIMEJPEG, ""))
	assert.Equal(t, "a.ico", FileName("a", formats.MIMEICO, ""))
	assert.Equal(t, "a.bin", FileName("a", "application/x-unknown", ".bin"))
	assert.Equal(t, "a", FileName("a", "application/x-unknown", ""))
	assert.Equal(t, "output.png", FileName("", formats.MIMEPNG, ""))
}

func TestSaverSave(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	var logs bytes.Buffer
	s := NewSaver(fsys, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	p, err := s.Save("out/nested", "a.png", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "out/nested/a.png", p)

	got, err := fsys.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
	assert.Contains(t, logs.String(), "saved output")

	entries, err := fsys.Raw().ReadDir("out/nested")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, "a.png", entries[0].Name())
}

func TestSaverRefusesOverwrite(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("a.png", []byte("old"), 0o644))

	_, err := NewSaver(fsys).Save("", "a.png", []byte("new"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyExists, errors.GetCode(err))

	got, err := fsys.ReadFile("a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got)

	_, err = NewSaver(fsys, WithOverwrite(true)).Save("", "a.png", []byte("new"))
	require.NoError(t, err)
	got, err = fsys.ReadFile("a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestSaverRejectsBadNames(t *testing.T) {
	s := NewSaver(billy.NewInMemoryFS())
	for _, name := range []string{"", "a/b.png", `a\b.png`} {
		_, err := s.Save("out", name, []byte("x"))
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), name)
	}
}

// fullDisk fails every write to a created file.
type fullDisk struct {
	*billy.FS
}

type fullFile struct {
	fs.File
}

func (f fullFile) Write([]byte) (int, error) {
	return 0, stderrors.New("no space left on device")
}

func (d fullDisk) Create(name string) (fs.File, error) {
	f, err := d.FS.Create(name)
	if err != nil {
		return nil, err
	}
	return fullFile{f}, nil
}

func TestSaverCleansUpFailedWrite(t *testing.T) {
	mem := billy.NewInMemoryFS()
	_, err := NewSaver(fullDisk{mem}).Save("out", "a.png", []byte("pixels"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))
	assert.Contains(t, err.Error(), "no space left on device")

	entries, err := mem.Raw().ReadDir("out")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
