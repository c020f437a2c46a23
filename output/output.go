// Package output names and saves tool results.
package output

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/fs"
)

// Suffixes appended to the base name of a tool's output.
const (
	SuffixConverted = "-converted"
	SuffixRounded   = "-rounded"
	SuffixStripped  = "-stripped"
)

// DefaultBaseName is used when a file name has nothing left after removing
// its extension.
const DefaultBaseName = "output"

var extPattern = regexp.MustCompile(`\.[^/.]+$`)

// TrimExt removes the last extension of name.
func TrimExt(name string) string {
	return extPattern.ReplaceAllString(name, "")
}

// BaseName derives the output base name from an input file name: the
// directory and extension are removed and suffix is appended unless the name
// already ends with it, compared case-insensitively.
func BaseName(filename, suffix string) string {
	base := TrimExt(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if base == "" || base == "." || base == "/" {
		base = DefaultBaseName
	}
	if suffix != "" && !strings.HasSuffix(strings.ToLower(base), strings.ToLower(suffix)) {
		base += suffix
	}
	return base
}

// FileName joins a base name and the extension of mime. fallbackExt is used
// when the format table has no extension for mime.
func FileName(base, mime, fallbackExt string) string {
	base = TrimExt(base)
	if base == "" {
		base = DefaultBaseName
	}
	ext := formats.ExtensionFor(mime)
	if ext == "" {
		ext = strings.TrimPrefix(fallbackExt, ".")
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Option configures a Saver.
type Option func(*Saver)

// WithOverwrite allows Save to replace existing files.
func WithOverwrite(overwrite bool) Option {
	return func(s *Saver) {
		s.overwrite = overwrite
	}
}

// WithLogger sets the logger used to report saved files.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = logger
	}
}

// Saver writes results to a filesystem.
type Saver struct {
	fs        fs.Filesystem
	overwrite bool
	logger    *slog.Logger
}

// NewSaver creates a Saver writing to fsys.
func NewSaver(fsys fs.Filesystem, opts ...Option) *Saver {
	s := &Saver{fs: fsys}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes data to dir/name and returns the path written. The directory
// is created if needed. The file is written under a temporary name and
// renamed into place, so a reader never sees a partial image.
func (s *Saver) Save(dir, name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", errors.Newf(errors.CodeInvalidInput, "invalid output file name %q", name).WithOp("output.Save")
	}
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, name)

	exists, err := s.fs.Exists(target)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("failed to check %s", target))
	}
	if exists && !s.overwrite {
		return "", errors.Newf(errors.CodeAlreadyExists, "%s already exists", target).
			WithOp("output.Save").
			WithContext("path", target)
	}

	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("failed to create %s", dir))
		}
	}

	tmp := filepath.Join(dir, "."+name+".tmp-"+uuid.NewString())
	if err := s.write(tmp, data); err != nil {
		_ = s.fs.Remove(tmp)
		return "", errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("failed to write %s", tmp))
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return "", errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("failed to move output to %s", target))
	}

	if s.logger != nil {
		s.logger.Info("saved output", "path", target, "size", len(data), "replaced", exists)
	}
	return target, nil
}

func (s *Saver) write(name string, data []byte) error {
	f, err := s.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
