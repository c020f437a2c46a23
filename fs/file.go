// Package fs defines the filesystem abstraction imagetools reads images and
// configuration from and writes results to. The billy subpackage provides
// OS-backed and in-memory implementations.
package fs

import (
	"io"
	"io/fs"
)

// File represents an open file handle.
// Implementations should behave consistently with the standard library.
type File interface {
	io.ReadWriteCloser
	Name() string
	Stat() (fs.FileInfo, error)
}
