package fs

import "os"

// Filesystem is the set of operations the tools need from a storage backend.
type Filesystem interface {
	// Create creates or truncates the named file.
	Create(name string) (File, error)

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// ReadFile reads the whole named file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(filename string, data []byte, perm os.FileMode) error

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// Exists reports whether the named path exists.
	Exists(path string) (bool, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error

	// Remove removes the named file or empty directory.
	Remove(name string) error
}
