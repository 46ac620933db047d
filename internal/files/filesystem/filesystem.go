package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider gives read access to input files.
type FileSystemProvider interface {
	// Open opens the file at path for streaming reads.
	// The caller must close the returned reader.
	Open(path string) (io.ReadCloser, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}
