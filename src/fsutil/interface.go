package fsutil

import "io"

// FileStore is the file access the ingestion path needs
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// Open opens a file and returns a reader together with its size
	Open(path string) (io.ReadCloser, int64, error)

	// ListFiles returns the regular files below path. A file path is
	// returned as is.
	ListFiles(path string) ([]string, error)
}
