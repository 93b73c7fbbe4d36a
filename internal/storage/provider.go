// Package storage provides root-confined access to the generated output tree.
package storage

import (
	"io"
	"io/fs"
	"time"
)

// FileInfo describes one regular file under the storage root.
type FileInfo struct {
	Path    string // slash-separated, relative to the root
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Provider is the interface for output file operations. Every path is
// relative to the provider root.
type Provider interface {
	// List returns every regular file under dir, in lexical order.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces path with content and sets its mode.
	Write(path string, content []byte, mode fs.FileMode) error
	// Create opens a streaming atomic writer for path.
	Create(path string, mode fs.FileMode) (AtomicWriter, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Remove deletes path and everything below it.
	Remove(path string) error
}

// AtomicWriter streams a file into place. Nothing is visible at the target
// path until Commit succeeds; Abort discards the data.
type AtomicWriter interface {
	io.Writer
	// Commit flushes, closes, and renames the file into place.
	Commit() error
	// Abort discards the temporary file. It is a no-op after Commit.
	Abort() error
}
