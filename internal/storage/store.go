// Package storage keeps uploaded files. The default backend is a single flat
// directory on local disk; an S3-compatible bucket can be used instead.
//
// Entries are addressed by bare basename. Reserved entries (the placeholder
// file and in-flight staging files) are invisible to every operation.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Placeholder is the reserved entry kept in an otherwise empty upload
// directory. It is never listed, served or archived.
const Placeholder = ".gitkeep"

// stagingPrefix marks entries that are still being written.
const stagingPrefix = ".incoming-"

var (
	// ErrNotFound is returned when an entry does not exist or is reserved.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidName is returned for names that are not a bare basename.
	ErrInvalidName = errors.New("storage: invalid name")
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is an opened stored file.
type File interface {
	io.ReadSeekCloser
}

// Store is the persistence layer for uploads.
type Store interface {
	// Ensure creates the backing location if it does not exist yet.
	Ensure(ctx context.Context) error
	// List returns all non-reserved entries in no particular order.
	List(ctx context.Context) ([]FileInfo, error)
	// Open resolves a single entry by exact basename.
	Open(ctx context.Context, name string) (File, FileInfo, error)
	// Put streams r into a new entry and returns the number of bytes written.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	// Remove deletes an entry.
	Remove(ctx context.Context, name string) error
}

// ValidateName reports ErrInvalidName unless name is already a clean
// basename: non-empty, not "." or "..", and equal to its own base.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}

// IsReserved reports whether name is hidden from listings and downloads.
func IsReserved(name string) bool {
	return name == Placeholder || strings.HasPrefix(name, stagingPrefix)
}

// SortNewestFirst orders files by modification time, most recent first.
func SortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
}
