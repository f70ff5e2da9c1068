// Package entry provides an abstraction over user-supplied file selections
// so that directory handles can be enumerated page by page without caring
// whether they live on the local disk, an SFTP server, an S3 bucket or in memory.
package entry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Exported variables.
var (
	ErrNotFound          = errors.New("entry not found")
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
)

// Entry is a reference to either a file or a directory in a user selection.
// IsFile and IsDirectory are mutually exclusive; both are false for handles
// that cannot be classified (permission denied, devices, dangling links).
type Entry interface {
	Name() string
	IsFile() bool
	IsDirectory() bool
}

// FileEntry is an Entry that can be materialized into a FileObject.
type FileEntry interface {
	Entry

	// File resolves the handle into a concrete file with metadata.
	File(ctx context.Context) (FileObject, error)
}

// DirectoryEntry is an Entry whose children can be enumerated.
type DirectoryEntry interface {
	Entry

	// CreateReader returns a fresh reader positioned at the first child.
	CreateReader() DirectoryReader
}

// DirectoryReader enumerates the children of a directory in pages.
//
// A single call is not guaranteed to return every child: callers must keep
// calling ReadEntries on the same reader until it returns an empty page.
// Readers holding resources also implement io.Closer.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Entry, error)
}

// FileObject is a materialized file with the metadata reports need.
type FileObject struct {
	Name         string
	LastModified time.Time
	Size         int64
}

// CloseReader closes r if it holds resources.
func CloseReader(r DirectoryReader) error {
	if closer, ok := r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Materialize materializes every file entry in entries, skipping entries that
// are not files. Used to build the flat file list of a selection. A file that
// fails to materialize is left out and its error is joined into the returned
// error; the remaining files are still materialized.
func Materialize(ctx context.Context, entries []Entry) ([]FileObject, error) {
	files := make([]FileObject, 0, len(entries))

	var errs []error

	for _, e := range entries {
		fe, ok := e.(FileEntry)
		if !ok || !e.IsFile() {
			continue
		}

		obj, err := fe.File(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("materialize %s: %w", e.Name(), err))
			continue
		}

		files = append(files, obj)
	}

	return files, errors.Join(errs...)
}

// unclassified is an Entry that is neither a file nor a directory.
type unclassified struct {
	name string
}

// NewUnclassified returns an entry that is neither a file nor a directory.
func NewUnclassified(name string) Entry {
	return unclassified{name: name}
}

func (u unclassified) IsDirectory() bool { return false }
func (u unclassified) IsFile() bool      { return false }
func (u unclassified) Name() string      { return u.name }
