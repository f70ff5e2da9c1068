package entry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultPageSize is the number of children a directory reader returns per page.
const DefaultPageSize = 100

// LocalEntry is an entry on the local filesystem.
type LocalEntry struct {
	path     string
	info     os.FileInfo
	pageSize int
}

// NewLocalEntry stats path (without following a final symlink) and wraps it.
// A pageSize <= 0 uses DefaultPageSize.
func NewLocalEntry(path string, pageSize int) (*LocalEntry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return newLocalEntry(path, info, pageSize), nil
}

func newLocalEntry(path string, info os.FileInfo, pageSize int) *LocalEntry {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &LocalEntry{path: path, info: info, pageSize: pageSize}
}

// CreateReader returns a paged reader over the directory's children.
func (e *LocalEntry) CreateReader() DirectoryReader {
	return &localReader{path: e.path, pageSize: e.pageSize}
}

// File materializes the entry with a fresh stat so the timestamp is current.
func (e *LocalEntry) File(_ context.Context) (FileObject, error) {
	info, err := os.Stat(e.path)
	if err != nil {
		return FileObject{}, fmt.Errorf("failed to stat %s: %w", e.path, err)
	}

	return FileObject{
		Name:         info.Name(),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}, nil
}

// IsDirectory reports whether the entry is a directory.
func (e *LocalEntry) IsDirectory() bool {
	return e.info.IsDir()
}

// IsFile reports whether the entry is a regular file.
func (e *LocalEntry) IsFile() bool {
	return e.info.Mode().IsRegular()
}

// Name returns the base name of the entry.
func (e *LocalEntry) Name() string {
	return e.info.Name()
}

// Path returns the full path of the entry.
func (e *LocalEntry) Path() string {
	return e.path
}

// localReader reads a directory in batches with os.File.ReadDir.
type localReader struct {
	path     string
	pageSize int
	dir      *os.File
	done     bool
}

// Close releases the open directory handle, if any.
func (r *localReader) Close() error {
	if r.dir == nil {
		return nil
	}

	err := r.dir.Close()
	r.dir = nil

	return err
}

// ReadEntries returns the next batch of children; an empty page means done.
func (r *localReader) ReadEntries(ctx context.Context) ([]Entry, error) {
	if r.done {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.dir == nil {
		dir, err := os.Open(r.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open directory %s: %w", r.path, err)
		}
		r.dir = dir
	}

	dirEntries, err := r.dir.ReadDir(r.pageSize)
	if errors.Is(err, io.EOF) {
		r.done = true
		_ = r.Close()

		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", r.path, err)
	}

	page := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		childPath := filepath.Join(r.path, de.Name())

		info, err := de.Info()
		if err != nil {
			// Vanished or unreadable between listing and stat.
			page = append(page, NewUnclassified(de.Name()))
			continue
		}

		page = append(page, newLocalEntry(childPath, info, r.pageSize))
	}

	return page, nil
}
