package entry

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/pkg/sftp"
)

// SFTPEntry is an entry on a remote SFTP server.
// Paths use forward slashes regardless of the local platform.
type SFTPEntry struct {
	client   *sftp.Client
	path     string
	info     os.FileInfo
	pageSize int
}

// NewSFTPEntry stats the remote path (without following a final symlink) and wraps it.
func NewSFTPEntry(client *sftp.Client, remotePath string, pageSize int) (*SFTPEntry, error) {
	info, err := client.Lstat(remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, remotePath)
		}

		return nil, fmt.Errorf("failed to stat remote %s: %w", remotePath, err)
	}

	return newSFTPEntry(client, remotePath, info, pageSize), nil
}

func newSFTPEntry(client *sftp.Client, remotePath string, info os.FileInfo, pageSize int) *SFTPEntry {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &SFTPEntry{client: client, path: remotePath, info: info, pageSize: pageSize}
}

// CreateReader returns a paged reader over the remote directory's children.
func (e *SFTPEntry) CreateReader() DirectoryReader {
	return &sftpReader{client: e.client, path: e.path, pageSize: e.pageSize}
}

// File materializes the entry with a fresh remote stat.
func (e *SFTPEntry) File(_ context.Context) (FileObject, error) {
	info, err := e.client.Stat(e.path)
	if err != nil {
		return FileObject{}, fmt.Errorf("failed to stat remote %s: %w", e.path, err)
	}

	return FileObject{
		Name:         path.Base(e.path),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}, nil
}

// IsDirectory reports whether the entry is a directory.
func (e *SFTPEntry) IsDirectory() bool {
	return e.info.IsDir()
}

// IsFile reports whether the entry is a regular file.
func (e *SFTPEntry) IsFile() bool {
	return e.info.Mode().IsRegular()
}

// Name returns the base name of the entry.
func (e *SFTPEntry) Name() string {
	return path.Base(e.path)
}

// sftpReader lists a remote directory once and hands it out in pages.
// The SFTP protocol pages READDIR internally; the client collects all of it.
type sftpReader struct {
	client   *sftp.Client
	path     string
	pageSize int
	listing  []os.FileInfo
	listed   bool
	offset   int
}

func (r *sftpReader) ReadEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.listed {
		listing, err := r.client.ReadDir(r.path)
		if err != nil {
			return nil, fmt.Errorf("error reading SFTP directory %s: %w", r.path, err)
		}
		r.listing = listing
		r.listed = true
	}

	if r.offset >= len(r.listing) {
		return nil, nil
	}

	end := min(r.offset+r.pageSize, len(r.listing))

	page := make([]Entry, 0, end-r.offset)
	for _, info := range r.listing[r.offset:end] {
		page = append(page, newSFTPEntry(r.client, path.Join(r.path, info.Name()), info, r.pageSize))
	}
	r.offset = end

	return page, nil
}
