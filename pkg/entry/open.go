package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Options configures how locations are opened.
type Options struct {
	PageSize int
	S3       S3Config
}

// Opener turns location strings into entries, reusing one SFTP connection per
// user@host:port and one S3 client for all s3:// locations.
// Close releases every connection it opened.
type Opener struct {
	opts      Options
	mu        sync.Mutex
	sftpConns map[string]*SFTPConnection
	s3Client  S3API
}

// NewOpener creates an Opener.
func NewOpener(opts Options) *Opener {
	return &Opener{
		opts:      opts,
		sftpConns: make(map[string]*SFTPConnection),
	}
}

// WithS3API makes the opener use api for s3:// locations instead of building a client.
func (o *Opener) WithS3API(api S3API) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.s3Client = api

	return o
}

// Close closes all SFTP connections.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for key, conn := range o.sftpConns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
		delete(o.sftpConns, key)
	}

	return errors.Join(errs...)
}

// Open resolves a single location into an entry.
func (o *Opener) Open(ctx context.Context, location string) (Entry, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeLocal:
		return NewLocalEntry(loc.Path, o.opts.PageSize)
	case SchemeSFTP:
		conn, err := o.sftpConnection(loc)
		if err != nil {
			return nil, err
		}
		return NewSFTPEntry(conn.Client(), loc.Path, o.opts.PageSize)
	case SchemeS3:
		api, err := o.s3API(ctx)
		if err != nil {
			return nil, err
		}
		return NewS3Entry(ctx, api, loc.Bucket, loc.Path, o.opts.PageSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, loc.Scheme)
	}
}

// OpenAll resolves every location. Locations that fail to resolve are
// returned as unclassified entries named after the location, alongside the
// joined errors, so a selection is never dropped wholesale.
func (o *Opener) OpenAll(ctx context.Context, locations []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(locations))

	var errs []error
	for _, location := range locations {
		e, err := o.Open(ctx, location)
		if err != nil {
			errs = append(errs, err)
			entries = append(entries, NewUnclassified(location))
			continue
		}
		entries = append(entries, e)
	}

	return entries, errors.Join(errs...)
}

// OpenSelection resolves locations into top-level entries and materializes
// the top-level files among them into the selection's flat file list. Open
// and materialization errors are joined; neither drops the rest of the selection.
func (o *Opener) OpenSelection(ctx context.Context, locations []string) ([]Entry, []FileObject, error) {
	items, openErr := o.OpenAll(ctx, locations)
	files, fileErr := Materialize(ctx, items)

	return items, files, errors.Join(openErr, fileErr)
}

// SplitLocations splits pasted text into one location per non-blank line.
// Paths and file:// URIs are both accepted by Open.
func SplitLocations(text string) []string {
	var locations []string

	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			locations = append(locations, line)
		}
	}

	return locations
}

func (o *Opener) s3API(ctx context.Context) (S3API, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s3Client != nil {
		return o.s3Client, nil
	}

	client, err := NewS3Client(ctx, o.opts.S3)
	if err != nil {
		return nil, err
	}
	o.s3Client = client

	return client, nil
}

func (o *Opener) sftpConnection(loc *Location) (*SFTPConnection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := fmt.Sprintf("%s@%s:%d", loc.User, loc.Host, loc.Port)
	if conn, ok := o.sftpConns[key]; ok {
		return conn, nil
	}

	conn, err := Connect(loc.Host, loc.Port, loc.User)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", key, err)
	}
	o.sftpConns[key] = conn

	return conn, nil
}
