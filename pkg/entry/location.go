package entry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme identifies where a location lives.
type Scheme string

// Exported constants.
const (
	SchemeLocal Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeSFTP  Scheme = "sftp"
)

// Location is a parsed local path, SFTP URL or S3 URL.
type Location struct {
	Scheme Scheme

	// Path is the local path, the remote SFTP path, or the S3 key.
	Path string

	// SFTP
	Host string
	Port int
	User string

	// S3
	Bucket string
}

// ParseLocation parses a location string.
// Examples:
//   - /local/path/to/files or file:///local/path
//   - sftp://joe@myserver.com/home/joe/data (relative to home)
//   - sftp://joe@myserver.com:2222//srv/backups (absolute)
//   - s3://bucket/prefix/ or s3://bucket/key.txt
func ParseLocation(loc string) (*Location, error) {
	switch {
	case strings.HasPrefix(loc, "sftp://"):
		return parseSFTPURL(loc)
	case strings.HasPrefix(loc, "s3://"):
		return parseS3URL(loc)
	case strings.HasPrefix(loc, "file://"):
		u, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL: %w", err)
		}
		return &Location{Scheme: SchemeLocal, Path: u.Path}, nil
	case strings.Contains(loc, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, loc)
	default:
		return &Location{Scheme: SchemeLocal, Path: loc}, nil
	}
}

// parseS3URL parses s3://bucket/key.
func parseS3URL(s3URL string) (*Location, error) {
	u, err := url.Parse(s3URL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URL: %w", err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("S3 URL must include a bucket (s3://bucket/prefix)") //nolint:err113,perfsprint // URL validation with format guidance
	}

	return &Location{
		Scheme: SchemeS3,
		Bucket: u.Host,
		Path:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// parseSFTPURL parses an SFTP URL into its components.
func parseSFTPURL(sftpURL string) (*Location, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("SFTP URL must include username (sftp://user@host/path)") //nolint:err113,perfsprint // URL validation with format guidance
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("SFTP URL must include host") //nolint:err113,perfsprint // URL validation error
	}

	port := 22
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %w", err)
		}
		port = p
	}

	// sftp://user@host/path  → relative to home directory
	// sftp://user@host//path → absolute path /path
	// sftp://user@host       → home directory
	remotePath := u.Path
	switch {
	case remotePath == "" || remotePath == "/":
		remotePath = "."
	case strings.HasPrefix(remotePath, "//"):
		remotePath = remotePath[1:]
	default:
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return &Location{
		Scheme: SchemeSFTP,
		Host:   host,
		Port:   port,
		User:   u.User.Username(),
		Path:   remotePath,
	}, nil
}
