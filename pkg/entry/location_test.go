package entry_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/pkg/entry"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected entry.Location
	}{
		{"local path", "/home/joe/docs", entry.Location{Scheme: entry.SchemeLocal, Path: "/home/joe/docs"}},
		{"relative path", "docs", entry.Location{Scheme: entry.SchemeLocal, Path: "docs"}},
		{"file URL", "file:///tmp/x.txt", entry.Location{Scheme: entry.SchemeLocal, Path: "/tmp/x.txt"}},
		{
			"sftp relative", "sftp://joe@server.com/data",
			entry.Location{Scheme: entry.SchemeSFTP, User: "joe", Host: "server.com", Port: 22, Path: "data"},
		},
		{
			"sftp absolute with port", "sftp://joe@server.com:2222//srv/data",
			entry.Location{Scheme: entry.SchemeSFTP, User: "joe", Host: "server.com", Port: 2222, Path: "/srv/data"},
		},
		{
			"sftp home", "sftp://joe@server.com",
			entry.Location{Scheme: entry.SchemeSFTP, User: "joe", Host: "server.com", Port: 22, Path: "."},
		},
		{"s3 prefix", "s3://bucket/docs/", entry.Location{Scheme: entry.SchemeS3, Bucket: "bucket", Path: "docs/"}},
		{"s3 bucket root", "s3://bucket", entry.Location{Scheme: entry.SchemeS3, Bucket: "bucket", Path: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := entry.ParseLocation(tt.input)
			NewWithT(t).Expect(err).NotTo(HaveOccurred())
			NewWithT(t).Expect(*got).To(Equal(tt.expected))
		})
	}
}

func TestParseLocation_Errors(t *testing.T) {
	t.Parallel()

	tests := []string{
		"sftp://server.com/data",
		"sftp://joe@server.com:notaport/data",
		"s3:///key",
	}

	for _, input := range tests {
		if _, err := entry.ParseLocation(input); err == nil {
			t.Errorf("ParseLocation(%q) should fail", input)
		}
	}

	_, err := entry.ParseLocation("ftp://server.com/data")
	if !errors.Is(err, entry.ErrUnsupportedScheme) {
		t.Errorf("expected ErrUnsupportedScheme, got %v", err)
	}
}
