package entry_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/pkg/entry"
)

// fakeS3 serves a flat key space with delimiter listing and continuation tokens.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string]time.Time
	listCalls int
	listErr   error
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mod, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}

	return &s3.HeadObjectOutput{LastModified: aws.Time(mod), ContentLength: aws.Int64(1)}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	prefix := aws.ToString(in.Prefix)

	// Build the sorted level listing: objects directly under prefix, then prefixes.
	prefixes := map[string]bool{}
	var items []string
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			p := prefix + rest[:i+1]
			if !prefixes[p] {
				prefixes[p] = true
				items = append(items, p)
			}
			continue
		}
		items = append(items, key)
	}
	sort.Strings(items)

	start := 0
	if in.ContinuationToken != nil {
		for i, item := range items {
			if item == *in.ContinuationToken {
				start = i
			}
		}
	}

	end := min(start+int(aws.ToInt32(in.MaxKeys)), len(items))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(items))}
	if end < len(items) {
		out.NextContinuationToken = aws.String(items[end])
	}

	for _, item := range items[start:end] {
		if prefixes[item] {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(item)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(item),
			LastModified: aws.Time(f.objects[item]),
			Size:         aws.Int64(1),
		})
	}

	return out, nil
}

func TestS3Entry_PagesThroughPrefix(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mod := time.UnixMilli(2000).UTC()
	api := &fakeS3{objects: map[string]time.Time{
		"docs/":            mod,
		"docs/a.txt":       mod,
		"docs/b.txt":       mod,
		"docs/c.txt":       mod,
		"docs/sub/x.txt":   mod,
		"other/ignore.txt": mod,
	}}

	root, err := entry.NewS3Entry(context.Background(), api, "bucket", "docs/", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(root.IsDirectory()).To(BeTrue())
	g.Expect(root.Name()).To(Equal("docs"))

	dir, ok := root.(entry.DirectoryEntry)
	g.Expect(ok).To(BeTrue())

	reader := dir.CreateReader()

	var files, dirs []string
	for {
		page, err := reader.ReadEntries(context.Background())
		g.Expect(err).NotTo(HaveOccurred())
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			if e.IsDirectory() {
				dirs = append(dirs, e.Name())
			} else {
				files = append(files, e.Name())
			}
		}
	}

	g.Expect(files).To(ConsistOf("a.txt", "b.txt", "c.txt"))
	g.Expect(dirs).To(ConsistOf("sub"))
	g.Expect(api.listCalls).To(BeNumerically(">=", 3))
}

func TestS3Entry_ObjectKeyIsFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mod := time.UnixMilli(1000).UTC()
	api := &fakeS3{objects: map[string]time.Time{"report.pdf": mod}}

	e, err := entry.NewS3Entry(context.Background(), api, "bucket", "report.pdf", 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(e.IsFile()).To(BeTrue())

	file, ok := e.(entry.FileEntry)
	g.Expect(ok).To(BeTrue())

	obj, err := file.File(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(obj.Name).To(Equal("report.pdf"))
	g.Expect(obj.LastModified.UnixMilli()).To(Equal(int64(1000)))
}

func TestS3Entry_MissingKeyBecomesPrefix(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	api := &fakeS3{objects: map[string]time.Time{"docs/a.txt": time.UnixMilli(1)}}

	e, err := entry.NewS3Entry(context.Background(), api, "bucket", "docs", 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(e.IsDirectory()).To(BeTrue())
	g.Expect(e.Name()).To(Equal("docs"))
}

func TestS3Entry_ListFailure(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	listErr := errors.New("access denied")
	api := &fakeS3{objects: map[string]time.Time{}, listErr: listErr}

	e, err := entry.NewS3Entry(context.Background(), api, "bucket", "", 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(e.Name()).To(Equal("bucket"))

	dir, _ := e.(entry.DirectoryEntry)
	_, err = dir.CreateReader().ReadEntries(context.Background())
	g.Expect(err).To(MatchError(ContainSubstring("access denied")))
}
