package walker_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/internal/walker"
	"github.com/joe/dropsentry/pkg/entry"
)

func TestSession_PartitionSplitsFilesAndDirectories(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("report.pdf", time.UnixMilli(1000), 1)
	tree.AddFile("docs/x.txt", time.UnixMilli(2000), 1)
	tree.AddDenied("secret")

	session := walker.NewSession()
	dirs := session.Partition([]entry.Entry{
		tree.MustEntry("report.pdf"),
		nil,
		tree.MustEntry("docs"),
		tree.MustEntry("secret"),
	})

	g.Expect(dirs).To(HaveLen(1))
	g.Expect(dirs[0].Name()).To(Equal("docs"))
	g.Expect(session.Seen().Contains("report.pdf")).To(BeTrue())
	g.Expect(session.Seen().Contains("secret")).To(BeFalse())
	g.Expect(session.Seen().Len()).To(Equal(1))
}

func TestSession_PartitionOfNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddDenied("a")
	tree.AddDenied("b")

	session := walker.NewSession()

	g.Expect(session.Partition(nil)).To(BeEmpty())
	g.Expect(session.Partition([]entry.Entry{tree.MustEntry("a"), tree.MustEntry("b")})).To(BeEmpty())
	g.Expect(session.Seen().Len()).To(BeZero())
}

func TestSession_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("a.txt", time.UnixMilli(1), 1)

	first := walker.NewSession()
	second := walker.NewSession()
	first.Partition([]entry.Entry{tree.MustEntry("a.txt")})

	g.Expect(first.Seen().Contains("a.txt")).To(BeTrue())
	g.Expect(second.Seen().Contains("a.txt")).To(BeFalse())
}
