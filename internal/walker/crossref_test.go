package walker_test

import (
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/internal/walker"
	"github.com/joe/dropsentry/pkg/entry"
)

func TestCrossReference_ExactRecord(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	seen := walker.NewSeenSet()
	seen.Add("a.txt")

	records := walker.CrossReference([]entry.FileObject{{Name: "a.txt", LastModified: time.UnixMilli(100)}}, seen)

	g.Expect(records).To(Equal([]walker.Record{"a.txt|100|"}))
}

func TestCrossReference_OnlySeenNames(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	seen := walker.NewSeenSet()
	seen.Add("keep.txt")

	records := walker.CrossReference([]entry.FileObject{
		{Name: "keep.txt", LastModified: time.UnixMilli(1)},
		{Name: "other.txt", LastModified: time.UnixMilli(2)},
	}, seen)

	g.Expect(records).To(Equal([]walker.Record{"keep.txt|1|"}))
}

func TestCrossReference_SameNameMatchesEveryCopy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	seen := walker.NewSeenSet()
	seen.Add("dup.txt")

	records := walker.CrossReference([]entry.FileObject{
		{Name: "dup.txt", LastModified: time.UnixMilli(1)},
		{Name: "dup.txt", LastModified: time.UnixMilli(2)},
	}, seen)

	g.Expect(records).To(ConsistOf(walker.Record("dup.txt|1|"), walker.Record("dup.txt|2|")))
}

func TestCrossReference_EmptySeenSetYieldsNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	files := []entry.FileObject{{Name: "a.txt", LastModified: time.UnixMilli(100)}}

	g.Expect(walker.CrossReference(files, walker.NewSeenSet())).To(BeEmpty())
	g.Expect(walker.CrossReference(files, nil)).To(BeEmpty())
}

func TestInputRecords_OnePerFileWithMatchingPrefix(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	files := []entry.FileObject{
		{Name: "a.txt", LastModified: time.UnixMilli(1)},
		{Name: "b c.pdf", LastModified: time.UnixMilli(2)},
		{Name: "a.txt", LastModified: time.UnixMilli(3)},
	}

	records := walker.InputRecords(files)

	g.Expect(records).To(HaveLen(len(files)))
	for i, r := range records {
		g.Expect(strings.HasPrefix(string(r), files[i].Name+"|")).To(BeTrue())
	}
}

func TestInputRecords_EmptySelection(t *testing.T) {
	t.Parallel()

	if records := walker.InputRecords(nil); records != nil {
		t.Errorf("expected nil, got %v", records)
	}
}

func TestStrings(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(walker.Strings([]walker.Record{"a|1|", "b|2|"})).To(Equal([]string{"a|1|", "b|2|"}))
	g.Expect(walker.Strings(nil)).To(BeEmpty())
}
