//nolint:varnamelen // Test files use idiomatic short variable names
package reporter_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/reporter"
	"github.com/joe/dropsentry/internal/walker"
	"github.com/joe/dropsentry/pkg/entry"
)

type fakeDeliverer struct {
	mu   sync.Mutex
	msgs []report.Message
	err  error
}

func (d *fakeDeliverer) Deliver(_ context.Context, msg report.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return d.err
	}

	d.msgs = append(d.msgs, msg)

	return nil
}

func (d *fakeDeliverer) Messages() []report.Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]report.Message(nil), d.msgs...)
}

func fileLists(msgs []report.Message) [][]string {
	lists := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		lists = append(lists, m.FileUpload.Files)
	}

	return lists
}

func newAgent(d reporter.Deliverer) *reporter.Agent {
	return reporter.New(reporter.Config{
		Deliverer: d,
		Page:      report.Page{URL: "https://mail.example.com/compose%20new", Title: "Compose"},
	})
}

func TestOnDrop_FileAndDirectoryProduceTwoDeliveries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("report.pdf", time.UnixMilli(1000), 10)
	tree.AddFile("docs/x.txt", time.UnixMilli(2000), 10)

	deliverer := &fakeDeliverer{}
	result := newAgent(deliverer).OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("report.pdf"), tree.MustEntry("docs")},
		Files: []entry.FileObject{{Name: "report.pdf", LastModified: time.UnixMilli(1000)}},
	})

	msgs := deliverer.Messages()
	g.Expect(msgs).To(HaveLen(2))
	g.Expect(fileLists(msgs)).To(Equal([][]string{{"report.pdf|1000|"}, {"x.txt|2000|"}}))
	g.Expect(msgs[0].FileUpload.URL).To(Equal("https://mail.example.com/compose new"))

	g.Expect(result.Deliveries).To(Equal(2))
	g.Expect(result.Records()).To(Equal(2))
	g.Expect(result.DeliveryErrors).To(BeEmpty())
}

func TestOnDrop_OneDeliveryPerTopLevelDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(1)
	tree.AddFile("alpha/a1.txt", time.UnixMilli(1), 1)
	tree.AddFile("alpha/nested/a2.txt", time.UnixMilli(2), 1)
	tree.AddFile("beta/b1.txt", time.UnixMilli(3), 1)
	tree.AddDir("gamma/empty")

	deliverer := &fakeDeliverer{}
	result := newAgent(deliverer).OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("alpha"), tree.MustEntry("beta"), tree.MustEntry("gamma")},
	})

	g.Expect(fileLists(deliverer.Messages())).To(ConsistOf(
		ConsistOf("a1.txt|1|", "a2.txt|2|"),
		ConsistOf("b1.txt|3|"),
	))
	g.Expect(result.Directories).To(HaveLen(3))
	g.Expect(result.Deliveries).To(Equal(2))
}

func TestOnDrop_EmptyTreeDeliversNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddDir("docs/a/b/c")

	deliverer := &fakeDeliverer{}
	result := newAgent(deliverer).OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("docs")},
	})

	g.Expect(deliverer.Messages()).To(BeEmpty())
	g.Expect(result.Deliveries).To(BeZero())
	g.Expect(result.Directories).To(HaveLen(1))
	g.Expect(result.Directories[0].Outcome).To(Equal(walker.OutcomeComplete))
}

func TestOnDrop_NoUsableEntriesIsNoOp(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddDenied("locked")

	deliverer := &fakeDeliverer{}
	agent := newAgent(deliverer)

	g.Expect(agent.OnDrop(context.Background(), reporter.DropEvent{})).To(Equal(reporter.DropResult{}))
	agent.OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("locked"), nil},
		Files: []entry.FileObject{{Name: "locked", LastModified: time.UnixMilli(1)}},
	})

	g.Expect(deliverer.Messages()).To(BeEmpty())
}

func TestOnDrop_BranchFailureStillReportsSiblings(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("docs/ok/a.txt", time.UnixMilli(1), 1)
	tree.AddFile("docs/bad/b.txt", time.UnixMilli(2), 1)
	tree.FailRead("docs/bad", errors.New("input/output error"))

	deliverer := &fakeDeliverer{}
	result := newAgent(deliverer).OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("docs")},
	})

	g.Expect(fileLists(deliverer.Messages())).To(Equal([][]string{{"a.txt|1|"}}))
	g.Expect(result.Directories[0].Outcome).To(Equal(walker.OutcomePartial))
	g.Expect(result.Directories[0].Failures).To(HaveLen(1))
}

func TestOnDrop_DeliveryErrorsAreReturnedNotRaised(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("docs/a.txt", time.UnixMilli(1), 1)

	result := newAgent(&fakeDeliverer{err: report.ErrDispatcherClosed}).OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("docs")},
	})

	g.Expect(result.Deliveries).To(BeZero())
	g.Expect(result.DeliveryErrors).To(ConsistOf(MatchError(report.ErrDispatcherClosed)))
}

func TestOnDrop_ConcurrentEventsDoNotShareState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(1)
	tree.AddFile("one/a.txt", time.UnixMilli(1), 1)
	tree.AddFile("two/b.txt", time.UnixMilli(2), 1)
	tree.AddFile("shared.txt", time.UnixMilli(3), 1)

	agent := newAgent(&fakeDeliverer{})

	var (
		wg            sync.WaitGroup
		first, second reporter.DropResult
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		first = agent.OnDrop(context.Background(), reporter.DropEvent{
			Items: []entry.Entry{tree.MustEntry("one"), tree.MustEntry("shared.txt")},
			Files: []entry.FileObject{{Name: "shared.txt", LastModified: time.UnixMilli(3)}},
		})
	}()
	go func() {
		defer wg.Done()
		second = agent.OnDrop(context.Background(), reporter.DropEvent{
			Items: []entry.Entry{tree.MustEntry("two")},
			Files: []entry.FileObject{{Name: "shared.txt", LastModified: time.UnixMilli(3)}},
		})
	}()
	wg.Wait()

	g.Expect(first.CrossReferenced).To(Equal([]walker.Record{"shared.txt|3|"}))
	g.Expect(first.Directories[0].Records).To(Equal([]walker.Record{"a.txt|1|"}))
	g.Expect(second.CrossReferenced).To(BeEmpty())
	g.Expect(second.Directories[0].Records).To(Equal([]walker.Record{"b.txt|2|"}))
}

func TestOnPaste_RequiresEntryOnFirstItem(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("docs/a.txt", time.UnixMilli(1), 1)

	deliverer := &fakeDeliverer{}
	agent := newAgent(deliverer)

	agent.OnPaste(context.Background(), reporter.PasteEvent{Items: []entry.Entry{nil, tree.MustEntry("docs")}})
	g.Expect(deliverer.Messages()).To(BeEmpty())

	result := agent.OnPaste(context.Background(), reporter.PasteEvent{Items: []entry.Entry{tree.MustEntry("docs")}})
	g.Expect(fileLists(deliverer.Messages())).To(Equal([][]string{{"a.txt|1|"}}))
	g.Expect(result.Deliveries).To(Equal(1))
}

func TestOnChange_ReportsEverySelectedFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	deliverer := &fakeDeliverer{}
	agent := newAgent(deliverer)

	result := agent.OnChange(context.Background(), reporter.ChangeEvent{Files: []entry.FileObject{
		{Name: "a.txt", LastModified: time.UnixMilli(1)},
		{Name: "b.txt", LastModified: time.UnixMilli(2)},
	}})

	g.Expect(result.Delivered).To(BeTrue())
	g.Expect(result.Records).To(HaveLen(2))
	g.Expect(fileLists(deliverer.Messages())).To(Equal([][]string{{"a.txt|1|", "b.txt|2|"}}))

	empty := agent.OnChange(context.Background(), reporter.ChangeEvent{})
	g.Expect(empty.Delivered).To(BeFalse())
	g.Expect(deliverer.Messages()).To(HaveLen(1))
}

func TestOnBeforePrint_ReportsBodyAndTitle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	deliverer := &fakeDeliverer{}
	agent := reporter.New(reporter.Config{
		Deliverer: deliverer,
		Page:      report.Page{URL: "https://x.test/invoice"},
	})

	result := agent.OnBeforePrint(context.Background(), reporter.PrintEvent{
		Document: `<html><head><title>Invoice 42</title></head><body><h1>Total</h1></body></html>`,
	})

	g.Expect(result.Delivered).To(BeTrue())

	msgs := deliverer.Messages()
	g.Expect(msgs).To(HaveLen(1))
	g.Expect(*msgs[0].PrintOperation).To(Equal(report.PrintOperation{
		URL:          "https://x.test/invoice",
		TabTitle:     "Invoice 42",
		PrintContent: "<body><h1>Total</h1></body>",
	}))
}

func TestAgent_UndecodableURLFallsBackToRaw(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	deliverer := &fakeDeliverer{}
	agent := reporter.New(reporter.Config{
		Deliverer: deliverer,
		Page:      report.Page{URL: "https://x.test/100%"},
	})

	agent.OnChange(context.Background(), reporter.ChangeEvent{Files: []entry.FileObject{{Name: "a.txt"}}})

	g.Expect(deliverer.Messages()[0].FileUpload.URL).To(Equal("https://x.test/100%"))
}

func TestAgent_EndToEndThroughNativeChannel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := entry.NewMockTree(0)
	tree.AddFile("report.pdf", time.UnixMilli(1000), 10)
	tree.AddFile("docs/x.txt", time.UnixMilli(2000), 10)

	var buf bytes.Buffer
	dispatcher := report.NewDispatcher(report.NewNativeChannel(&buf), report.WithInterval(0))

	agent := reporter.New(reporter.Config{Deliverer: dispatcher, Page: report.Page{URL: "https://x.test/"}})
	agent.OnDrop(context.Background(), reporter.DropEvent{
		Items: []entry.Entry{tree.MustEntry("report.pdf"), tree.MustEntry("docs")},
		Files: []entry.FileObject{{Name: "report.pdf", LastModified: time.UnixMilli(1000)}},
	})

	g.Expect(dispatcher.Close(context.Background())).To(Succeed())

	var received [][]string
	for {
		msg, err := report.ReadNative(&buf)
		if errors.Is(err, io.EOF) {
			break
		}
		g.Expect(err).NotTo(HaveOccurred())
		received = append(received, msg.FileUpload.Files)
	}

	g.Expect(received).To(Equal([][]string{{"report.pdf|1000|"}, {"x.txt|2000|"}}))
}
