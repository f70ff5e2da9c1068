// Package reporter handles user file-selection events: it walks the selected
// entries and hands the resulting reports to the collector.
package reporter

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/walker"
	"github.com/joe/dropsentry/pkg/entry"
)

// Deliverer accepts reports for the collector.
type Deliverer interface {
	Deliver(ctx context.Context, msg report.Message) error
}

// Config holds the collaborators of an Agent.
type Config struct {
	Expander  *walker.Expander
	Deliverer Deliverer
	Page      report.Page
	Logger    *zap.Logger
}

// Agent turns selection events into collector reports. Handlers never return
// errors: failures are logged and surfaced in the result values.
type Agent struct {
	expander  *walker.Expander
	deliverer Deliverer
	page      report.Page
	logger    *zap.Logger
}

// New creates an Agent. A nil Expander expands without limits.
func New(cfg Config) *Agent {
	agent := &Agent{
		expander:  cfg.Expander,
		deliverer: cfg.Deliverer,
		page:      cfg.Page,
		logger:    cfg.Logger,
	}

	if agent.expander == nil {
		agent.expander = walker.NewExpander()
	}

	if agent.logger == nil {
		agent.logger = zap.NewNop()
	}

	return agent
}

// DropEvent is a drag-and-drop of entries onto the page. Items are the
// top-level entry handles (nil when an item has none) and Files is the flat
// file list of the same event.
type DropEvent struct {
	Items []entry.Entry
	Files []entry.FileObject
}

// PasteEvent is a paste of clipboard entries. It carries the same data as a drop.
type PasteEvent struct {
	Items []entry.Entry
	Files []entry.FileObject
}

// ChangeEvent is a change of a file input's selection.
type ChangeEvent struct {
	Files []entry.FileObject
}

// PrintEvent is fired before the page is printed.
type PrintEvent struct {
	Document string
	Title    string
}

// DropResult describes what a drop or paste produced.
type DropResult struct {
	CrossReferenced []walker.Record
	Directories     []walker.Result
	Deliveries      int
	DeliveryErrors  []error
}

// Records returns the total number of records reported.
func (r DropResult) Records() int {
	total := len(r.CrossReferenced)
	for _, d := range r.Directories {
		total += len(d.Records)
	}

	return total
}

// ChangeResult describes what a file-input change produced.
type ChangeResult struct {
	Records   []walker.Record
	Delivered bool
	Err       error
}

// PrintResult describes the print-operation report.
type PrintResult struct {
	Delivered bool
	Err       error
}

// OnDrop partitions the dropped entries, reports the top-level files found in
// the flat list, then expands every top-level directory in its own goroutine.
// Each directory with at least one record yields exactly one report.
func (a *Agent) OnDrop(ctx context.Context, event DropEvent) DropResult {
	if len(event.Items) == 0 {
		return DropResult{}
	}

	a.logger.Debug("drop started", zap.Int("items", len(event.Items)), zap.Int("files", len(event.Files)))

	result := a.walkSelection(ctx, event.Items, event.Files)

	a.logger.Debug("drop completed",
		zap.Int("records", result.Records()),
		zap.Int("deliveries", result.Deliveries),
	)

	return result
}

// OnPaste behaves like OnDrop, but only when the first item has an entry handle.
func (a *Agent) OnPaste(ctx context.Context, event PasteEvent) DropResult {
	if len(event.Items) == 0 || event.Items[0] == nil {
		return DropResult{}
	}

	a.logger.Debug("paste started", zap.Int("items", len(event.Items)), zap.Int("files", len(event.Files)))

	return a.walkSelection(ctx, event.Items, event.Files)
}

// OnChange reports every file of a file-input selection in one report.
func (a *Agent) OnChange(ctx context.Context, event ChangeEvent) ChangeResult {
	records := walker.InputRecords(event.Files)
	if len(records) == 0 {
		return ChangeResult{}
	}

	err := a.deliver(ctx, report.NewFileUpload(a.pageURL(), walker.Strings(records)))

	return ChangeResult{Records: records, Delivered: err == nil, Err: err}
}

// OnBeforePrint reports the body markup of the page about to be printed.
func (a *Agent) OnBeforePrint(ctx context.Context, event PrintEvent) PrintResult {
	content, err := report.PrintContent(event.Document)
	if err != nil {
		a.logger.Warn("print content unavailable", zap.Error(err))
		return PrintResult{Err: err}
	}

	title := a.title(event)

	err = a.deliver(ctx, report.NewPrintOperation(a.pageURL(), title, content))

	return PrintResult{Delivered: err == nil, Err: err}
}

func (a *Agent) walkSelection(ctx context.Context, items []entry.Entry, files []entry.FileObject) DropResult {
	session := walker.NewSession()
	dirs := session.Partition(items)

	var (
		result DropResult
		mu     sync.Mutex
	)

	recordDelivery := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			result.DeliveryErrors = append(result.DeliveryErrors, err)
			return
		}

		result.Deliveries++
	}

	result.CrossReferenced = walker.CrossReference(files, session.Seen())
	if len(result.CrossReferenced) > 0 {
		recordDelivery(a.deliver(ctx, report.NewFileUpload(a.pageURL(), walker.Strings(result.CrossReferenced))))
	}

	if len(dirs) == 0 {
		return result
	}

	results := make([]walker.Result, len(dirs))

	var wg sync.WaitGroup

	for i, dir := range dirs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res := a.expander.Expand(ctx, dir)
			results[i] = res

			if len(res.Records) == 0 {
				a.logger.Debug("nothing to report", zap.String("root", res.Root), zap.String("outcome", string(res.Outcome)))
				return
			}

			recordDelivery(a.deliver(ctx, report.NewFileUpload(a.pageURL(), walker.Strings(res.Records))))
		}()
	}

	wg.Wait()

	result.Directories = results

	return result
}

func (a *Agent) deliver(ctx context.Context, msg report.Message) error {
	if a.deliverer == nil {
		return nil
	}

	if err := a.deliverer.Deliver(ctx, msg); err != nil {
		a.logger.Error("report not queued",
			zap.String("kind", msg.Kind()),
			zap.Int("records", msg.Records()),
			zap.Error(err),
		)

		return err
	}

	return nil
}

// pageURL returns the decoded page URL, or the raw URL when decoding fails.
func (a *Agent) pageURL() string {
	decoded, err := report.DecodeURL(a.page.URL)
	if err != nil {
		a.logger.Warn("returning non decoded url", zap.String("url", a.page.URL), zap.Error(err))
	}

	return decoded
}

func (a *Agent) title(event PrintEvent) string {
	if event.Title != "" {
		return event.Title
	}

	if a.page.Title != "" {
		return a.page.Title
	}

	title, err := report.DocumentTitle(event.Document)
	if err != nil {
		a.logger.Debug("document title unavailable", zap.Error(err))
	}

	return title
}
