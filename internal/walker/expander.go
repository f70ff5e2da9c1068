package walker

import (
	"context"
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/joe/dropsentry/internal/events"
	"github.com/joe/dropsentry/pkg/entry"
	pkgerrors "github.com/joe/dropsentry/pkg/errors"
)

// Exported constants.
const (
	OpMaterialize = "materialize"
	OpReadEntries = "read-entries"

	OutcomeComplete Outcome = "complete"
	OutcomeFailed   Outcome = "failed"
	OutcomePartial  Outcome = "partial"
)

// Exported variables.
var (
	ErrNotMaterializable = errors.New("file entry cannot be materialized")
	ErrNotReadable       = errors.New("directory entry cannot be read")
)

// BranchError describes one failed read or materialization. The traversal
// records it and continues with the rest of the queue.
type BranchError struct {
	Op   string
	Path string
	Err  error
}

func (e BranchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e BranchError) Unwrap() error {
	return e.Err
}

// Expander expands a top-level directory into records.
// An Expander holds no per-traversal state and may be shared by goroutines.
type Expander struct {
	limits   Limits
	filter   *ExcludeFilter
	logger   *zap.Logger
	emitter  events.Emitter
	enricher pkgerrors.Enricher
}

// NewExpander creates an expander with no limits, no exclusions and a no-op logger.
func NewExpander(opts ...Option) *Expander {
	x := &Expander{
		logger:   zap.NewNop(),
		emitter:  events.Discard,
		enricher: pkgerrors.NewEnricher(),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Expand drains root and every directory discovered below it, in queue order,
// and returns the collected records together with any branch failures.
// Expand never fails as a whole: failures degrade the outcome instead.
func (x *Expander) Expand(ctx context.Context, root entry.DirectoryEntry) Result {
	t := &traversal{
		expander: x,
		root:     root.Name(),
		queue:    []pending{{dir: root, depth: 0}},
	}

	x.emitter.Emit(events.TraversalStarted{Root: t.root})

	t.run(ctx)

	result := t.result()

	x.logger.Debug("traversal complete",
		zap.String("root", result.Root),
		zap.Int("records", len(result.Records)),
		zap.Int("failures", len(result.Failures)),
		zap.Int("directories", result.Directories),
		zap.Bool("truncated", result.Truncated),
		zap.String("outcome", string(result.Outcome)),
	)

	x.emitter.Emit(events.TraversalComplete{
		Root:      result.Root,
		Records:   len(result.Records),
		Failures:  len(result.Failures),
		Truncated: result.Truncated,
		Outcome:   string(result.Outcome),
	})

	return result
}

// Limits bound a single traversal. Zero means unlimited.
type Limits struct {
	// MaxDepth is the deepest subdirectory level that is expanded; the dropped
	// directory itself is level 0.
	MaxDepth int
	// MaxRecords stops the traversal when a file arrives after this many
	// records were collected. The stop happens mid-directory: the current
	// directory is abandoned without being drained, so no DirectoryDrained
	// event is emitted for it, and queued directories are never read.
	MaxRecords int
}

// Option configures an Expander.
type Option func(*Expander)

// Outcome summarizes how a traversal ended.
type Outcome string

// Result is the typed outcome of expanding one top-level directory.
type Result struct {
	Root        string
	Records     []Record
	Failures    []BranchError
	Directories int
	Truncated   bool
	Outcome     Outcome
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(x *Expander) {
		if emitter != nil {
			x.emitter = emitter
		}
	}
}

// WithExcludes skips files and directories whose relative path matches a glob.
func WithExcludes(patterns ...string) Option {
	return func(x *Expander) {
		x.filter = NewExcludeFilter(patterns...)
	}
}

// WithLimits bounds traversal depth and record count.
func WithLimits(limits Limits) Option {
	return func(x *Expander) {
		x.limits = limits
	}
}

// WithLogger sets the logger used for branch failures.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Expander) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// unexported types.

type pending struct {
	dir   entry.DirectoryEntry
	path  string // relative to the dropped directory, "" for the root
	depth int
}

// traversal is the private state of one top-level directory: its pending
// directory queue, collected records and failures.
type traversal struct {
	expander    *Expander
	root        string
	queue       []pending
	records     []Record
	failures    []BranchError
	directories int
	truncated   bool
	stopped     bool
}

func (t *traversal) run(ctx context.Context) {
	for len(t.queue) > 0 && !t.stopped {
		next := t.queue[0]
		t.queue[0] = pending{}
		t.queue = t.queue[1:]

		t.drain(ctx, next)
	}
}

// drain reads pages from one directory until an empty page is returned.
// A failed read abandons this directory only.
func (t *traversal) drain(ctx context.Context, p pending) {
	reader := p.dir.CreateReader()

	defer func() {
		if err := entry.CloseReader(reader); err != nil {
			t.expander.logger.Debug("close reader", zap.String("path", t.display(p.path)), zap.Error(err))
		}
	}()

	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			t.fail(OpReadEntries, p.path, err)
			t.stopped = true

			return
		}

		page, err := reader.ReadEntries(ctx)
		if err != nil {
			t.fail(OpReadEntries, p.path, err)
			return
		}

		if len(page) == 0 {
			t.directories++
			t.expander.emitter.Emit(events.DirectoryDrained{Root: t.root, Path: t.display(p.path), Pages: pages})

			return
		}

		pages++

		for _, e := range page {
			if !t.visit(ctx, p, e) {
				t.stopped = true
				return
			}
		}
	}
}

// visit classifies one child. It returns false when the traversal must stop.
func (t *traversal) visit(ctx context.Context, parent pending, e entry.Entry) bool {
	if e == nil {
		return true
	}

	rel := path.Join(parent.path, e.Name())
	limits := t.expander.limits

	switch {
	case e.IsFile():
		if t.expander.filter.Excludes(rel) {
			return true
		}

		if limits.MaxRecords > 0 && len(t.records) >= limits.MaxRecords {
			t.truncated = true
			return false
		}

		fe, ok := e.(entry.FileEntry)
		if !ok {
			t.fail(OpMaterialize, rel, ErrNotMaterializable)
			return true
		}

		file, err := fe.File(ctx)
		if err != nil {
			t.fail(OpMaterialize, rel, err)
			return true
		}

		t.records = append(t.records, NewRecord(file))

	case e.IsDirectory():
		if t.expander.filter.Excludes(rel) {
			return true
		}

		depth := parent.depth + 1
		if limits.MaxDepth > 0 && depth > limits.MaxDepth {
			t.truncated = true
			return true
		}

		de, ok := e.(entry.DirectoryEntry)
		if !ok {
			t.fail(OpReadEntries, rel, ErrNotReadable)
			return true
		}

		t.queue = append(t.queue, pending{dir: de, path: rel, depth: depth})
	}

	return true
}

func (t *traversal) fail(op, rel string, err error) {
	display := t.display(rel)
	enriched := t.expander.enricher.Enrich(err, display)

	t.failures = append(t.failures, BranchError{Op: op, Path: display, Err: enriched})

	t.expander.logger.Warn("branch failed",
		zap.String("root", t.root),
		zap.String("path", display),
		zap.String("op", op),
		zap.String("category", string(pkgerrors.CategoryOf(enriched))),
		zap.Error(err),
	)

	t.expander.emitter.Emit(events.BranchFailed{Root: t.root, Path: display, Op: op, Err: enriched})
}

// display returns the path including the dropped directory's name.
func (t *traversal) display(rel string) string {
	if rel == "" {
		return t.root
	}

	return path.Join(t.root, rel)
}

func (t *traversal) result() Result {
	var outcome Outcome

	switch {
	case len(t.failures) == 0 && !t.truncated:
		outcome = OutcomeComplete
	case len(t.failures) > 0 && len(t.records) == 0:
		outcome = OutcomeFailed
	default:
		outcome = OutcomePartial
	}

	return Result{
		Root:        t.root,
		Records:     t.records,
		Failures:    t.failures,
		Directories: t.directories,
		Truncated:   t.truncated,
		Outcome:     outcome,
	}
}
