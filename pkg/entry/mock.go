package entry

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockTree is an in-memory file tree for testing.
// Paths use forward slashes and are relative to the tree root ("docs/x.txt").
type MockTree struct {
	mu        sync.RWMutex
	nodes     map[string]*mockNode
	pageSize  int
	readCalls map[string]int
}

// mockNode represents a file, directory or unclassified handle in the tree.
type mockNode struct {
	path     string
	modTime  time.Time
	size     int64
	isDir    bool
	denied   bool
	readErr  error
	fileErr  error
	children []string
}

// NewMockTree creates an empty tree whose readers return pageSize entries per
// page. A pageSize <= 0 returns each directory in a single page.
func NewMockTree(pageSize int) *MockTree {
	tree := &MockTree{
		nodes:     make(map[string]*mockNode),
		pageSize:  pageSize,
		readCalls: make(map[string]int),
	}
	tree.nodes[""] = &mockNode{path: "", isDir: true}

	return tree
}

// Helper methods for building trees

// AddDir adds a directory (and any missing parents).
func (t *MockTree) AddDir(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureDirLocked(clean(p))
}

// AddFile adds a file with the given modification time and size.
func (t *MockTree) AddFile(p string, modTime time.Time, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = clean(p)
	t.ensureDirLocked(path.Dir(p))
	t.attachLocked(p, &mockNode{path: p, modTime: modTime, size: size})
}

// AddDenied adds a handle that is neither a file nor a directory.
func (t *MockTree) AddDenied(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = clean(p)
	t.ensureDirLocked(path.Dir(p))
	t.attachLocked(p, &mockNode{path: p, denied: true})
}

// FailFile makes materialization of the file at p fail with err.
func (t *MockTree) FailFile(p string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if node, ok := t.nodes[clean(p)]; ok {
		node.fileErr = err
	}
}

// FailRead makes every page read of the directory at p fail with err.
func (t *MockTree) FailRead(p string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if node, ok := t.nodes[clean(p)]; ok {
		node.readErr = err
	}
}

// Entry returns the entry at p.
func (t *MockTree) Entry(p string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.entryLocked(clean(p))
}

// MustEntry is Entry for test setup; it panics when p does not exist.
func (t *MockTree) MustEntry(p string) Entry {
	e, err := t.Entry(p)
	if err != nil {
		panic(err)
	}

	return e
}

// ReadCalls returns how many times ReadEntries was called for the directory at p.
func (t *MockTree) ReadCalls(p string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.readCalls[clean(p)]
}

func (t *MockTree) attachLocked(p string, node *mockNode) {
	if _, exists := t.nodes[p]; !exists {
		parent := t.nodes[parentOf(p)]
		parent.children = append(parent.children, p)
	}

	t.nodes[p] = node
}

func (t *MockTree) ensureDirLocked(p string) {
	if p == "" || p == "." {
		return
	}

	if _, exists := t.nodes[p]; exists {
		return
	}

	t.ensureDirLocked(path.Dir(p))
	t.attachLocked(p, &mockNode{path: p, isDir: true})
}

func (t *MockTree) entryLocked(p string) (Entry, error) {
	node, ok := t.nodes[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}

	if node.denied {
		return NewUnclassified(path.Base(p)), nil
	}

	return &mockEntry{tree: t, path: p}, nil
}

// mockEntry is an Entry backed by a MockTree node.
type mockEntry struct {
	tree *MockTree
	path string
}

func (e *mockEntry) CreateReader() DirectoryReader {
	return &mockReader{tree: e.tree, path: e.path}
}

func (e *mockEntry) File(ctx context.Context) (FileObject, error) {
	if err := ctx.Err(); err != nil {
		return FileObject{}, err
	}

	e.tree.mu.RLock()
	defer e.tree.mu.RUnlock()

	node := e.tree.nodes[e.path]
	if node.fileErr != nil {
		return FileObject{}, node.fileErr
	}

	return FileObject{
		Name:         path.Base(e.path),
		LastModified: node.modTime,
		Size:         node.size,
	}, nil
}

func (e *mockEntry) IsDirectory() bool {
	e.tree.mu.RLock()
	defer e.tree.mu.RUnlock()

	return e.tree.nodes[e.path].isDir
}

func (e *mockEntry) IsFile() bool {
	return !e.IsDirectory()
}

func (e *mockEntry) Name() string {
	return path.Base(e.path)
}

// mockReader pages through a mock directory in sorted name order.
type mockReader struct {
	tree   *MockTree
	path   string
	offset int
}

func (r *mockReader) ReadEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.tree.mu.Lock()
	r.tree.readCalls[r.path]++
	r.tree.mu.Unlock()

	r.tree.mu.RLock()
	defer r.tree.mu.RUnlock()

	node := r.tree.nodes[r.path]
	if node.readErr != nil {
		return nil, node.readErr
	}

	children := append([]string(nil), node.children...)
	sort.Strings(children)

	if r.offset >= len(children) {
		return nil, nil
	}

	end := len(children)
	if r.tree.pageSize > 0 && r.offset+r.tree.pageSize < end {
		end = r.offset + r.tree.pageSize
	}

	page := make([]Entry, 0, end-r.offset)
	for _, child := range children[r.offset:end] {
		e, err := r.tree.entryLocked(child)
		if err != nil {
			return nil, err
		}
		page = append(page, e)
	}
	r.offset = end

	return page, nil
}

func clean(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

func parentOf(p string) string {
	parent := path.Dir(p)
	if parent == "." {
		return ""
	}
	return parent
}
