package walker

import "github.com/joe/dropsentry/pkg/entry"

// SeenSet holds the names of top-level file entries of one event.
// It is filled by a single goroutine during partitioning and only read afterwards.
type SeenSet struct {
	names map[string]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{names: make(map[string]struct{})}
}

// Add records a name.
func (s *SeenSet) Add(name string) {
	s.names[name] = struct{}{}
}

// Contains reports whether name was added.
func (s *SeenSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of distinct names.
func (s *SeenSet) Len() int {
	return len(s.names)
}

// Session is the per-event state of a drop or paste. It is created when the
// event starts and discarded when its handler returns.
type Session struct {
	seen *SeenSet
}

// NewSession creates a session with an empty seen-set.
func NewSession() *Session {
	return &Session{seen: NewSeenSet()}
}

// Seen returns the session's seen-set.
func (s *Session) Seen() *SeenSet {
	return s.seen
}

// Partition classifies the top-level entries of an event. File names are added
// to the seen-set and directories are returned for expansion. Nil entries and
// entries that are neither files nor directories are skipped.
func (s *Session) Partition(entries []entry.Entry) []entry.DirectoryEntry {
	var dirs []entry.DirectoryEntry

	for _, e := range entries {
		if e == nil {
			continue
		}

		switch {
		case e.IsFile():
			s.seen.Add(e.Name())
		case e.IsDirectory():
			if dir, ok := e.(entry.DirectoryEntry); ok {
				dirs = append(dirs, dir)
			}
		}
	}

	return dirs
}
