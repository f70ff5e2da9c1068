package walker

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeFilter decides which paths below a dropped directory are skipped.
type ExcludeFilter struct {
	patterns []string
}

// NewExcludeFilter creates a filter from glob patterns ("**/.git", "*.tmp").
// Matching is case-insensitive. Invalid patterns never match.
func NewExcludeFilter(patterns ...string) *ExcludeFilter {
	normalized := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		normalized = append(normalized, strings.ToLower(p))
	}

	return &ExcludeFilter{patterns: normalized}
}

// Excludes returns true if relativePath matches any pattern.
func (f *ExcludeFilter) Excludes(relativePath string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}

	normalizedPath := strings.ToLower(relativePath)

	for _, pattern := range f.patterns {
		matched, err := doublestar.Match(pattern, normalizedPath)
		if err == nil && matched {
			return true
		}
	}

	return false
}

// Patterns returns the normalized patterns.
func (f *ExcludeFilter) Patterns() []string {
	if f == nil {
		return nil
	}

	return append([]string(nil), f.patterns...)
}
