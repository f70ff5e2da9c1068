package errors

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

// PatternMatcher maps an error to a category.
type PatternMatcher interface {
	Match(err error) ErrorCategory
}

// NewPatternMatcher creates a PatternMatcher that checks well-known sentinel
// errors first and falls back to message patterns for remote backends, whose
// errors rarely wrap the fs sentinels.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		order: []ErrorCategory{
			CategoryCancelled,
			CategoryPermission,
			CategoryPath,
			CategoryNetwork,
			CategoryRead,
		},
		patterns: map[ErrorCategory][]string{
			CategoryCancelled: {
				"context canceled",
				"deadline exceeded",
			},
			CategoryPermission: {
				"permission denied",
				"access denied",
				"accessdenied",
				"operation not permitted",
				"forbidden",
			},
			CategoryPath: {
				"no such file or directory",
				"file does not exist",
				"not found",
				"nosuchkey",
				"nosuchbucket",
			},
			CategoryNetwork: {
				"connection refused",
				"connection reset",
				"broken pipe",
				"i/o timeout",
				"no route to host",
				"ssh:",
			},
			CategoryRead: {
				"input/output error",
				"i/o error",
				"bad file descriptor",
				"not a directory",
			},
		},
	}
}

type patternMatcher struct {
	order    []ErrorCategory
	patterns map[ErrorCategory][]string
}

// Match returns the error category for err.
func (m *patternMatcher) Match(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCancelled
	case errors.Is(err, fs.ErrPermission):
		return CategoryPermission
	case errors.Is(err, fs.ErrNotExist):
		return CategoryPath
	}

	lowerMsg := strings.ToLower(err.Error())

	for _, category := range m.order {
		for _, pattern := range m.patterns[category] {
			if strings.Contains(lowerMsg, pattern) {
				return category
			}
		}
	}

	return CategoryUnknown
}
