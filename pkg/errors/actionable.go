// Package errors enriches traversal and delivery failures with a category and
// actionable suggestions, so a best-effort run can explain what it skipped.
//
// Basic Usage:
//
//	enricher := errors.NewEnricher()
//	page, err := reader.ReadEntries(ctx)
//	if err != nil {
//	    enriched := enricher.Enrich(err, "/restricted/dir")
//	    fmt.Println(enriched.Error())
//	    fmt.Println(errors.FormatSuggestions(enriched))
//	}
//
// The enricher extracts a path from the error message when none is provided:
//
//	err := stderrors.New("open /home/user/dir: permission denied")
//	enriched := enricher.Enrich(err, "") // path is /home/user/dir
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryCancelled  ErrorCategory = "cancelled"
	CategoryNetwork    ErrorCategory = "network"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategoryRead       ErrorCategory = "read"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	Unwrap() error
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError wrapping cause.
func NewActionableError(
	cause error,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		cause:        cause,
		category:     category,
		suggestions:  suggestions,
		affectedPath: affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// CategoryOf returns the category of err, or CategoryUnknown when err is not actionable.
func CategoryOf(err error) ErrorCategory {
	var actionable ActionableError
	if errors.As(err, &actionable) {
		return actionable.Category()
	}

	return CategoryUnknown
}

// FormatSuggestions formats the suggestions of an ActionableError as a bulleted list.
// Returns empty string if the error is nil, not actionable, or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var actionable ActionableError
	if !errors.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

type actionableError struct {
	cause        error
	category     ErrorCategory
	suggestions  []string
	affectedPath string
}

func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

func (e *actionableError) Category() ErrorCategory {
	return e.category
}

func (e *actionableError) Error() string {
	return e.cause.Error()
}

func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

func (e *actionableError) Unwrap() error {
	return e.cause
}
