package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryCancelled:
		return g.generateCancelledSuggestions()
	case CategoryNetwork:
		return g.generateNetworkSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryRead:
		return g.generateReadSuggestions(affectedPath)
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateCancelledSuggestions() []string {
	return []string{
		"The run was stopped before the traversal finished; records collected so far were still reported",
		"Raise the timeout or narrow the selection if this happens on large trees",
	}
}

func (g *suggestionGenerator) generateNetworkSuggestions(path string) []string {
	suggestions := []string{
		"Check that the remote host is reachable and the SSH/S3 endpoint is correct",
		"Verify your credentials (SSH agent, ~/.ssh keys, AWS profile) are loaded",
	}

	if path != "" {
		suggestions = append(suggestions, "Retry the selection containing "+path+" once the connection is stable")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"The entry may have been moved or deleted while it was being enumerated",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path still exists: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read and list permissions for the selected directories",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	return suggestions
}

func (g *suggestionGenerator) generateReadSuggestions(path string) []string {
	suggestions := []string{
		"Verify the storage device is functioning correctly",
		"Try the selection again - this may be a transient I/O error",
	}

	if path != "" {
		suggestions = append(suggestions, "Confirm "+path+" is a readable directory")
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
