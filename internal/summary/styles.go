package summary

import "github.com/charmbracelet/lipgloss"

// Exported constants.
const (
	// DefaultPadding is the horizontal padding inside the summary box
	DefaultPadding = 2
	// LabelWidth aligns values in the summary rows
	LabelWidth = 20
)

// BoxStyle returns the style for the summary box.
func BoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(accentColorCode)).
		Padding(1, DefaultPadding)
}

// DimStyle returns the style for secondary text.
func DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(dimColorCode))
}

// ErrorStyle returns the style for failures.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(errorColorCode)).
		Bold(true)
}

// LabelStyle returns the style for row labels.
func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(highlightColorCode)).
		Bold(true).
		Width(LabelWidth)
}

// SuccessStyle returns the style for completed work.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(successColorCode)).
		Bold(true)
}

// TitleStyle returns the style for the summary heading.
func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(primaryColorCode)).
		MarginBottom(1)
}

// WarningStyle returns the style for partial results.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(warningColorCode)).
		Bold(true)
}

// unexported constants.
const (
	accentColorCode    = "62"  // Blue
	dimColorCode       = "240" // Dark gray
	errorColorCode     = "196" // Red
	highlightColorCode = "86"  // Cyan
	primaryColorCode   = "205" // Pink/purple
	successColorCode   = "42"  // Green
	warningColorCode   = "226"
)
