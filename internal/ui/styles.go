package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - single teal accent.
const (
	ColorTeal     = "43"  // Primary accent
	ColorTealDim  = "30"  // Dimmed accent for inactive fields
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Borders, separators
	ColorRed      = "196" // Errors
)

// Styles holds the terminal styles used by the wizard and list output.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Focused lipgloss.Style
	Blurred lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Panel   lipgloss.Style
}

// DefaultStyles returns styled components for TTY output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorTeal)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Focused: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal)),
		Blurred: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTealDim)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Value:   lipgloss.NewStyle(),
		Focused: lipgloss.NewStyle(),
		Blurred: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Panel:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
