// internal/ui/styles.go
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Cyan    = lipgloss.Color("#00FFFF")
	Green   = lipgloss.Color("#00FF00")
	Yellow  = lipgloss.Color("#FFD700")
	Red     = lipgloss.Color("#FF6B6B")
	Magenta = lipgloss.Color("#FF00FF")
	SkyBlue = lipgloss.Color("#87CEEB")
	Dim     = lipgloss.Color("#555555")
	White   = lipgloss.Color("#FFFFFF")

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	UserStyle = lipgloss.NewStyle().
			Foreground(SkyBlue).
			Bold(true)

	ThinkingStyle = lipgloss.NewStyle().
			Foreground(Magenta).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	CitationStyle = lipgloss.NewStyle().
			Foreground(Green)

	PromptStyle = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// ProviderStyle returns the style for a provider ID.
func ProviderStyle(id string) lipgloss.Style {
	switch id {
	case "anthropic":
		return lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	case "openai":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "gemini":
		return lipgloss.NewStyle().Foreground(Magenta).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(White)
	}
}
