package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nexport/opsdash/internal/severity"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Severity styles
var (
	StyleSevCritical = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleSevHigh = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	StyleSevMedium = lipgloss.NewStyle().
			Foreground(lipgloss.Color("blue"))

	StyleSevOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green"))
)

// Banner styles
var (
	StyleBannerCritical = lipgloss.NewStyle().
				Background(lipgloss.Color("red")).
				Foreground(lipgloss.Color("15")).
				Bold(true).
				Padding(0, 1)

	StyleBannerClear = lipgloss.NewStyle().
				Background(lipgloss.Color("green")).
				Foreground(lipgloss.Color("0")).
				Padding(0, 1)

	StyleBannerPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	StyleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	StyleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red"))
)

// SeverityStyle maps a tier to its display style.
func SeverityStyle(tier severity.Tier) lipgloss.Style {
	switch tier {
	case severity.TierCritical:
		return StyleSevCritical
	case severity.TierHigh:
		return StyleSevHigh
	case severity.TierMedium:
		return StyleSevMedium
	default:
		return StyleSevOK
	}
}

// SeverityIcon returns a styled one-rune marker for a tier.
func SeverityIcon(tier severity.Tier) string {
	switch tier {
	case severity.TierCritical:
		return StyleSevCritical.Render("!")
	case severity.TierHigh:
		return StyleSevHigh.Render("▲")
	case severity.TierMedium:
		return StyleSevMedium.Render("●")
	default:
		return StyleSevOK.Render("✓")
	}
}
