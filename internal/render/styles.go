package render

import "github.com/charmbracelet/lipgloss"

var (
	// Palette
	PrimaryColor = lipgloss.Color("#A78BFA") // Violet
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	GreenColor   = lipgloss.Color("#10B981")
	YellowColor  = lipgloss.Color("#FBBF24")
	OrangeColor  = lipgloss.Color("#FB923C")
	RedColor     = lipgloss.Color("#F87171")
	SideAColor   = lipgloss.Color("#60A5FA") // Blue
	SideBColor   = lipgloss.Color("#F472B6") // Pink

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Muted = lipgloss.NewStyle().Foreground(MutedColor)

	Warning = lipgloss.NewStyle().
		Bold(true).
		Foreground(OrangeColor)

	Danger = lipgloss.NewStyle().
		Bold(true).
		Foreground(RedColor)

	SideA = lipgloss.NewStyle().Bold(true).Foreground(SideAColor)
	SideB = lipgloss.NewStyle().Bold(true).Foreground(SideBColor)

	ScoreBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)
)

// sideStyle returns the style of side 0 (A) or 1 (B).
func sideStyle(side int) lipgloss.Style {
	if side == 1 {
		return SideB
	}
	return SideA
}

// BandColor colours a metric by the share of its maximum it reached:
// at least 80% green, 60% yellow, 40% orange, otherwise red.
func BandColor(value, limit float64) lipgloss.Color {
	if limit <= 0 {
		return RedColor
	}
	switch ratio := value / limit; {
	case ratio >= 0.8:
		return GreenColor
	case ratio >= 0.6:
		return YellowColor
	case ratio >= 0.4:
		return OrangeColor
	default:
		return RedColor
	}
}
