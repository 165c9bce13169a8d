package ui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
var (
	ColorBg      = lipgloss.Color("#1a1b26")
	ColorBorder  = lipgloss.Color("#414868")
	ColorText    = lipgloss.Color("#c0caf5")
	ColorTextDim = lipgloss.Color("#787fa0")
	ColorAccent  = lipgloss.Color("#7aa2f7")
	ColorGreen   = lipgloss.Color("#9ece6a")
	ColorYellow  = lipgloss.Color("#e0af68")
	ColorRed     = lipgloss.Color("#f7768e")
)

var (
	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	focusedInputBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorAccent).
				Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	fileNameStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	selectedNameStyle = lipgloss.NewStyle().
				Foreground(ColorBg).
				Background(ColorAccent).
				Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	hitCountStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	promptPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)
