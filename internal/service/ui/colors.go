package ui

import "github.com/charmbracelet/lipgloss"

var (
	// ANSI 6 (Cyan) reads well on both light and dark terminals
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// ANSI 2 (Green) for usage lines and arguments
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// ANSI 8 (Gray) keeps descriptions and metadata in the background
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// ANSI 3 (Yellow) for flags
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
