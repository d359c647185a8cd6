package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/secdash/internal/model"
)

var (
	// Colors
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("86")
	Subtle    = lipgloss.Color("241")
	Success   = lipgloss.Color("46")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("196")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2).
			Align(lipgloss.Center)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 2)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Width(11)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			MarginTop(1)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Padding(2, 4)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(Subtle)
)

// RenderStatus returns a styled status indicator.
func RenderStatus(ok bool, okText, failText string) string {
	if ok {
		return SuccessStyle.Render("✓ " + okText)
	}
	return ErrorStyle.Render("✗ " + failText)
}

// RenderState colors a network state: danger red, warning amber, offline
// dim, everything else green.
func RenderState(state model.NetworkState) string {
	label := strings.ToUpper(string(state))
	switch state {
	case model.StateDanger:
		return ErrorStyle.Render("● " + label)
	case model.StateWarning:
		return WarningStyle.Render("● " + label)
	case model.StateOffline, "":
		return DimStyle.Render("○ OFFLINE")
	default:
		return SuccessStyle.Render("● " + label)
	}
}

// RenderSeverity colors text by alert severity.
func RenderSeverity(sev model.Severity, text string) string {
	switch sev {
	case model.SeverityHigh:
		return ErrorStyle.Render(text)
	case model.SeverityMedium:
		return WarningStyle.Render(text)
	default:
		return SuccessStyle.Render(text)
	}
}

// RenderHostStatus colors a host status label.
func RenderHostStatus(status model.HostStatus) string {
	switch status {
	case model.HostDangerous:
		return ErrorStyle.Render(string(status))
	case model.HostSuspicious:
		return WarningStyle.Render(string(status))
	default:
		return SuccessStyle.Render(string(status))
	}
}

// RenderBar renders a progress bar.
func RenderBar(value, max int, width int) string {
	if max == 0 {
		max = 1
	}
	if value < 0 {
		value = 0
	}

	filled := int(float64(value) / float64(max) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(Secondary).Render(bar)
}
