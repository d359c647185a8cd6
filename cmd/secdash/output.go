package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/secdash/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// jsonOutput switches list commands to raw JSON.
var jsonOutput bool

func printTitle(s string) {
	fmt.Println(titleStyle.Render(s))
}

func printField(label string, value any) {
	fmt.Printf("  %s %s\n", labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stateText(state model.NetworkState) string {
	label := strings.ToUpper(string(state))
	switch state {
	case model.StateDanger:
		return badStyle.Render(label)
	case model.StateWarning:
		return warnStyle.Render(label)
	case model.StateOffline:
		return labelStyle.Render(label)
	default:
		return okStyle.Render(label)
	}
}

func severityText(sev model.Severity) string {
	switch sev {
	case model.SeverityHigh:
		return badStyle.Render(string(sev))
	case model.SeverityMedium:
		return warnStyle.Render(string(sev))
	default:
		return okStyle.Render(string(sev))
	}
}

func hostStatusText(status model.HostStatus) string {
	switch status {
	case model.HostDangerous:
		return badStyle.Render(string(status))
	case model.HostSuspicious:
		return warnStyle.Render(string(status))
	default:
		return okStyle.Render(string(status))
	}
}

// printFailures lists resources that fell back to defaults.
func printFailures(failures map[string]model.FailureKind) {
	if len(failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(warnStyle.Render("Degraded: some backend resources were unavailable"))
	for resource, kind := range failures {
		fmt.Printf("  %s %s\n", labelStyle.Render(resource+":"), string(kind))
	}
}
