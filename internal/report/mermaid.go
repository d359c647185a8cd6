package report

import (
	"fmt"
	"strings"

	"github.com/user/secdash/internal/model"
)

// SeverityPie creates a Mermaid pie chart of alert counts by severity.
// Empty buckets are left out; with no alerts the result is empty.
func SeverityPie(stats model.AlertStats) string {
	slices := []pieSlice{
		{"High", float64(stats.High)},
		{"Medium", float64(stats.Medium)},
		{"Low", float64(stats.Low)},
	}
	return pie("Alerts by severity", slices)
}

// ProtocolPie creates a Mermaid pie chart of a protocol distribution.
func ProtocolPie(dist []model.ProtocolShare, estimated bool) string {
	title := "Protocol distribution"
	if estimated {
		title += " (estimated)"
	}
	slices := make([]pieSlice, 0, len(dist))
	for _, p := range dist {
		slices = append(slices, pieSlice{p.Protocol, float64(p.Count)})
	}
	return pie(title, slices)
}

// HostStatusPie creates a Mermaid pie chart of hosts by status.
func HostStatusPie(hosts []model.Host) string {
	counts := map[model.HostStatus]float64{}
	for _, h := range hosts {
		counts[h.Status]++
	}
	return pie("Hosts by status", []pieSlice{
		{"Dangerous", counts[model.HostDangerous]},
		{"Suspicious", counts[model.HostSuspicious]},
		{"Safe", counts[model.HostSafe]},
	})
}

type pieSlice struct {
	label string
	value float64
}

func pie(title string, slices []pieSlice) string {
	var body strings.Builder
	for _, s := range slices {
		if s.value <= 0 {
			continue
		}
		body.WriteString(fmt.Sprintf("    %q : %g\n", escapeLabel(s.label), s.value))
	}
	if body.Len() == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie showData\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", title))
	sb.WriteString(body.String())
	sb.WriteString("```\n")
	return sb.String()
}

func escapeLabel(s string) string {
	// Mermaid labels cannot contain double quotes.
	return strings.ReplaceAll(s, `"`, "'")
}
