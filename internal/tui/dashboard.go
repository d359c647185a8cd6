package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
)

// maxHosts is how many hosts the hosts section lists.
const maxHosts = 10

// Dashboard is the main dashboard view.
type Dashboard struct {
	snap     *model.Snapshot
	revision string
	width    int
	height   int
}

// NewDashboard creates a new dashboard for a snapshot.
func NewDashboard(snap *model.Snapshot, revision string, width, height int) *Dashboard {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	return &Dashboard{
		snap:     snap,
		revision: revision,
		width:    width,
		height:   height,
	}
}

// SetSize updates the dashboard size.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var sb strings.Builder

	title := "Security Dashboard"
	if d.revision != "" {
		title += " (" + d.revision + ")"
	}
	sb.WriteString(HeaderStyle.Width(d.width).Render(title))
	sb.WriteString("\n\n")

	sb.WriteString(d.renderNetworkSection())
	sb.WriteString("\n")
	sb.WriteString(d.renderAlertsSection())
	sb.WriteString("\n")
	sb.WriteString(d.renderHostsSection())
	sb.WriteString("\n")

	sb.WriteString(RenderStatus(len(d.snap.Failures) == 0, "Backend reachable", "Degraded: "+failureSummary(d.snap.Failures)))
	sb.WriteString("\n")

	updated := "never"
	if !d.snap.TakenAt.IsZero() {
		updated = d.snap.TakenAt.Local().Format("15:04:05")
	}
	sb.WriteString(HelpStyle.Render(fmt.Sprintf("Updated %s • 'r' to refresh • 'q' to quit", updated)))

	return sb.String()
}

func (d *Dashboard) sectionWidth() int {
	w := d.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

func (d *Dashboard) renderNetworkSection() string {
	n := d.snap.Network

	traffic := DimStyle.Render("unavailable")
	if n.TrafficPerSecond != nil {
		traffic = ValueStyle.Render(fmt.Sprintf("%d/s", *n.TrafficPerSecond))
	}
	protocols := strings.Join(analytics.TopProtocols(n.TopProtocols, 3), ", ")
	if n.TopProtocolsEstimated {
		protocols += DimStyle.Render(" (default)")
	}
	pct := analytics.ThreatPercentage(n.ThreatsDetected, n.HostsMonitored)

	content := fmt.Sprintf(
		"%s %s\n%s %s\n%s %s %s\n%s %s\n%s %s",
		LabelStyle.Render("Status:"),
		RenderState(n.Status),
		LabelStyle.Render("Hosts:"),
		ValueStyle.Render(fmt.Sprintf("%d", n.HostsMonitored)),
		LabelStyle.Render("Threats:"),
		ValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", n.ThreatsDetected, pct)),
		RenderBar(int(pct), 100, 20),
		LabelStyle.Render("Traffic:"),
		traffic,
		LabelStyle.Render("Protocols:"),
		ValueStyle.Render(protocols),
	)

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Network") + "\n" + content)
}

func (d *Dashboard) renderAlertsSection() string {
	st := d.snap.AlertStats
	counts := fmt.Sprintf("%s %s  %s  %s  %s",
		LabelStyle.Render("Alerts:"),
		ValueStyle.Render(fmt.Sprintf("%d", st.Total)),
		RenderSeverity(model.SeverityHigh, fmt.Sprintf("high %d", st.High)),
		RenderSeverity(model.SeverityMedium, fmt.Sprintf("medium %d", st.Medium)),
		RenderSeverity(model.SeverityLow, fmt.Sprintf("low %d", st.Low)),
	)
	if st.Source != model.StatsFromBackend && st.Source != "" {
		counts += DimStyle.Render(" (" + string(st.Source) + ")")
	}

	rows := []string{counts}
	if len(d.snap.RecentAlerts) == 0 {
		rows = append(rows, DimStyle.Render("No high alerts"))
	} else {
		rows = append(rows, "", TableHeaderStyle.Render(fmt.Sprintf("%-4s %-16s %-24s %-8s", "#", "IP", "Type", "Severity")))
		for _, a := range d.snap.RecentAlerts {
			rows = append(rows, fmt.Sprintf("%-4d %-16s %-24s %s",
				a.ID, a.IP, truncate(a.AnomalyType, 22), RenderSeverity(a.Severity, string(a.Severity))))
		}
	}

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Recent High Alerts") + "\n" + strings.Join(rows, "\n"))
}

func (d *Dashboard) renderHostsSection() string {
	if len(d.snap.Hosts) == 0 {
		return SectionStyle.Width(d.sectionWidth()).Render(
			SectionTitleStyle.Render("Hosts") + "\n" + DimStyle.Render("No hosts reported"))
	}

	hosts := make([]model.Host, len(d.snap.Hosts))
	copy(hosts, d.snap.Hosts)
	sort.SliceStable(hosts, func(i, j int) bool { return hosts[i].AnomalyScore > hosts[j].AnomalyScore })

	var rows []string
	rows = append(rows, TableHeaderStyle.Render(fmt.Sprintf("%-16s %-12s %-8s %-16s", "IP", "Status", "Score", "Protocols")))

	shown := hosts
	if len(shown) > maxHosts {
		shown = shown[:maxHosts]
	}
	for _, h := range shown {
		rows = append(rows, fmt.Sprintf("%-16s %-12s %-8s %s",
			h.IP, RenderHostStatus(h.Status), h.ScoreText(), strings.Join(h.Protocols, ",")))
	}
	if len(hosts) > maxHosts {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("... and %d more", len(hosts)-maxHosts)))
	}

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Hosts") + "\n" + strings.Join(rows, "\n"))
}

func failureSummary(failures map[string]model.FailureKind) string {
	parts := make([]string, 0, len(failures))
	for resource, kind := range failures {
		parts = append(parts, resource+" ("+string(kind)+")")
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
