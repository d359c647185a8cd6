package analytics

import (
	"strings"

	"github.com/user/secdash/internal/model"
)

// FilterAlerts keeps alerts matching severity (empty matches all) whose IP
// or anomaly type contains query, case-insensitively.
func FilterAlerts(alerts []model.Alert, severity model.Severity, query string) []model.Alert {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if severity != "" && a.Severity != severity {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.IP), q) &&
			!strings.Contains(strings.ToLower(a.AnomalyType), q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FilterHosts keeps hosts matching status (empty matches all) whose IP or
// one of whose protocols contains query, case-insensitively.
func FilterHosts(hosts []model.Host, status model.HostStatus, query string) []model.Host {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Host, 0, len(hosts))
	for _, h := range hosts {
		if status != "" && h.Status != status {
			continue
		}
		if q != "" && !hostMatches(h, q) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func hostMatches(h model.Host, q string) bool {
	if strings.Contains(strings.ToLower(h.IP), q) {
		return true
	}
	for _, p := range h.Protocols {
		if strings.Contains(strings.ToLower(p), q) {
			return true
		}
	}
	return false
}

// RecentHigh returns the first n high severity alerts.
func RecentHigh(alerts []model.Alert, n int) []model.Alert {
	out := make([]model.Alert, 0, n)
	for _, a := range alerts {
		if len(out) == n {
			break
		}
		if a.Severity == model.SeverityHigh {
			out = append(out, a)
		}
	}
	return out
}

// SuspiciousHosts returns the hosts not classified as safe.
func SuspiciousHosts(hosts []model.Host) []model.Host {
	return FilterOut(hosts, func(h model.Host) bool { return h.Status == model.HostSafe })
}

// FilterOut returns items for which drop is false.
func FilterOut[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

// TopProtocols returns at most n protocols in their reported order.
func TopProtocols(protocols []string, n int) []string {
	return truncate(append([]string(nil), protocols...), n)
}

// UniqueIPs counts distinct alert source addresses.
func UniqueIPs(alerts []model.Alert) int {
	seen := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		seen[a.IP] = struct{}{}
	}
	return len(seen)
}
