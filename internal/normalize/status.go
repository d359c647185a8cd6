package normalize

import (
	"strings"

	"github.com/user/secdash/internal/model"
)

// Summary reads an aggregate counts payload. It understands the inference
// report summary (n_hosts, n_flagged), the event summary (total_events,
// anomalies_detected, anomaly_rate_percent) and the dashboard status block.
func Summary(raw any) model.Summary {
	m := object(raw)
	if inner := object(m["summary"]); inner != nil {
		m = inner
	}

	s := model.Summary{
		AnomalyRate:    floatPtr(m, "anomaly_rate_percent", "anomalyRate", "anomaly_rate"),
		HostsMonitored: uintPtr(m, "hostsMonitored", "hosts_monitored", "n_hosts"),
	}
	s.TotalEvents, _ = uintField(m, "total_events", "totalEvents", "n_hosts")
	s.AnomaliesDetected, _ = uintField(m,
		"anomalies_detected", "anomaliesDetected", "n_flagged", "threatsDetected", "threats_detected")
	return s
}

// NetworkStatus builds the dashboard summary from an aggregate payload and,
// when the aggregate does not count hosts, the raw host/result collection.
//
// Status is derived from the threat count. An explicit backend status is
// kept only when it agrees with that derivation. Traffic stays nil unless
// the backend reports it.
func NetworkStatus(summary, results any) model.NetworkStatus {
	m := object(summary)
	s := Summary(summary)

	ns := model.NetworkStatus{
		ThreatsDetected: s.AnomaliesDetected,
		Status:          deriveState(s.AnomaliesDetected, m),
	}

	if s.HostsMonitored != nil {
		ns.HostsMonitored = *s.HostsMonitored
	} else {
		ns.HostsMonitored = uint64(len(list(results, "results", "hosts", "data")))
	}

	ns.TrafficPerSecond = uintPtr(m, "trafficPerSecond", "traffic_per_second")

	if protocols, ok := stringList(m, "topProtocols", "top_protocols"); ok && len(protocols) > 0 {
		ns.TopProtocols = protocols
	} else {
		ns.TopProtocols = append([]string(nil), model.DefaultProtocols...)
		ns.TopProtocolsEstimated = true
	}

	return ns
}

func deriveState(threats uint64, m map[string]any) model.NetworkState {
	derived := model.StateSafe
	if threats > 0 {
		derived = model.StateWarning
	}

	explicit, ok := stringField(m, "status")
	if !ok {
		return derived
	}
	state := model.NetworkState(strings.ToLower(explicit))
	switch {
	case !state.Valid():
		return derived
	case threats > 0 && (state == model.StateWarning || state == model.StateDanger):
		return state
	case threats == 0 && state != model.StateWarning && state != model.StateDanger:
		return state
	}
	return derived
}
