package normalize

import (
	"github.com/user/secdash/internal/model"
)

var (
	ipKeys    = []string{"ip", "src_ip", "host", "address"}
	scoreKeys = []string{"anomalyScore", "anomaly_score", "score"}
)

// Hosts reads a host collection. It accepts a bare array or an object
// wrapping one under hosts, results or data. Entries that are not objects
// or carry no address are skipped.
//
// Status is always re-derived from the anomaly score, whatever the backend
// sent. A host without a score counts as 0 and is therefore safe; it is
// marked ScoreMissing so views can tell it apart from a measured 0.
func Hosts(raw any) []model.Host {
	items := list(raw, "hosts", "results", "data")
	hosts := make([]model.Host, 0, len(items))
	for _, item := range items {
		h, ok := host(object(item), uint64(len(hosts)+1))
		if !ok {
			continue
		}
		hosts = append(hosts, h)
	}
	return hosts
}

// HostDetail reads a single host payload. Model outputs may sit at the top
// level or inside a details object. The second result is false when the
// payload is not a host.
func HostDetail(raw any) (model.HostDetail, bool) {
	m := object(raw)
	if inner := object(m["host"]); inner != nil {
		m = inner
	}
	h, ok := host(m, 1)
	if !ok {
		return model.HostDetail{}, false
	}

	details := object(m["details"])
	if details == nil {
		details = m
	}

	return model.HostDetail{
		Host:        h,
		AnomalyType: stringPtr(details, "anomalyType", "anomaly_type"),
		IsoScore:    floatPtr(details, "isoScore", "iso_score", "isof_score"),
		AeMse:       floatPtr(details, "aeMse", "ae_mse", "auto_mse"),
		Description: stringPtr(details, "description"),
	}, true
}

func host(m map[string]any, position uint64) (model.Host, bool) {
	ip, ok := stringField(m, ipKeys...)
	if !ok {
		return model.Host{}, false
	}

	score, scored := floatField(m, scoreKeys...)
	if score < 0 {
		score = 0
	}

	id, ok := uintField(m, "id")
	if !ok {
		id = position
	}

	protocols, _ := stringList(m, "protocols")
	if protocols == nil {
		protocols = []string{}
	}

	traffic, _ := uintField(m, "trafficCount", "traffic_count", "packets")

	return model.Host{
		ID:           id,
		IP:           ip,
		Status:       model.ClassifyScore(score),
		AnomalyScore: score,
		Protocols:    protocols,
		TrafficCount: traffic,
		ScoreMissing: !scored,
		Flagged:      flagged(m),
	}, true
}

func flagged(m map[string]any) bool {
	f := flag(m)
	return f != nil && *f != 0
}
