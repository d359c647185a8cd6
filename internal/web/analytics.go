package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/report"
	"github.com/user/secdash/internal/storage"
)

// AnalyticsHandlers provides analytics API endpoints over the snapshot
// feed and its stored history.
type AnalyticsHandlers struct {
	feed    SnapshotFeed
	history *storage.SnapshotStorage
}

// NewAnalyticsHandlers creates analytics handlers. history may be nil.
func NewAnalyticsHandlers(feed SnapshotFeed, history *storage.SnapshotStorage) *AnalyticsHandlers {
	return &AnalyticsHandlers{feed: feed, history: history}
}

// TrendPoint is one stored refresh cycle for charting.
type TrendPoint struct {
	Timestamp time.Time          `json:"timestamp"`
	Status    model.NetworkState `json:"status"`
	Threats   uint64             `json:"threats"`
	High      uint64             `json:"high"`
	Medium    uint64             `json:"medium"`
	Low       uint64             `json:"low"`
	Degraded  bool               `json:"degraded"`
}

// TopData is the local ranking of the latest snapshot's alerts.
type TopData struct {
	TakenAt      time.Time                `json:"takenAt"`
	AnomalyTypes []model.AnomalyTypeCount `json:"anomalyTypes"`
	Hosts        []model.HostScore        `json:"hosts"`
}

// History returns stored refresh cycles, oldest first, limited by ?limit=.
func (h *AnalyticsHandlers) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, []TrendPoint{})
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	records, err := h.history.History(limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	points := make([]TrendPoint, len(records))
	for i, rec := range records {
		// records are newest first
		points[len(records)-1-i] = TrendPoint{
			Timestamp: rec.TakenAt,
			Status:    rec.Status,
			Threats:   rec.ThreatsDetected,
			High:      rec.Alerts.High,
			Medium:    rec.Alerts.Medium,
			Low:       rec.Alerts.Low,
			Degraded:  rec.Failures > 0,
		}
	}
	writeJSON(w, points)
}

// Top ranks anomaly types and hosts in the latest snapshot, ?n= rows each.
func (h *AnalyticsHandlers) Top(w http.ResponseWriter, r *http.Request) {
	snap := h.feed.Latest()
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	n := analytics.TopN
	if s := r.URL.Query().Get("n"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 50 {
			n = v
		}
	}

	writeJSON(w, TopData{
		TakenAt:      snap.TakenAt,
		AnomalyTypes: analytics.TopAnomalyTypes(snap.Alerts, n),
		Hosts:        analytics.TopHosts(snap.Alerts, n),
	})
}

// MermaidDiagram returns the latest snapshot as Markdown with Mermaid
// charts.
func (h *AnalyticsHandlers) MermaidDiagram(w http.ResponseWriter, r *http.Request) {
	snap := h.feed.Latest()
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	content := report.FormatMarkdown(snap, report.NewGenerator().Generate(snap))
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(content))
}
