package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/report"
	"github.com/user/secdash/internal/service"
)

// maxBodyBytes bounds settings payloads.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP handlers.
type Handlers struct {
	svc       *service.Service
	feed      SnapshotFeed
	generator *report.Generator
}

// NewHandlers creates new handlers.
func NewHandlers(svc *service.Service, feed SnapshotFeed) *Handlers {
	return &Handlers{
		svc:       svc,
		feed:      feed,
		generator: report.NewGenerator(),
	}
}

// snapshot returns the poller's latest snapshot, fetching one when the
// poller has not refreshed yet.
func (h *Handlers) snapshot(r *http.Request) *model.Snapshot {
	if h.feed != nil {
		if snap := h.feed.Latest(); snap != nil {
			return snap
		}
	}
	return h.svc.Snapshot(r.Context())
}

// Dashboard returns the dashboard view.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Dashboard(r.Context()))
}

// Snapshot returns the latest refresh snapshot.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.snapshot(r))
}

// Hosts returns monitored hosts, filtered by ?status= and ?q=.
func (h *Handlers) Hosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := model.HostStatus(q.Get("status"))
	switch status {
	case "", model.HostSafe, model.HostSuspicious, model.HostDangerous:
	default:
		writeError(w, fmt.Errorf("unknown host status %q", status), http.StatusBadRequest)
		return
	}

	hosts := h.svc.GetHosts(r.Context())
	writeJSON(w, analytics.FilterHosts(hosts, status, q.Get("q")))
}

// HostDetail returns one host by IP.
func (h *Handlers) HostDetail(w http.ResponseWriter, r *http.Request) {
	ip := mux.Vars(r)["ip"]
	detail, ok := h.svc.GetHostDetail(r.Context(), ip)
	if !ok {
		writeError(w, fmt.Errorf("host %s not found", ip), http.StatusNotFound)
		return
	}
	writeJSON(w, struct {
		*model.HostDetail
		AnomalyType string  `json:"anomalyType"`
		IsoScore    float64 `json:"isoScore"`
		AeMse       float64 `json:"aeMse"`
		Description string  `json:"description"`
	}{
		HostDetail:  detail,
		AnomalyType: detail.AnomalyTypeOrDefault(),
		IsoScore:    detail.IsoScoreOrZero(),
		AeMse:       detail.AeMseOrZero(),
		Description: detail.DescriptionOrDefault(),
	})
}

// Alerts returns alerts, filtered by ?severity= and ?q=.
func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	severity := model.Severity(q.Get("severity"))
	if severity != "" && !severity.Valid() {
		writeError(w, fmt.Errorf("unknown severity %q", severity), http.StatusBadRequest)
		return
	}

	alerts := h.svc.GetAlerts(r.Context(), severity)
	if search := q.Get("q"); search != "" {
		alerts = analytics.FilterAlerts(alerts, "", search)
	}
	writeJSON(w, alerts)
}

// AlertCount returns per-severity alert counts.
func (h *Handlers) AlertCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.GetAlertCount(r.Context()))
}

// Analysis returns the analysis overview, or 204 when unavailable.
func (h *Handlers) Analysis(w http.ResponseWriter, r *http.Request) {
	overview := h.svc.GetAnalysisOverview(r.Context())
	if overview == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, overview)
}

// Reports returns the synthesized reports, filtered by ?type= and ?search=.
func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reports := h.generator.Generate(h.snapshot(r))
	writeJSON(w, report.Filter(reports, model.ReportType(q.Get("type")), q.Get("search")))
}

// DownloadReport serializes one report as an attachment.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	rep, ok := h.generator.Find(h.snapshot(r), id)
	if !ok {
		writeError(w, fmt.Errorf("report %s not available", id), http.StatusNotFound)
		return
	}

	name, data, err := report.Download(rep, format)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	contentType := "application/json"
	if format == model.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

// GetSettings returns the backend settings or the defaults.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.GetSettings(r.Context()))
}

// saveResult is the body of settings write responses.
type saveResult struct {
	Status   model.SaveStatus   `json:"status"`
	Settings *model.Settings    `json:"settings,omitempty"`
	Error    string             `json:"error,omitempty"`
	Fields   []model.FieldError `json:"fields,omitempty"`
}

// UpdateSettings validates and saves settings.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	settings := model.DefaultSettings()
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&settings); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, saveResult{Status: model.SaveError, Error: "invalid JSON: " + err.Error()})
		return
	}

	status, err := h.svc.UpdateSettings(r.Context(), settings)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSONStatus(w, http.StatusUnprocessableEntity, saveResult{Status: status, Error: err.Error(), Fields: verr.Fields})
			return
		}
		writeJSONStatus(w, http.StatusBadGateway, saveResult{Status: status, Error: err.Error()})
		return
	}
	writeJSON(w, saveResult{Status: status, Settings: &settings})
}

// ResetSettings saves and returns the default settings.
func (h *Handlers) ResetSettings(w http.ResponseWriter, r *http.Request) {
	defaults, status, err := h.svc.ResetSettings(r.Context())
	if err != nil {
		writeJSONStatus(w, http.StatusBadGateway, saveResult{Status: status, Settings: &defaults, Error: err.Error()})
		return
	}
	writeJSON(w, saveResult{Status: status, Settings: &defaults})
}

// Health reports gateway liveness and the backend revision in use.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "ok",
		"revision": h.svc.Revision(),
	}
	if h.feed != nil {
		if snap := h.feed.Latest(); snap != nil {
			resp["lastSnapshot"] = snap.TakenAt
			resp["degraded"] = len(snap.Failures) > 0
		}
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	writeJSONStatus(w, status, map[string]string{"error": err.Error()})
}
