package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/user/secdash/internal/model"
)

// Settings merges a settings payload over the default configuration, so a
// partial payload still yields every option. The payload may be wrapped
// under settings. An error is returned when the payload is not an object
// or a field has the wrong type; the merged value is still usable then.
func Settings(raw any) (model.Settings, error) {
	s := model.DefaultSettings()
	m := object(raw)
	if m == nil {
		return s, fmt.Errorf("settings payload is %T, not an object", raw)
	}
	if inner := object(m["settings"]); inner != nil {
		m = inner
	}

	data, err := json.Marshal(m)
	if err != nil {
		return s, fmt.Errorf("failed to re-encode settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// LogLines reads the backend log tail. Entries may be plain strings or
// objects with timestamp, level and message.
func LogLines(raw any) []model.LogLine {
	items := list(raw, "logs", "lines", "data")
	lines := make([]model.LogLine, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			lines = append(lines, model.LogLine{Message: s})
			continue
		}
		m := object(item)
		if m == nil {
			continue
		}
		msg, ok := stringField(m, "message", "msg", "text")
		if !ok {
			continue
		}
		ts, _ := stringField(m, "timestamp", "time")
		level, _ := stringField(m, "level")
		lines = append(lines, model.LogLine{Timestamp: ts, Level: level, Message: msg})
	}
	return lines
}

// TrainingJob reads a training start or status payload. id is used when the
// payload does not name its job; a missing status is "unknown".
func TrainingJob(raw any, id string) model.TrainingJob {
	m := object(raw)
	job := model.TrainingJob{ID: id, Status: "unknown"}
	if v, ok := stringField(m, "id", "training_id", "trainingId", "job_id"); ok {
		job.ID = v
	}
	if v, ok := stringField(m, "status", "state"); ok {
		job.Status = v
	}
	job.Progress = floatPtr(m, "progress")
	job.Message, _ = stringField(m, "message", "detail")
	return job
}

// BackendReports reads the backend report list, bare or under reports.
func BackendReports(raw any) []model.BackendReport {
	items := list(raw, "reports", "data")
	reports := make([]model.BackendReport, 0, len(items))
	for _, item := range items {
		m := object(item)
		id, ok := stringField(m, "id", "report_id")
		if !ok {
			continue
		}
		r := model.BackendReport{ID: id}
		r.Name, _ = stringField(m, "name", "title")
		r.Type, _ = stringField(m, "type")
		r.Date, _ = stringField(m, "date", "created_at", "timestamp")
		r.Status, _ = stringField(m, "status")
		reports = append(reports, r)
	}
	return reports
}
