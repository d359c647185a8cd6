package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/user/secdash/internal/model"
)

// ParseFormat parses a download format name, case-insensitively.
// Empty selects JSON.
func ParseFormat(s string) (model.ReportFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "JSON":
		return model.FormatJSON, nil
	case "CSV":
		return model.FormatCSV, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FileName is the download name: the report name with spaces replaced by
// underscores, then the report date.
func FileName(r model.Report, format model.ReportFormat) string {
	ext := ".json"
	if format == model.FormatCSV {
		ext = ".csv"
	}
	return strings.Join(strings.Fields(r.Name), "_") + "_" + r.Date.Format("2006-01-02") + ext
}

// Download serializes a report and returns its file name and body.
func Download(r model.Report, format model.ReportFormat) (string, []byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case model.FormatJSON:
		data, err = json.MarshalIndent(r, "", "  ")
	case model.FormatCSV:
		data, err = encodeCSV(r)
	default:
		return "", nil, fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode report %s: %w", r.ID, err)
	}
	return FileName(r, format), data, nil
}

// encodeCSV writes report fields and then metrics as field,value rows.
// Nested metrics are flattened with dotted keys in sorted order.
func encodeCSV(r model.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"field", "value"},
		{"id", r.ID},
		{"name", r.Name},
		{"type", string(r.Type)},
		{"date", r.Date.Format("2006-01-02T15:04:05Z07:00")},
		{"size", r.Size},
		{"format", string(r.Format)},
		{"description", r.Description},
		{"status", string(r.Status)},
	}
	rows = append(rows, flatten("metrics", r.Metrics)...)

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(prefix string, v any) [][]string {
	m, err := cast.ToStringMapE(v)
	if err != nil || m == nil {
		return [][]string{{prefix, cast.ToString(v)}}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows [][]string
	for _, k := range keys {
		rows = append(rows, flatten(prefix+"."+k, m[k])...)
	}
	return rows
}
