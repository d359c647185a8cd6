// Package service is the public face of secdash's backend access. Every
// read degrades to a documented default instead of returning an error;
// user-initiated writes report their outcome.
package service

import (
	"context"
	"fmt"

	"github.com/user/secdash/internal/adapter"
	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/transport"
	"github.com/user/secdash/internal/util"
)

// Service wraps a ResponseAdapter with the fallback policy.
type Service struct {
	adapter adapter.ResponseAdapter
}

// New creates a service over an adapter.
func New(a adapter.ResponseAdapter) *Service {
	return &Service{adapter: a}
}

// NewFromConfig builds the transport client and the configured adapter.
func NewFromConfig(cfg *util.Config) (*Service, error) {
	client, err := transport.New(transport.Options{
		BaseURL:      cfg.BackendURL,
		Timeout:      cfg.RequestTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		APIKey:       cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	mode, err := model.ParseSeverityMode(cfg.SeverityMode)
	if err != nil {
		return nil, err
	}

	a, err := adapter.New(cfg.BackendRevision, client, mode)
	if err != nil {
		return nil, err
	}

	util.Debug("Using %s backend at %s (severity %s)", a.Revision(), client.BaseURL(), mode)
	return New(a), nil
}

// Revision returns the backend revision in use.
func (s *Service) Revision() string {
	return s.adapter.Revision()
}

// GetNetworkStatus returns the dashboard summary, or OfflineStatus.
func (s *Service) GetNetworkStatus(ctx context.Context) model.NetworkStatus {
	ns, err := s.adapter.NetworkStatus(ctx)
	if err != nil {
		fallback(ResourceNetwork, err)
		return OfflineStatus()
	}
	return ns
}

// GetHosts returns the monitored hosts, or an empty list.
func (s *Service) GetHosts(ctx context.Context) []model.Host {
	hosts, err := s.adapter.Hosts(ctx)
	if err != nil {
		fallback(ResourceHosts, err)
		return []model.Host{}
	}
	return hosts
}

// GetHostDetail returns one host. The second result is false when the
// host is unknown or the backend failed.
func (s *Service) GetHostDetail(ctx context.Context, ip string) (*model.HostDetail, bool) {
	d, err := s.adapter.HostDetail(ctx, ip)
	if err != nil {
		if !transport.IsNotFound(err) {
			fallback(ResourceHostDetail, err)
		}
		return nil, false
	}
	return &d, true
}

// GetAlerts returns the alerts with the given severity (empty for all),
// or an empty list.
func (s *Service) GetAlerts(ctx context.Context, severity model.Severity) []model.Alert {
	alerts, err := s.adapter.Alerts(ctx)
	if err != nil {
		fallback(ResourceAlerts, err)
		return []model.Alert{}
	}
	if severity == "" {
		return alerts
	}
	return analytics.FilterAlerts(alerts, severity, "")
}

// GetAlertCount returns per-severity counts. The backend count is tried
// first, then a local aggregation of the alert list, then zeros.
func (s *Service) GetAlertCount(ctx context.Context) model.AlertStats {
	stats, err := s.adapter.AlertCount(ctx)
	if err == nil {
		return stats
	}
	fallback(ResourceAlertCount, err)

	alerts, err := s.adapter.Alerts(ctx)
	if err != nil {
		fallback(ResourceAlerts, err)
		return ZeroStats()
	}
	return analytics.CountAlerts(alerts)
}

// GetAnalysisOverview returns the analysis view, or nil when it is
// unavailable.
func (s *Service) GetAnalysisOverview(ctx context.Context) *model.AnalysisOverview {
	overview, err := s.adapter.AnalysisOverview(ctx)
	if err != nil {
		fallback(ResourceAnalysis, err)
		return nil
	}
	return overview
}

// GetSettings returns the backend settings merged over the defaults, or
// the full default configuration.
func (s *Service) GetSettings(ctx context.Context) model.Settings {
	settings, err := s.adapter.Settings(ctx)
	if err != nil {
		fallback(ResourceSettings, err)
		return model.DefaultSettings()
	}
	return settings
}

// UpdateSettings validates and saves settings. Invalid settings are never
// sent; the error is then a *model.ValidationError.
func (s *Service) UpdateSettings(ctx context.Context, settings model.Settings) (model.SaveStatus, error) {
	if err := settings.Validate(); err != nil {
		return model.SaveError, err
	}
	if err := s.adapter.UpdateSettings(ctx, settings); err != nil {
		util.Error("Failed to save settings: %v", err)
		return model.SaveError, fmt.Errorf("%w: failed to save settings: %v", ErrUnavailable, err)
	}
	util.Info("Settings saved")
	return model.SaveSuccess, nil
}

// ResetSettings saves the default configuration and returns it.
func (s *Service) ResetSettings(ctx context.Context) (model.Settings, model.SaveStatus, error) {
	defaults := model.DefaultSettings()
	if err := s.adapter.UpdateSettings(ctx, defaults); err != nil {
		util.Error("Failed to reset settings: %v", err)
		return defaults, model.SaveError, fmt.Errorf("%w: failed to reset settings: %v", ErrUnavailable, err)
	}
	util.Info("Settings reset to defaults")
	return defaults, model.SaveReset, nil
}

// RunInference triggers an analysis run, optionally on an uploaded file.
func (s *Service) RunInference(ctx context.Context, file *transport.FilePart) (any, error) {
	out, err := s.adapter.RunInference(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%w: inference run failed: %v", ErrUnavailable, err)
	}
	return out, nil
}

// GetLatestResults returns the latest inference output, or nil.
func (s *Service) GetLatestResults(ctx context.Context) any {
	out, err := s.adapter.LatestResults(ctx)
	if err != nil {
		fallback(ResourceInferenceResults, err)
		return nil
	}
	return out
}

// UploadData uploads a data file of the given type.
func (s *Service) UploadData(ctx context.Context, file transport.FilePart, dataType string) (any, error) {
	out, err := s.adapter.Upload(ctx, file, dataType)
	if err != nil {
		return nil, fmt.Errorf("%w: upload failed: %v", ErrUnavailable, err)
	}
	return out, nil
}

// GetLogs returns up to limit backend log lines (0 for the backend
// default), or an empty list.
func (s *Service) GetLogs(ctx context.Context, limit int) []model.LogLine {
	lines, err := s.adapter.Logs(ctx, limit)
	if err != nil {
		fallback(ResourceLogs, err)
		return []model.LogLine{}
	}
	return lines
}

// StartTraining starts a model retraining run.
func (s *Service) StartTraining(ctx context.Context, params map[string]any) (model.TrainingJob, error) {
	job, err := s.adapter.StartTraining(ctx, params)
	if err != nil {
		return model.TrainingJob{}, fmt.Errorf("%w: training start failed: %v", ErrUnavailable, err)
	}
	return job, nil
}

// GetTrainingStatus returns a training run's state, or status "unknown".
func (s *Service) GetTrainingStatus(ctx context.Context, id string) model.TrainingJob {
	job, err := s.adapter.TrainingStatus(ctx, id)
	if err != nil {
		fallback(ResourceTrainingStatus, err)
		return model.TrainingJob{ID: id, Status: "unknown"}
	}
	return job
}

// ListBackendReports returns the backend's report list, or an empty list.
func (s *Service) ListBackendReports(ctx context.Context) []model.BackendReport {
	reports, err := s.adapter.Reports(ctx)
	if err != nil {
		fallback(ResourceReports, err)
		return []model.BackendReport{}
	}
	return reports
}

// GenerateBackendReport asks the backend to build a report.
func (s *Service) GenerateBackendReport(ctx context.Context, reportType string) (any, error) {
	out, err := s.adapter.GenerateReport(ctx, reportType)
	if err != nil {
		return nil, fmt.Errorf("%w: report generation failed: %v", ErrUnavailable, err)
	}
	return out, nil
}

// DownloadBackendReport fetches a backend report body.
func (s *Service) DownloadBackendReport(ctx context.Context, id string) ([]byte, error) {
	data, err := s.adapter.DownloadReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: report download failed: %v", ErrUnavailable, err)
	}
	return data, nil
}
