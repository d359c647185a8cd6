package adapter

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sourcegraph/conc"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/normalize"
	"github.com/user/secdash/internal/transport"
	"github.com/user/secdash/internal/util"
)

// common implements the endpoints every revision shares. Paths are joined
// to prefix, which is empty for the older revisions and /api for the
// dashboard revision.
type common struct {
	backend Backend
	mode    model.SeverityMode
	prefix  string
}

func (c *common) path(p string) string {
	return c.prefix + p
}

func (c *common) get(ctx context.Context, p string, query url.Values) (any, error) {
	var raw any
	if err := c.backend.Get(ctx, c.path(p), query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *common) Alerts(ctx context.Context) ([]model.Alert, error) {
	raw, err := c.get(ctx, "/alerts", nil)
	if err != nil {
		return nil, err
	}
	return normalize.Alerts(raw, c.mode), nil
}

func (c *common) Settings(ctx context.Context) (model.Settings, error) {
	raw, err := c.get(ctx, "/settings", nil)
	if err != nil {
		return model.DefaultSettings(), err
	}
	return normalize.Settings(raw)
}

func (c *common) UpdateSettings(ctx context.Context, s model.Settings) error {
	return c.backend.Put(ctx, c.path("/settings"), s, nil)
}

func (c *common) RunInference(ctx context.Context, file *transport.FilePart) (any, error) {
	var out any
	if file == nil {
		err := c.backend.Post(ctx, c.path("/inference/run"), nil, &out)
		return out, err
	}
	err := c.backend.PostMultipart(ctx, c.path("/inference/run"), *file, nil, &out)
	return out, err
}

func (c *common) LatestResults(ctx context.Context) (any, error) {
	return c.get(ctx, "/inference/results", nil)
}

func (c *common) Upload(ctx context.Context, file transport.FilePart, dataType string) (any, error) {
	var out any
	err := c.backend.PostMultipart(ctx, c.path("/upload"), file, map[string]string{"type": dataType}, &out)
	return out, err
}

func (c *common) Logs(ctx context.Context, limit int) ([]model.LogLine, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	raw, err := c.get(ctx, "/system/logs", query)
	if err != nil {
		return nil, err
	}
	return normalize.LogLines(raw), nil
}

func (c *common) StartTraining(ctx context.Context, params map[string]any) (model.TrainingJob, error) {
	var raw any
	if err := c.backend.Post(ctx, c.path("/training/start"), params, &raw); err != nil {
		return model.TrainingJob{}, err
	}
	return normalize.TrainingJob(raw, ""), nil
}

func (c *common) TrainingStatus(ctx context.Context, id string) (model.TrainingJob, error) {
	raw, err := c.get(ctx, "/training/"+url.PathEscape(id)+"/status", nil)
	if err != nil {
		return model.TrainingJob{}, err
	}
	return normalize.TrainingJob(raw, id), nil
}

func (c *common) Reports(ctx context.Context) ([]model.BackendReport, error) {
	raw, err := c.get(ctx, "/reports", nil)
	if err != nil {
		return nil, err
	}
	return normalize.BackendReports(raw), nil
}

func (c *common) GenerateReport(ctx context.Context, reportType string) (any, error) {
	var out any
	err := c.backend.Post(ctx, c.path("/reports/generate"), map[string]string{"type": reportType}, &out)
	return out, err
}

func (c *common) DownloadReport(ctx context.Context, id string) ([]byte, error) {
	return c.backend.GetRaw(ctx, c.path("/reports/"+url.PathEscape(id)+"/download"), nil)
}

// summaryStatus builds the network status from /summary and /results,
// fetched concurrently. The summary is required; the result list only
// supplies the host count when the summary has none.
func (c *common) summaryStatus(ctx context.Context) (model.NetworkStatus, error) {
	var (
		summary, results       any
		summaryErr, resultsErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() { summary, summaryErr = c.get(ctx, "/summary", nil) })
	wg.Go(func() { results, resultsErr = c.get(ctx, "/results", nil) })
	wg.Wait()

	if summaryErr != nil {
		return model.NetworkStatus{}, summaryErr
	}
	if resultsErr != nil {
		util.Debug("Host count from /results unavailable: %v", resultsErr)
	}
	return normalize.NetworkStatus(summary, results), nil
}

func (c *common) hostDetail(ctx context.Context, p string) (model.HostDetail, error) {
	raw, err := c.get(ctx, p, nil)
	if err != nil {
		return model.HostDetail{}, err
	}
	d, ok := normalize.HostDetail(raw)
	if !ok {
		return model.HostDetail{}, ErrHostNotFound
	}
	return d, nil
}

// localCount aggregates the alert list when the revision has no count
// endpoint.
func (c *common) localCount(ctx context.Context) (model.AlertStats, error) {
	alerts, err := c.Alerts(ctx)
	if err != nil {
		return model.AlertStats{}, err
	}
	return analytics.CountAlerts(alerts), nil
}

// localOverview assembles the analysis view from /summary and the alert
// list for revisions without an analysis endpoint. Protocol distribution
// and performance are labeled estimates.
func (c *common) localOverview(ctx context.Context) (*model.AnalysisOverview, error) {
	var (
		summary    any
		alerts     []model.Alert
		summaryErr error
		alertsErr  error
	)

	var wg conc.WaitGroup
	wg.Go(func() { summary, summaryErr = c.get(ctx, "/summary", nil) })
	wg.Go(func() { alerts, alertsErr = c.Alerts(ctx) })
	wg.Wait()

	if summaryErr != nil {
		return nil, summaryErr
	}
	if alertsErr != nil {
		return nil, alertsErr
	}
	return buildOverview(summary, alerts), nil
}

// overviewFrom is localOverview over an alert list the caller already has.
func (c *common) overviewFrom(ctx context.Context, alerts []model.Alert) (*model.AnalysisOverview, error) {
	summary, err := c.get(ctx, "/summary", nil)
	if err != nil {
		return nil, err
	}
	return buildOverview(summary, alerts), nil
}

func buildOverview(summary any, alerts []model.Alert) *model.AnalysisOverview {
	s := normalize.Summary(summary)
	rate := analytics.AnomalyRate(s.AnomaliesDetected, s.TotalEvents)
	if s.AnomalyRate != nil {
		rate = analytics.Round(*s.AnomalyRate, 1)
	}

	return &model.AnalysisOverview{
		TotalEvents:          s.TotalEvents,
		AnomaliesDetected:    s.AnomaliesDetected,
		AnomalyRate:          rate,
		TopAnomalies:         analytics.TopAnomalyTypes(alerts, analytics.TopN),
		ProtocolDistribution: analytics.EstimatedProtocolDistribution(uint64(len(alerts))),
		ProtocolsEstimated:   true,
		TopHosts:             analytics.TopHosts(alerts, analytics.TopN),
		Performance:          analytics.PerformanceProxy(rate),
	}
}
