package adapter

import (
	"context"
	"net/url"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/normalize"
	"github.com/user/secdash/internal/util"
)

// Legacy talks to the inference report API: /summary, /results,
// /host/{ip} and /alerts. Counts and the analysis view are computed
// locally.
type Legacy struct {
	common
}

// NewLegacy creates a Legacy adapter.
func NewLegacy(backend Backend, mode model.SeverityMode) *Legacy {
	return &Legacy{common{backend: backend, mode: mode}}
}

func (a *Legacy) Revision() string { return util.RevisionLegacy }

func (a *Legacy) NetworkStatus(ctx context.Context) (model.NetworkStatus, error) {
	return a.summaryStatus(ctx)
}

func (a *Legacy) Hosts(ctx context.Context) ([]model.Host, error) {
	raw, err := a.get(ctx, "/results", nil)
	if err != nil {
		return nil, err
	}
	return normalize.Hosts(raw), nil
}

func (a *Legacy) HostDetail(ctx context.Context, ip string) (model.HostDetail, error) {
	return a.hostDetail(ctx, "/host/"+url.PathEscape(ip))
}

func (a *Legacy) AlertCount(ctx context.Context) (model.AlertStats, error) {
	return a.localCount(ctx)
}

func (a *Legacy) AnalysisOverview(ctx context.Context) (*model.AnalysisOverview, error) {
	return a.localOverview(ctx)
}

func (a *Legacy) CountsLocally() bool { return true }

func (a *Legacy) OverviewFrom(ctx context.Context, alerts []model.Alert) (*model.AnalysisOverview, error) {
	return a.overviewFrom(ctx, alerts)
}

// Monitoring adds the host monitoring and alert count endpoints to the
// legacy API. The analysis view is still computed locally.
type Monitoring struct {
	common
}

// NewMonitoring creates a Monitoring adapter.
func NewMonitoring(backend Backend, mode model.SeverityMode) *Monitoring {
	return &Monitoring{common{backend: backend, mode: mode}}
}

func (a *Monitoring) Revision() string { return util.RevisionMonitoring }

func (a *Monitoring) NetworkStatus(ctx context.Context) (model.NetworkStatus, error) {
	return a.summaryStatus(ctx)
}

func (a *Monitoring) Hosts(ctx context.Context) ([]model.Host, error) {
	raw, err := a.get(ctx, "/monitoring/hosts", nil)
	if err != nil {
		return nil, err
	}
	return normalize.Hosts(raw), nil
}

func (a *Monitoring) HostDetail(ctx context.Context, ip string) (model.HostDetail, error) {
	return a.hostDetail(ctx, "/monitoring/hosts/"+url.PathEscape(ip))
}

func (a *Monitoring) AlertCount(ctx context.Context) (model.AlertStats, error) {
	return countFrom(ctx, &a.common, "/alerts/count")
}

func (a *Monitoring) AnalysisOverview(ctx context.Context) (*model.AnalysisOverview, error) {
	return a.localOverview(ctx)
}

func (a *Monitoring) CountsLocally() bool { return false }

func (a *Monitoring) OverviewFrom(ctx context.Context, alerts []model.Alert) (*model.AnalysisOverview, error) {
	return a.overviewFrom(ctx, alerts)
}

// Dashboard talks to the /api-prefixed dashboard backend, which serves
// every view directly.
type Dashboard struct {
	common
}

// NewDashboard creates a Dashboard adapter.
func NewDashboard(backend Backend, mode model.SeverityMode) *Dashboard {
	return &Dashboard{common{backend: backend, mode: mode, prefix: "/api"}}
}

func (a *Dashboard) Revision() string { return util.RevisionDashboard }

func (a *Dashboard) NetworkStatus(ctx context.Context) (model.NetworkStatus, error) {
	raw, err := a.get(ctx, "/dashboard/status", nil)
	if err != nil {
		return model.NetworkStatus{}, err
	}
	return normalize.NetworkStatus(raw, nil), nil
}

func (a *Dashboard) Hosts(ctx context.Context) ([]model.Host, error) {
	raw, err := a.get(ctx, "/monitoring/hosts", nil)
	if err != nil {
		return nil, err
	}
	return normalize.Hosts(raw), nil
}

func (a *Dashboard) HostDetail(ctx context.Context, ip string) (model.HostDetail, error) {
	return a.hostDetail(ctx, "/monitoring/hosts/"+url.PathEscape(ip))
}

func (a *Dashboard) AlertCount(ctx context.Context) (model.AlertStats, error) {
	return countFrom(ctx, &a.common, "/alerts/count")
}

func (a *Dashboard) AnalysisOverview(ctx context.Context) (*model.AnalysisOverview, error) {
	raw, err := a.get(ctx, "/analysis/overview", nil)
	if err != nil {
		return nil, err
	}
	overview, ok := normalize.AnalysisOverview(raw)
	if !ok {
		return nil, errMalformed("/analysis/overview", raw)
	}
	return overview, nil
}

var (
	_ LocalAggregator = (*Legacy)(nil)
	_ LocalAggregator = (*Monitoring)(nil)
)

func countFrom(ctx context.Context, c *common, p string) (model.AlertStats, error) {
	raw, err := c.get(ctx, p, nil)
	if err != nil {
		return model.AlertStats{}, err
	}
	stats, ok := normalize.AlertStats(raw)
	if !ok {
		return model.AlertStats{}, errMalformed(p, raw)
	}
	return stats, nil
}
