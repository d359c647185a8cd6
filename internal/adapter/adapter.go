// Package adapter maps each backend revision's endpoints onto the common
// view-models. One ResponseAdapter exists per revision and is selected by
// configuration; call sites never inspect payload shapes themselves.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/transport"
	"github.com/user/secdash/internal/util"
)

// ErrHostNotFound is returned when a host detail payload names no host.
var ErrHostNotFound = errors.New("host not found")

// Backend is the subset of the transport client the adapters use.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error)
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	PostMultipart(ctx context.Context, path string, file transport.FilePart, fields map[string]string, out any) error
}

// ResponseAdapter fetches and normalizes every backend resource. Errors are
// returned unchanged; substituting fallbacks is the caller's job.
type ResponseAdapter interface {
	Revision() string

	NetworkStatus(ctx context.Context) (model.NetworkStatus, error)
	Hosts(ctx context.Context) ([]model.Host, error)
	HostDetail(ctx context.Context, ip string) (model.HostDetail, error)
	Alerts(ctx context.Context) ([]model.Alert, error)
	AlertCount(ctx context.Context) (model.AlertStats, error)
	AnalysisOverview(ctx context.Context) (*model.AnalysisOverview, error)

	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) error

	RunInference(ctx context.Context, file *transport.FilePart) (any, error)
	LatestResults(ctx context.Context) (any, error)
	Upload(ctx context.Context, file transport.FilePart, dataType string) (any, error)
	Logs(ctx context.Context, limit int) ([]model.LogLine, error)

	StartTraining(ctx context.Context, params map[string]any) (model.TrainingJob, error)
	TrainingStatus(ctx context.Context, id string) (model.TrainingJob, error)

	Reports(ctx context.Context) ([]model.BackendReport, error)
	GenerateReport(ctx context.Context, reportType string) (any, error)
	DownloadReport(ctx context.Context, id string) ([]byte, error)
}

// LocalAggregator is implemented by revisions that derive views from the
// alert list instead of dedicated endpoints. A refresh cycle hands over the
// list it already fetched so every view comes from the same batch.
type LocalAggregator interface {
	// CountsLocally reports whether AlertCount aggregates the alert list.
	CountsLocally() bool
	OverviewFrom(ctx context.Context, alerts []model.Alert) (*model.AnalysisOverview, error)
}

// New returns the adapter for revision.
func New(revision string, backend Backend, mode model.SeverityMode) (ResponseAdapter, error) {
	switch revision {
	case util.RevisionLegacy:
		return NewLegacy(backend, mode), nil
	case util.RevisionMonitoring:
		return NewMonitoring(backend, mode), nil
	case util.RevisionDashboard:
		return NewDashboard(backend, mode), nil
	}
	return nil, fmt.Errorf("unknown backend revision %q", revision)
}

func errMalformed(path string, raw any) error {
	return fmt.Errorf("%w: %s: unexpected %T", transport.ErrMalformedPayload, path, raw)
}
