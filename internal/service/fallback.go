package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/transport"
	"github.com/user/secdash/internal/util"
)

// Resource names used in logs, metrics and snapshot failure maps.
const (
	ResourceNetwork          = "network"
	ResourceHosts            = "hosts"
	ResourceHostDetail       = "host_detail"
	ResourceAlerts           = "alerts"
	ResourceAlertCount       = "alert_count"
	ResourceAnalysis         = "analysis"
	ResourceSettings         = "settings"
	ResourceLogs             = "logs"
	ResourceInferenceResults = "inference_results"
	ResourceReports          = "reports"
	ResourceTrainingStatus   = "training_status"
)

// ErrUnavailable wraps failures of user-initiated writes.
var ErrUnavailable = errors.New("backend unavailable")

// Classify names the kind of a read failure.
func Classify(err error) model.FailureKind {
	if errors.Is(err, context.Canceled) {
		return model.FailureCanceled
	}
	if errors.Is(err, transport.ErrMalformedPayload) {
		return model.FailureMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.FailureTimeout
	}

	var terr *transport.TransportError
	if errors.As(err, &terr) {
		if terr.Timeout() {
			return model.FailureTimeout
		}
		if terr.Status != 0 {
			return model.FailureStatus
		}
	}
	return model.FailureTransport
}

// fallback records a read that degraded to its default value.
func fallback(resource string, err error) model.FailureKind {
	kind := Classify(err)
	metrics.FallbacksTotal.WithLabelValues(resource, string(kind)).Inc()

	fields := []zap.Field{
		zap.String("resource", resource),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if kind == model.FailureCanceled {
		util.L().Debug("Fetch canceled, using default", fields...)
	} else {
		util.L().Warn("Fetch failed, using default", fields...)
	}
	return kind
}

// OfflineStatus is the network status shown when the backend is unreachable.
func OfflineStatus() model.NetworkStatus {
	return model.NetworkStatus{
		Status:                model.StateOffline,
		TopProtocols:          append([]string(nil), model.DefaultProtocols...),
		TopProtocolsEstimated: true,
	}
}

// ZeroStats is the alert count shown when no count source is available.
func ZeroStats() model.AlertStats {
	return model.AlertStats{Source: model.StatsFromFallback}
}
