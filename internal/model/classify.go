package model

import "fmt"

// Score thresholds shared by every score-to-status decision.
const (
	DangerousScoreThreshold  = 70.0
	SuspiciousScoreThreshold = 30.0
)

// ClassifyScore maps an anomaly score to a host status.
// The dangerous boundary is exclusive: 70 is suspicious, 70.01 is dangerous.
func ClassifyScore(score float64) HostStatus {
	switch {
	case score > DangerousScoreThreshold:
		return HostDangerous
	case score > SuspiciousScoreThreshold:
		return HostSuspicious
	default:
		return HostSafe
	}
}

// SeverityMode selects how alert severity is derived when the backend
// does not send one.
type SeverityMode string

const (
	// SeverityBinary maps combined_flag 1 to high and 0 to low. No medium.
	SeverityBinary SeverityMode = "binary"
	// SeverityGraded also maps unflagged alerts with a score above the
	// suspicious threshold to medium.
	SeverityGraded SeverityMode = "graded"
)

// ParseSeverityMode parses a configured severity mode.
func ParseSeverityMode(s string) (SeverityMode, error) {
	switch SeverityMode(s) {
	case SeverityBinary, SeverityGraded:
		return SeverityMode(s), nil
	case "":
		return SeverityBinary, nil
	}
	return "", fmt.Errorf("unknown severity mode %q", s)
}

// DeriveSeverity picks an alert severity.
//
// An explicit backend severity always wins. Otherwise the binary flag
// decides high versus not-high; in graded mode a not-flagged alert with a
// score above 30 becomes medium. With no flag, a score alone is graded with
// the host thresholds. Nothing at all yields low.
func DeriveSeverity(explicit *Severity, flag *int, score *float64, mode SeverityMode) Severity {
	if explicit != nil && explicit.Valid() {
		return *explicit
	}
	if flag != nil {
		if *flag == 1 {
			return SeverityHigh
		}
		if mode == SeverityGraded && score != nil && *score > SuspiciousScoreThreshold {
			return SeverityMedium
		}
		return SeverityLow
	}
	if score != nil {
		switch ClassifyScore(*score) {
		case HostDangerous:
			return SeverityHigh
		case HostSuspicious:
			if mode == SeverityGraded {
				return SeverityMedium
			}
		}
	}
	return SeverityLow
}
