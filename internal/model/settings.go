package model

import (
	"fmt"
	"strings"
)

// Settings is the backend-persisted configuration edited from the UI.
type Settings struct {
	General    GeneralSettings    `json:"general" yaml:"general"`
	Monitoring MonitoringSettings `json:"monitoring" yaml:"monitoring"`
	Alerts     AlertSettings      `json:"alerts" yaml:"alerts"`
	Analysis   AnalysisSettings   `json:"analysis" yaml:"analysis"`
	API        APISettings        `json:"api" yaml:"api"`
}

// GeneralSettings holds UI-wide options.
type GeneralSettings struct {
	SystemName      string `json:"systemName" yaml:"systemName"`
	RefreshInterval int    `json:"refreshInterval" yaml:"refreshInterval"`
	AutoRefresh     bool   `json:"autoRefresh" yaml:"autoRefresh"`
	Theme           string `json:"theme" yaml:"theme"`
	Language        string `json:"language" yaml:"language"`
}

// MonitoringSettings holds monitoring view options.
type MonitoringSettings struct {
	MaxHostsDisplay int    `json:"maxHostsDisplay" yaml:"maxHostsDisplay"`
	AlertThreshold  int    `json:"alertThreshold" yaml:"alertThreshold"`
	EnableRealTime  bool   `json:"enableRealTime" yaml:"enableRealTime"`
	LogLevel        string `json:"logLevel" yaml:"logLevel"`
	DataRetention   int    `json:"dataRetention" yaml:"dataRetention"`
}

// AlertSettings holds notification options.
type AlertSettings struct {
	EmailNotifications bool       `json:"emailNotifications" yaml:"emailNotifications"`
	SMSNotifications   bool       `json:"smsNotifications" yaml:"smsNotifications"`
	WebhookURL         string     `json:"webhookUrl" yaml:"webhookUrl"`
	AlertCooldown      int        `json:"alertCooldown" yaml:"alertCooldown"`
	SeverityFilter     []Severity `json:"severityFilter" yaml:"severityFilter"`
}

// AnalysisSettings holds model tuning options.
type AnalysisSettings struct {
	ModelAccuracy      int  `json:"modelAccuracy" yaml:"modelAccuracy"`
	FalsePositiveRate  int  `json:"falsePositiveRate" yaml:"falsePositiveRate"`
	EnableAutoML       bool `json:"enableAutoML" yaml:"enableAutoML"`
	RetrainingInterval int  `json:"retrainingInterval" yaml:"retrainingInterval"`
	FeatureSelection   bool `json:"featureSelection" yaml:"featureSelection"`
}

// APISettings holds backend API options.
type APISettings struct {
	RateLimit      int  `json:"rateLimit" yaml:"rateLimit"`
	Timeout        int  `json:"timeout" yaml:"timeout"`
	EnableCORS     bool `json:"enableCors" yaml:"enableCors"`
	APIKeyRequired bool `json:"apiKeyRequired" yaml:"apiKeyRequired"`
	LogRequests    bool `json:"logRequests" yaml:"logRequests"`
}

// DefaultSettings returns the full default configuration.
func DefaultSettings() Settings {
	return Settings{
		General: GeneralSettings{
			SystemName:      "Cyber IA",
			RefreshInterval: 30,
			AutoRefresh:     true,
			Theme:           "dark",
			Language:        "pt-BR",
		},
		Monitoring: MonitoringSettings{
			MaxHostsDisplay: 100,
			AlertThreshold:  70,
			EnableRealTime:  true,
			LogLevel:        "info",
			DataRetention:   30,
		},
		Alerts: AlertSettings{
			EmailNotifications: false,
			SMSNotifications:   false,
			WebhookURL:         "",
			AlertCooldown:      300,
			SeverityFilter:     []Severity{SeverityHigh, SeverityMedium},
		},
		Analysis: AnalysisSettings{
			ModelAccuracy:      70,
			FalsePositiveRate:  5,
			EnableAutoML:       false,
			RetrainingInterval: 7,
			FeatureSelection:   true,
		},
		API: APISettings{
			RateLimit:      1000,
			Timeout:        30,
			EnableCORS:     true,
			APIKeyRequired: false,
			LogRequests:    true,
		},
	}
}

// FieldError is one rejected settings value.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every settings value outside its allowed range.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) intRange(field string, v, min, max int) {
	if v < min || v > max {
		e.add(field, "must be between %d and %d, got %d", min, max, v)
	}
}

func (e *ValidationError) oneOf(field, v string, allowed ...string) {
	for _, a := range allowed {
		if v == a {
			return
		}
	}
	e.add(field, "must be one of %s, got %q", strings.Join(allowed, ", "), v)
}

// Validate checks every option against its documented range.
// It returns nil or a *ValidationError.
func (s Settings) Validate() error {
	verr := &ValidationError{}

	verr.intRange("general.refreshInterval", s.General.RefreshInterval, 5, 300)
	verr.oneOf("general.theme", s.General.Theme, "dark", "light", "auto")

	verr.intRange("monitoring.maxHostsDisplay", s.Monitoring.MaxHostsDisplay, 10, 1000)
	verr.intRange("monitoring.alertThreshold", s.Monitoring.AlertThreshold, 0, 100)
	verr.oneOf("monitoring.logLevel", s.Monitoring.LogLevel, "debug", "info", "warning", "error")
	verr.intRange("monitoring.dataRetention", s.Monitoring.DataRetention, 1, 365)

	verr.intRange("alerts.alertCooldown", s.Alerts.AlertCooldown, 0, 3600)
	seen := make(map[Severity]bool)
	for _, sev := range s.Alerts.SeverityFilter {
		if !sev.Valid() {
			verr.add("alerts.severityFilter", "unknown severity %q", sev)
			continue
		}
		if seen[sev] {
			verr.add("alerts.severityFilter", "duplicate severity %q", sev)
		}
		seen[sev] = true
	}

	verr.intRange("analysis.modelAccuracy", s.Analysis.ModelAccuracy, 0, 100)
	verr.intRange("analysis.falsePositiveRate", s.Analysis.FalsePositiveRate, 0, 50)
	verr.intRange("analysis.retrainingInterval", s.Analysis.RetrainingInterval, 1, 90)

	verr.intRange("api.rateLimit", s.API.RateLimit, 10, 10000)
	verr.intRange("api.timeout", s.API.Timeout, 5, 300)

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.Alerts.SeverityFilter = append([]Severity(nil), s.Alerts.SeverityFilter...)
	return c
}

// SaveStatus is the user-visible result of a settings write.
type SaveStatus string

const (
	SaveSuccess SaveStatus = "success"
	SaveError   SaveStatus = "error"
	SaveReset   SaveStatus = "reset"
)
