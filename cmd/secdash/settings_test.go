package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secdash/internal/model"
)

func TestApplyAssignments(t *testing.T) {
	settings, err := applyAssignments(model.DefaultSettings(), []string{
		"general.theme=light",
		"monitoring.alertThreshold=85",
		"api.enableCors=false",
		"alerts.severityFilter=high, low",
	})
	require.NoError(t, err)

	assert.Equal(t, "light", settings.General.Theme)
	assert.Equal(t, 85, settings.Monitoring.AlertThreshold)
	assert.False(t, settings.API.EnableCORS)
	assert.Equal(t, []model.Severity{model.SeverityHigh, model.SeverityLow}, settings.Alerts.SeverityFilter)
	assert.Equal(t, "Cyber IA", settings.General.SystemName)
}

func TestApplyAssignmentsErrors(t *testing.T) {
	cases := []string{
		"general.theme",
		"nope.theme=x",
		"general.nope=x",
		"general=x",
		"monitoring.alertThreshold=high",
		"api.enableCors=maybe",
	}
	for _, a := range cases {
		_, err := applyAssignments(model.DefaultSettings(), []string{a})
		assert.Error(t, err, a)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("general:\n  theme: light\nmonitoring:\n  alertThreshold: 200\n"), 0644))
	settings, err := loadSettingsFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "light", settings.General.Theme)
	assert.Equal(t, "pt-BR", settings.General.Language)

	var verr *model.ValidationError
	require.ErrorAs(t, settings.Validate(), &verr)
	assert.Equal(t, "monitoring.alertThreshold", verr.Fields[0].Field)

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"api": {"rateLimit": 50}}`), 0644))
	settings, err = loadSettingsFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 50, settings.API.RateLimit)
	assert.NoError(t, settings.Validate())

	_, err = loadSettingsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
