package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/open-observatory/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	logger.Debug("hidden")
	logger.Info("observation created", "id", 12)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "observation created", entry["msg"])
	assert.InDelta(t, 12, entry["id"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "text", "debug")

	logger.Debug("catalog loaded", "bodies", 3)
	assert.Contains(t, buf.String(), "msg=\"catalog loaded\"")
	assert.Contains(t, buf.String(), "bodies=3")
}

func TestNewLoggerTo_UsesConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, &config.Config{LogFormat: "text", LogLevel: "warn"})

	logger.Info("hidden")
	logger.Warn("refresh after vote failed", "id", 12)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "id=12")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.Submissions.WithLabelValues("created").Inc()
	m.AchievementFallbacks.WithLabelValues("SPITZER").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.InDelta(t, 1, values["observatory_submissions_total"], 0)
	assert.InDelta(t, 1, values["observatory_achievement_fallbacks_total"], 0)
}

func TestNewMetricsWith_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.ReportsSubmitted.Inc()

	assert.Panics(t, func() { NewMetricsWith(reg) })
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
