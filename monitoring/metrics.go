// Package monitoring exposes prediction metrics and watches the loaded
// artifacts on disk.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records prediction outcomes. A nil *Metrics records nothing.
type Metrics struct {
	predictions    *prometheus.CounterVec
	rows           *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	missingColumns *prometheus.CounterVec
	artifactStale  prometheus.Gauge
}

// NewMetrics registers the prediction collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsales",
			Name:      "predictions_total",
			Help:      "Prediction requests by mode and outcome.",
		}, []string{"mode", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsales",
			Name:      "predicted_rows_total",
			Help:      "Rows scored successfully.",
		}, []string{"mode"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adsales",
			Name:      "prediction_duration_seconds",
			Help:      "Validate and predict time per request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"mode"}),
		missingColumns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsales",
			Name:      "missing_columns_total",
			Help:      "Requests rejected for lacking a schema column, by column.",
		}, []string{"column"}),
		artifactStale: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "adsales",
			Name:      "artifact_stale",
			Help:      "1 when an artifact file changed on disk after it was loaded.",
		}),
	}
}

// ObservePrediction records one request.
func (m *Metrics) ObservePrediction(mode, status string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(mode, status).Inc()
	m.latency.WithLabelValues(mode).Observe(elapsed.Seconds())
	if status == "ok" {
		m.rows.WithLabelValues(mode).Add(float64(rows))
	}
}

func (m *Metrics) ObserveMissingColumns(columns []string) {
	if m == nil {
		return
	}
	for _, c := range columns {
		m.missingColumns.WithLabelValues(c).Inc()
	}
}

// MarkArtifactStale flags that the process is serving outdated artifacts.
func (m *Metrics) MarkArtifactStale() {
	if m == nil {
		return
	}
	m.artifactStale.Set(1)
}
