// Package metrics exposes Prometheus instruments for prediction traffic and
// the model lifecycle. They are registered on the default registry and served
// at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RetrainOutcomeAdopted          = "adopted"
	RetrainOutcomeRejected         = "rejected"
	RetrainOutcomeInsufficientData = "insufficient_data"
	RetrainOutcomeFailed           = "failed"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_predictions_total",
			Help: "Total number of engagement predictions served",
		},
		[]string{"model"},
	)

	PredictionScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engagement_prediction_score",
			Help:    "Distribution of predicted engagement scores",
			Buckets: []float64{10, 20, 30, 40, 50, 55, 60, 65, 70, 75, 80, 90, 100},
		},
	)

	RetrainTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_retrain_total",
			Help: "Retrain runs by outcome",
		},
		[]string{"model", "outcome"},
	)

	RetrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engagement_retrain_duration_seconds",
			Help:    "Duration of retrain runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ActiveModelAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engagement_active_model_accuracy",
			Help: "Evaluation accuracy of the active model when it was adopted",
		},
		[]string{"model"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status_code"},
	)
)
