package serving

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal counts served predictions by verdict and front end.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingrisk_predictions_total",
			Help: "Total number of cancellation predictions served",
		},
		[]string{"frontend", "verdict"},
	)

	// PredictionErrors counts rejected or failed requests by stage.
	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingrisk_prediction_errors_total",
			Help: "Total number of failed prediction requests",
		},
		[]string{"frontend", "stage"},
	)

	// PredictionProbability tracks the distribution of served probabilities.
	PredictionProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookingrisk_prediction_probability",
			Help:    "Distribution of predicted cancellation probabilities",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)

	// RequestDuration tracks HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookingrisk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Front end and stage label values.
const (
	frontendHTTP   = "http"
	frontendLambda = "lambda"

	stageDecode    = "decode"
	stageValidate  = "validate"
	stageInference = "inference"
)

func recordPrediction(frontend string, proba float64) {
	PredictionsTotal.WithLabelValues(frontend, Verdict(proba)).Inc()
	PredictionProbability.Observe(proba)
}

// errorStage classifies err for the error counter.
func errorStage(err error) string {
	if isValidation(err) {
		return stageValidate
	}
	return stageInference
}
