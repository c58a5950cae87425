package serving

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// maxBodyBytes bounds request bodies on /predict.
const maxBodyBytes = 1 << 20

// ProbabilityResponse is the /predict success body.
type ProbabilityResponse struct {
	PredictCancellationBooking float64 `json:"predict_cancellation_booking"`
}

// ErrorResponse is the error body of both front ends.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves predictions over HTTP.
type Handler struct {
	predictor *Predictor
	logger    log.Logger
}

// NewHandler creates a Handler around a loaded predictor.
func NewHandler(p *Predictor) *Handler {
	return &Handler{predictor: p, logger: log.GetLoggerWithName("http")}
}

// NewRouter returns the chi router with /predict, /healthz and /metrics.
func NewRouter(p *Predictor) http.Handler {
	h := NewHandler(p)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.instrument)

	r.Post("/predict", h.Predict)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Predict handles POST /predict. Undecodable or invalid bodies are 400,
// inference failures 500.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		PredictionErrors.WithLabelValues(frontendHTTP, stageDecode).Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	proba, err := h.predictor.Predict(&req)
	if err != nil {
		stage := errorStage(err)
		PredictionErrors.WithLabelValues(frontendHTTP, stage).Inc()
		status := http.StatusInternalServerError
		if stage == stageValidate {
			status = http.StatusBadRequest
		} else {
			h.logger.Error("Prediction failed", err, log.OperationKey, log.OperationPredict)
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return
	}

	recordPrediction(frontendHTTP, proba)
	writeJSON(w, http.StatusOK, ProbabilityResponse{PredictCancellationBooking: proba})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"features": len(h.predictor.FeatureNames()),
	})
}

// instrument logs each request and records its latency.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(elapsed.Seconds())
		h.logger.Info("HTTP request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"request_id", chimiddleware.GetReqID(r.Context()),
			log.DurationMsKey, elapsed.Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLoggerWithName("http").Error("Failed to encode JSON response", err)
	}
}

func isValidation(err error) bool {
	var vErr *errors.ValidationError
	return errors.As(err, &vErr)
}
