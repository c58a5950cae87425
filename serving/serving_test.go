package serving

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bookingrisk/dataset"
	"github.com/YuminosukeSato/bookingrisk/pipeline"
	"github.com/YuminosukeSato/bookingrisk/pkg/config"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

const exampleBody = `{
	"type_of_meal_plan": "meal_plan_1",
	"room_type_reserved": "room_type_6",
	"market_segment_type": "online",
	"wday": "Wednesday",
	"no_of_weekend_nights": 1,
	"no_of_week_nights": 1,
	"required_car_parking_space": 0,
	"lead_time": 31,
	"repeated_guest": 0,
	"price_per_person": 81.0,
	"avg_price_per_room": 162.35,
	"no_of_special_requests": 0,
	"total_nights": 2,
	"arrival_month": 6,
	"no_of_adults": 2,
	"have_children": 0
}`

var (
	fixtureOnce sync.Once
	fixtureArt  *pipeline.Artifact
	fixtureErr  error
)

func artifact(t *testing.T) *pipeline.Artifact {
	t.Helper()
	fixtureOnce.Do(func() {
		examples, err := dataset.Engineer(dataset.Synthetic(300, 21))
		if err != nil {
			fixtureErr = err
			return
		}
		cfg := config.Default().Train
		cfg.NumRounds = 15
		cfg.MaxDepth = 4
		cfg.EvalPeriod = 0
		fixtureArt, fixtureErr = pipeline.Fit(examples, nil, cfg)
	})
	require.NoError(t, fixtureErr)
	return fixtureArt
}

func predictor(t *testing.T) *Predictor {
	t.Helper()
	p, err := NewPredictor(artifact(t))
	require.NoError(t, err)
	return p
}

func exampleRequest(t *testing.T) *BookingRequest {
	t.Helper()
	var req BookingRequest
	require.NoError(t, json.Unmarshal([]byte(exampleBody), &req))
	return &req
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, VerdictCancel, Verdict(0.5))
	assert.Equal(t, VerdictCancel, Verdict(0.93))
	assert.Equal(t, VerdictNoCancel, Verdict(0.4999999))
	assert.Equal(t, VerdictNoCancel, Verdict(0))
}

func TestPredictor_PredictProba(t *testing.T) {
	p := predictor(t)
	req := exampleRequest(t)

	proba, err := p.Predict(req)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, proba, 0.0)
	assert.LessOrEqual(t, proba, 1.0)

	again, err := p.Predict(req)
	require.NoError(t, err)
	assert.Equal(t, proba, again)
}

func TestPredictor_UnseenCategory(t *testing.T) {
	p := predictor(t)
	rec := exampleRequest(t).Record()
	rec["room_type_reserved"] = "room_type_99"
	rec["unknown_column"] = "whatever"

	proba, err := p.PredictProba(rec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, proba, 0.0)
	assert.LessOrEqual(t, proba, 1.0)
}

func TestPredictor_Validation(t *testing.T) {
	p := predictor(t)

	req := exampleRequest(t)
	req.LeadTime = nil
	_, err := p.Predict(req)
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "lead_time", vErr.ParamName)

	req = exampleRequest(t)
	req.Wday = "Someday"
	_, err = p.Predict(req)
	assert.True(t, errors.As(err, &vErr))

	zero := 0.0
	req = exampleRequest(t)
	req.LeadTime = &zero
	_, err = p.Predict(req)
	assert.NoError(t, err, "a supplied zero is valid")
}

func TestBookingRequest_RecordNormalises(t *testing.T) {
	req := exampleRequest(t)
	req.TypeOfMealPlan = "Meal Plan 1"
	rec := req.Record()
	assert.Equal(t, "meal_plan_1", rec["type_of_meal_plan"])
	assert.Equal(t, "Wednesday", rec["wday"])
	assert.Equal(t, 162.35, rec["avg_price_per_room"])
}

func TestLoadPredictor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, pipeline.SaveArtifact(path, artifact(t)))

	p, err := LoadPredictor(path)
	require.NoError(t, err)
	assert.Equal(t, artifact(t).Vectorizer.FeatureNames(), p.FeatureNames())

	_, err = LoadPredictor(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)

	_, err = NewPredictor(&pipeline.Artifact{})
	assert.Error(t, err)
}

func TestHTTP_Predict(t *testing.T) {
	srv := httptest.NewServer(NewRouter(predictor(t)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(exampleBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	proba, ok := out["predict_cancellation_booking"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, proba, 0.0)
	assert.LessOrEqual(t, proba, 1.0)
}

func TestHTTP_BadRequests(t *testing.T) {
	router := NewRouter(predictor(t))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "booking please", "invalid JSON body"},
		{"missing field", `{"type_of_meal_plan": "meal_plan_1"}`, "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var out ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Contains(t, out.Error, tt.want)
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	router := NewRouter(predictor(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(exampleBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookingrisk_predictions_total")
	assert.Contains(t, rec.Body.String(), "bookingrisk_http_request_duration_seconds")
}

func TestLambda_ExampleRecord(t *testing.T) {
	h := NewLambdaHandler(predictor(t))

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: exampleBody})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out VerdictResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	assert.Contains(t, []string{VerdictCancel, VerdictNoCancel}, out.PredictCancellationBooking)
}

func TestLambda_Base64Body(t *testing.T) {
	h := NewLambdaHandler(predictor(t))

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(exampleBody)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLambda_Errors(t *testing.T) {
	h := NewLambdaHandler(predictor(t))

	tests := []struct {
		name string
		body string
	}{
		{"non json", "this is not json"},
		{"empty", ""},
		{"missing fields", `{"wday": "Monday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

			var out ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestLambda_RecoversPanics(t *testing.T) {
	h := NewLambdaHandler(&Predictor{})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: exampleBody})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, "error")
}
