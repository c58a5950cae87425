package serving

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// VerdictResponse is the Lambda success body.
type VerdictResponse struct {
	PredictCancellationBooking string `json:"predict_cancellation_booking"`
}

// LambdaHandler serves predictions behind an API Gateway proxy integration.
type LambdaHandler struct {
	predictor *Predictor
	logger    log.Logger
}

// NewLambdaHandler creates a handler around a loaded predictor.
func NewLambdaHandler(p *Predictor) *LambdaHandler {
	return &LambdaHandler{predictor: p, logger: log.GetLoggerWithName("lambda")}
}

// Handle decodes the JSON feature object in the event body and answers with
// the verdict. Every failure, including a recovered panic, becomes a 500
// whose body carries the error message.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var verdict string
	err := errors.SafeExecute("LambdaHandler.Handle", func() error {
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				PredictionErrors.WithLabelValues(frontendLambda, stageDecode).Inc()
				return errors.Wrap(err, "decode base64 body")
			}
			body = decoded
		}

		var in BookingRequest
		if err := json.Unmarshal(body, &in); err != nil {
			PredictionErrors.WithLabelValues(frontendLambda, stageDecode).Inc()
			return errors.Wrap(err, "decode request body")
		}

		proba, err := h.predictor.Predict(&in)
		if err != nil {
			PredictionErrors.WithLabelValues(frontendLambda, errorStage(err)).Inc()
			return err
		}
		recordPrediction(frontendLambda, proba)
		verdict = Verdict(proba)
		return nil
	})
	if err != nil {
		h.logger.Error("Lambda invocation failed", err, "request_id", req.RequestContext.RequestID)
		return respond(http.StatusInternalServerError, ErrorResponse{Error: err.Error()}), nil
	}
	return respond(http.StatusOK, VerdictResponse{PredictCancellationBooking: verdict}), nil
}

func respond(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
