// Package serving exposes a loaded cancellation model to the HTTP server and
// the Lambda handler.
package serving

import (
	"github.com/YuminosukeSato/bookingrisk/dataset"
	"github.com/YuminosukeSato/bookingrisk/metrics"
	"github.com/YuminosukeSato/bookingrisk/pipeline"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
	"github.com/YuminosukeSato/bookingrisk/pkg/validation"
	"github.com/YuminosukeSato/bookingrisk/sklearn/feature_extraction"
	"github.com/YuminosukeSato/bookingrisk/sklearn/xgboost"
)

// Verdicts returned by Verdict.
const (
	VerdictCancel   = "Highly probable to be cancelled"
	VerdictNoCancel = "There is no risk of cancellation"
)

// Verdict maps a cancellation probability to its human-readable verdict.
// The 0.5 boundary counts as a cancellation.
func Verdict(p float64) string {
	if p >= metrics.DefaultThreshold {
		return VerdictCancel
	}
	return VerdictNoCancel
}

// Predictor is a loaded, read-only model. It is safe for concurrent use.
type Predictor struct {
	vectorizer *feature_extraction.DictVectorizer
	booster    *xgboost.Booster
}

// NewPredictor wraps a validated artifact.
func NewPredictor(art *pipeline.Artifact) (*Predictor, error) {
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{vectorizer: art.Vectorizer, booster: art.Booster}, nil
}

// LoadPredictor reads the artifact at path. Callers treat failure as fatal.
func LoadPredictor(path string) (*Predictor, error) {
	art, err := pipeline.LoadArtifact(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load predictor from %s", path)
	}
	return NewPredictor(art)
}

// FeatureNames returns the model's input columns.
func (p *Predictor) FeatureNames() []string {
	return p.vectorizer.FeatureNames()
}

// PredictProba returns the cancellation probability of one feature record.
// Unknown keys and unseen categorical values are ignored.
func (p *Predictor) PredictProba(rec feature_extraction.Record) (float64, error) {
	row, err := p.vectorizer.TransformOne(rec)
	if err != nil {
		return 0, err
	}
	proba, err := p.booster.PredictProbaOne(row)
	if err != nil {
		return 0, err
	}
	if err := errors.CheckScalar("PredictProba", proba, -1); err != nil {
		return 0, err
	}
	return proba, nil
}

// Predict validates req and returns its cancellation probability.
func (p *Predictor) Predict(req *BookingRequest) (float64, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	proba, err := p.PredictProba(req.Record())
	if err != nil {
		return 0, err
	}
	log.GetLoggerWithName("serving").Debug("Prediction",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.ConfidenceKey, proba,
		log.VerdictKey, Verdict(proba),
	)
	return proba, nil
}

// BookingRequest is the feature object accepted by both front ends.
// Numeric fields are pointers so a supplied zero differs from a missing field.
type BookingRequest struct {
	TypeOfMealPlan    string `json:"type_of_meal_plan" validate:"required"`
	RoomTypeReserved  string `json:"room_type_reserved" validate:"required"`
	MarketSegmentType string `json:"market_segment_type" validate:"required"`
	Wday              string `json:"wday" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`

	NoOfWeekendNights       *float64 `json:"no_of_weekend_nights" validate:"required,gte=0"`
	NoOfWeekNights          *float64 `json:"no_of_week_nights" validate:"required,gte=0"`
	RequiredCarParkingSpace *float64 `json:"required_car_parking_space" validate:"required,gte=0,lte=1"`
	LeadTime                *float64 `json:"lead_time" validate:"required,gte=0"`
	RepeatedGuest           *float64 `json:"repeated_guest" validate:"required,gte=0,lte=1"`
	PricePerPerson          *float64 `json:"price_per_person" validate:"required,gte=0"`
	AvgPricePerRoom         *float64 `json:"avg_price_per_room" validate:"required,gte=0"`
	NoOfSpecialRequests     *float64 `json:"no_of_special_requests" validate:"required,gte=0"`
	TotalNights             *float64 `json:"total_nights" validate:"required,gte=0"`
	ArrivalMonth            *float64 `json:"arrival_month" validate:"required,gte=1,lte=12"`
	NoOfAdults              *float64 `json:"no_of_adults" validate:"required,gte=0"`
	HaveChildren            *float64 `json:"have_children" validate:"required,gte=0,lte=1"`
}

// Record converts a validated request to the vectorizer's input. Textual
// values are normalised like the training data; wday keeps its case.
func (r *BookingRequest) Record() feature_extraction.Record {
	return feature_extraction.Record{
		dataset.ColTypeOfMealPlan:          dataset.Normalize(r.TypeOfMealPlan),
		dataset.ColRoomTypeReserved:        dataset.Normalize(r.RoomTypeReserved),
		dataset.ColMarketSegmentType:       dataset.Normalize(r.MarketSegmentType),
		dataset.ColWday:                    r.Wday,
		dataset.ColNoOfWeekendNights:       deref(r.NoOfWeekendNights),
		dataset.ColNoOfWeekNights:          deref(r.NoOfWeekNights),
		dataset.ColRequiredCarParkingSpace: deref(r.RequiredCarParkingSpace),
		dataset.ColLeadTime:                deref(r.LeadTime),
		dataset.ColRepeatedGuest:           deref(r.RepeatedGuest),
		dataset.ColPricePerPerson:          deref(r.PricePerPerson),
		dataset.ColAvgPricePerRoom:         deref(r.AvgPricePerRoom),
		dataset.ColNoOfSpecialRequests:     deref(r.NoOfSpecialRequests),
		dataset.ColTotalNights:             deref(r.TotalNights),
		dataset.ColArrivalMonth:            deref(r.ArrivalMonth),
		dataset.ColNoOfAdults:              deref(r.NoOfAdults),
		dataset.ColHaveChildren:            deref(r.HaveChildren),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
