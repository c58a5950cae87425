package xgboost

import (
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// ObjectiveBinaryLogistic is the only supported objective.
const ObjectiveBinaryLogistic = "binary:logistic"

// Params contains the booster hyperparameters.
type Params struct {
	// Basic parameters
	NumRounds      int     `json:"num_boost_round"`
	LearningRate   float64 `json:"eta"`
	MaxDepth       int     `json:"max_depth"`
	MinChildWeight float64 `json:"min_child_weight"`

	// Regularization
	Lambda float64 `json:"lambda"`
	Gamma  float64 `json:"gamma"`

	// Objective
	Objective string  `json:"objective"`
	BaseScore float64 `json:"base_score"`

	// Early stopping on the last evaluation set; 0 disables it.
	EarlyStoppingRounds int `json:"early_stopping_rounds"`

	// Evaluation is logged every VerboseEval rounds; 0 disables logging.
	VerboseEval int `json:"verbose_eval"`

	// NThread bounds split-search goroutines; 0 uses all CPUs.
	NThread int `json:"nthread"`
}

// DefaultParams returns the hyperparameters the cancellation model is trained with.
func DefaultParams() Params {
	return Params{
		NumRounds:           200,
		LearningRate:        0.1,
		MaxDepth:            12,
		MinChildWeight:      1,
		Lambda:              1,
		Gamma:               0,
		Objective:           ObjectiveBinaryLogistic,
		BaseScore:           0.5,
		EarlyStoppingRounds: 5,
		VerboseEval:         5,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.NumRounds < 1:
		return errors.NewValidationError("num_boost_round", "must be at least 1", p.NumRounds)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return errors.NewValidationError("eta", "must be in (0, 1]", p.LearningRate)
	case p.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1", p.MaxDepth)
	case p.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda", "must be non-negative", p.Lambda)
	case p.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", p.Gamma)
	case p.Objective != ObjectiveBinaryLogistic:
		return errors.NewValidationError("objective", "only binary:logistic is supported", p.Objective)
	case p.BaseScore <= 0 || p.BaseScore >= 1:
		return errors.NewValidationError("base_score", "must be in (0, 1)", p.BaseScore)
	case p.EarlyStoppingRounds < 0:
		return errors.NewValidationError("early_stopping_rounds", "must be non-negative", p.EarlyStoppingRounds)
	}
	return nil
}
