package xgboost

import (
	"math"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// hessianFloor keeps hessians positive once predictions saturate.
const hessianFloor = 1e-16

// LogisticObjective is the binary logistic loss on raw margins.
type LogisticObjective struct{}

// Gradients fills grad and hess for margins against labels:
// g = p - y, h = p(1 - p) with p = sigmoid(margin).
func (LogisticObjective) Gradients(margins, labels, grad, hess []float64) {
	for i, m := range margins {
		p := errors.Sigmoid(m)
		grad[i] = p - labels[i]
		hess[i] = math.Max(p*(1-p), hessianFloor)
	}
}

// Transform maps a raw margin to a probability.
func (LogisticObjective) Transform(margin float64) float64 {
	return errors.Sigmoid(margin)
}

// InitMargin converts a base score probability to a margin.
func (LogisticObjective) InitMargin(baseScore float64) float64 {
	return errors.Logit(baseScore)
}

// LogLoss is the mean negative log-likelihood of margins against labels.
func (LogisticObjective) LogLoss(margins, labels []float64) float64 {
	if len(margins) == 0 {
		return 0
	}
	const eps = 1e-16
	var sum float64
	for i, m := range margins {
		p := errors.ClipValue(errors.Sigmoid(m), eps, 1-eps)
		if labels[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(margins))
}
