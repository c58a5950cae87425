package errors

import (
	"math"
)

// CheckNumericalStability returns a NumericalInstabilityError when any of the
// values is NaN or Inf. Only the first offending values are kept for the message.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, v)
			if len(bad) >= 10 {
				break
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, iteration)
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// ClipValue clips a value to the range [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Sigmoid maps a raw margin to a probability without overflowing for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1.0 + z)
}

// Logit is the inverse of Sigmoid. p is clipped away from 0 and 1.
func Logit(p float64) float64 {
	p = ClipValue(p, 1e-15, 1-1e-15)
	return math.Log(p / (1 - p))
}
