package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "LoadArtifact",
			kind:    "decode failed",
			err:     fmt.Errorf("unexpected EOF"),
			wantMsg: "bookingrisk: LoadArtifact: decode failed: unexpected EOF",
		},
		{
			name:    "without original error",
			op:      "LoadArtifact",
			kind:    "missing booster",
			err:     nil,
			wantMsg: "bookingrisk: LoadArtifact: missing booster",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("DictVectorizer.Transform", 31, 30, 1)

	want := "bookingrisk: DictVectorizer.Transform: dimension mismatch on axis 1 (features). Expected 31, got 30"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("DictVectorizer", "Transform")

	want := "bookingrisk: DictVectorizer: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("lead_time", "is required", nil)

	var vErr *ValidationError
	if !As(err, &vErr) {
		t.Fatal("Error should be castable to *ValidationError")
	}
	if vErr.ParamName != "lead_time" {
		t.Errorf("ParamName = %q", vErr.ParamName)
	}
}

func TestWarn_UsesZerologFuncWhenSet(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))

	if len(got) != 1 {
		t.Fatalf("expected one warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "'precision' is ill-defined") {
		t.Errorf("unexpected warning text %q", got[0].Error())
	}
}

func TestWarn_FallsBackToHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	Warn(NewDataConversionWarning("2021-09-31", "2018-02-28", "invalid arrival date"))

	if got == nil {
		t.Fatal("handler was not called")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("gradient", []float64{0.1, -0.2}, 0); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	err := CheckNumericalStability("gradient", []float64{0.1, math.NaN(), math.Inf(1)}, 3)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 3 || len(numErr.Values) != 2 {
		t.Errorf("unexpected error contents %+v", numErr)
	}
}

func TestSigmoidLogit(t *testing.T) {
	if Sigmoid(0) != 0.5 {
		t.Errorf("Sigmoid(0) = %v", Sigmoid(0))
	}
	if s := Sigmoid(-1000); s < 0 || s > 1e-300 {
		t.Errorf("Sigmoid(-1000) = %v", s)
	}
	if s := Sigmoid(1000); s != 1 {
		t.Errorf("Sigmoid(1000) = %v", s)
	}
	for _, p := range []float64{0.1, 0.5, 0.9} {
		if got := Sigmoid(Logit(p)); math.Abs(got-p) > 1e-12 {
			t.Errorf("Sigmoid(Logit(%v)) = %v", p, got)
		}
	}
}
