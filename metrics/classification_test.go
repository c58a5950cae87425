package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "Worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "Random classifier",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "All positive labels",
			yTrue: []float64{1, 1, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:  "All negative labels",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := AUC(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUC() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   mat.Matrix
		yPred   mat.Matrix
		want    float64
		wantErr bool
	}{
		{
			name:  "Matrix input",
			yTrue: mat.NewDense(4, 1, []float64{0, 0, 1, 1}),
			yPred: mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8}),
			want:  0.75,
		},
		{
			name:  "Multi-column matrix (uses first column)",
			yTrue: mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
			yPred: mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
			want:  0.75,
		},
		{
			name:    "Nil matrix",
			yTrue:   nil,
			yPred:   mat.NewDense(1, 1, []float64{0.5}),
			wantErr: true,
		},
		{
			name:    "Empty matrix",
			yTrue:   &mat.Dense{},
			yPred:   &mat.Dense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCMatrix(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUCMatrix() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUCMatrix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 0, 1, 1},
			want:  0.0, // Will be small epsilon value due to clipping
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.2, 0.8, 0.9},
			want:  0.164252, // Approximate expected value
		},
		{
			name:  "Worst predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.9, 0.9, 0.1, 0.1},
			want:  2.3025851, // Approximate expected value
		},
		{
			name:  "Clipping edge case",
			yTrue: []float64{0, 1},
			yPred: []float64{0, 1}, // Will be clipped to avoid log(0)
			want:  0.0,             // Small value due to epsilon
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := BinaryLogLoss(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("BinaryLogLoss() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("BinaryLogLoss() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassificationError(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classification",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  0.0,
		},
		{
			name:  "One error",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.2,
		},
		{
			name:  "All wrong",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  1.0,
		},
		{
			name:  "Binary classification",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 1, 1, 0},
			want:  0.5,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := ClassificationError(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("ClassificationError() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ClassificationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := Accuracy(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfusionMatrixScores(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	yPred := mat.NewVecDense(6, []float64{1, 1, 0, 1, 0, 0})

	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if cm != (ConfusionMatrix{TP: 2, FP: 1, TN: 2, FN: 1}) {
		t.Fatalf("unexpected confusion matrix %+v", cm)
	}

	p, _ := Precision(yTrue, yPred)
	r, _ := Recall(yTrue, yPred)
	f, _ := F1Score(yTrue, yPred)
	for name, got := range map[string]float64{"precision": p, "recall": r, "f1": f} {
		if math.Abs(got-2.0/3.0) > 1e-9 {
			t.Errorf("%s = %v, want 2/3", name, got)
		}
	}
}

func TestPrecision_NoPredictedPositives(t *testing.T) {
	var warned error
	errors.SetWarningHandler(func(w error) { warned = w })
	defer errors.SetWarningHandler(nil)

	got, err := Precision(mat.NewVecDense(2, []float64{1, 0}), mat.NewVecDense(2, []float64{0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("Precision() = %v, want 0", got)
	}
	var umw *errors.UndefinedMetricWarning
	if !errors.As(warned, &umw) {
		t.Errorf("expected UndefinedMetricWarning, got %v", warned)
	}
}

func TestROCCurve(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	fpr, tpr, thresh, err := ROCCurve(yTrue, yScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(fpr) != 5 || len(tpr) != 5 || len(thresh) != 5 {
		t.Fatalf("unexpected curve lengths %d %d %d", len(fpr), len(tpr), len(thresh))
	}
	if fpr[0] != 0 || tpr[0] != 0 || fpr[4] != 1 || tpr[4] != 1 {
		t.Errorf("curve should run from (0,0) to (1,1): fpr=%v tpr=%v", fpr, tpr)
	}
	if !math.IsInf(thresh[0], 1) {
		t.Errorf("thresh[0] = %v, want +Inf", thresh[0])
	}

	if _, _, _, err := ROCCurve(mat.NewVecDense(2, []float64{1, 1}), mat.NewVecDense(2, []float64{0.2, 0.3})); err == nil {
		t.Error("expected error for single-class labels")
	}
}

func TestScore(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1}
	proba := []float64{0.1, 0.6, 0.4, 0.9}

	s, err := Score(yTrue, proba, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	want := BinaryScores{Accuracy: 0.5, Precision: 0.5, Recall: 0.5, F1: 0.5, ROCAUC: 0.75}
	if math.Abs(s.Accuracy-want.Accuracy) > 1e-9 || math.Abs(s.Precision-want.Precision) > 1e-9 ||
		math.Abs(s.Recall-want.Recall) > 1e-9 || math.Abs(s.F1-want.F1) > 1e-9 ||
		math.Abs(s.ROCAUC-want.ROCAUC) > 1e-9 {
		t.Errorf("Score() = %+v, want %+v", s, want)
	}

	if _, err := Score(yTrue, proba[:3], DefaultThreshold); err == nil {
		t.Error("expected dimension error")
	}
	if _, err := Score([]float64{0, 2}, []float64{0.1, 0.2}, DefaultThreshold); err == nil {
		t.Error("expected error for non-binary labels")
	}
}

func TestThreshold_Boundary(t *testing.T) {
	got := Threshold([]float64{0.49999, 0.5, 0.7}, 0.5)
	want := []float64{0, 1, 1}
	for i := range want {
		if got.AtVec(i) != want[i] {
			t.Errorf("Threshold()[%d] = %v, want %v", i, got.AtVec(i), want[i])
		}
	}
}

// Benchmark tests
func BenchmarkAUC(b *testing.B) {
	// Create test data
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < n/2 {
			yTrue[i] = 0
			yPred[i] = float64(i) / float64(n)
		} else {
			yTrue[i] = 1
			yPred[i] = float64(i) / float64(n)
		}
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrueVec, yPredVec)
	}
}

func BenchmarkBinaryLogLoss(b *testing.B) {
	// Create test data
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < n/2 {
			yTrue[i] = 0
			yPred[i] = 0.1 + 0.3*float64(i)/float64(n)
		} else {
			yTrue[i] = 1
			yPred[i] = 0.6 + 0.3*float64(i-n/2)/float64(n/2)
		}
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BinaryLogLoss(yTrueVec, yPredVec)
	}
}
