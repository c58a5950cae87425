// Package metrics は二値分類モデルの評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// DefaultThreshold は確率をクラスラベルに変換する既定の閾値
const DefaultThreshold = 0.5

// checkPair は2つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary はラベルが0か1のみであることを検証し、陽性数を返す
func checkBinary(op string, yTrue *mat.VecDense) (int, error) {
	positives := 0
	for i := 0; i < yTrue.Len(); i++ {
		switch yTrue.AtVec(i) {
		case 1:
			positives++
		case 0:
		default:
			return 0, errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return positives, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は二値分類の混同行列
type ConfusionMatrix struct {
	TP, FP, TN, FN int
}

// NewConfusionMatrix は0/1ラベルの予測から混同行列を作る
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}

	for i := 0; i < n; i++ {
		actual, predicted := yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1
		switch {
		case actual && predicted:
			cm.TP++
		case !actual && predicted:
			cm.FP++
		case actual && !predicted:
			cm.FN++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Precision は TP / (TP + FP) を返す。
// 陽性予測が無い場合は0を返し、UndefinedMetricWarningを発生させる。
func (cm ConfusionMatrix) Precision() float64 {
	if cm.TP+cm.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positive samples", 0))
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FP)
}

// Recall は TP / (TP + FN) を返す。
// 陽性ラベルが無い場合は0を返し、UndefinedMetricWarningを発生させる。
func (cm ConfusionMatrix) Recall() float64 {
	if cm.TP+cm.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true positive samples", 0))
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FN)
}

// F1 は適合率と再現率の調和平均を返す
func (cm ConfusionMatrix) F1() float64 {
	denom := 2*cm.TP + cm.FP + cm.FN
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no positive samples", 0))
		return 0
	}
	return 2 * float64(cm.TP) / float64(denom)
}

// Precision は適合率を計算する
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Precision(), nil
}

// Recall は再現率を計算する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Recall(), nil
}

// F1Score はF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1(), nil
}

// ROCCurve はROC曲線の点を返す。
// fprは昇順で、thresh[i]以上のスコアを陽性とみなしたときの率に対応する。
// thresh[0]は+Infで、曲線は(0,0)から始まり(1,1)で終わる。
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresh []float64, err error) {
	n, err := checkPair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}
	positives, err := checkBinary("ROCCurve", yTrue)
	if err != nil {
		return nil, nil, nil, err
	}
	if positives == 0 || positives == n {
		return nil, nil, nil, errors.NewValueError("ROCCurve", "only one class present in labels")
	}

	scores := make([]float64, n)
	classes := make([]bool, n)
	for i := 0; i < n; i++ {
		scores[i] = yScore.AtVec(i)
		classes[i] = yTrue.AtVec(i) == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, thresh = stat.ROC(nil, scores, classes, nil)
	return fpr, tpr, thresh, nil
}

// AUC はROC曲線下面積を計算する。
// 同順位のスコアは台形で補間されるため部分点が与えられる。
// ラベルが片方のクラスのみの場合は未定義なので0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	positives, err := checkBinary("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	if positives == 0 || positives == n {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in labels", 0.5))
		return 0.5, nil
	}

	fpr, tpr, _, err := ROCCurve(yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rScore, cScore := yScore.Dims()
	if rTrue == 0 || cTrue == 0 || rScore == 0 || cScore == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rScore {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rScore, 0)
	}

	return AUC(firstColumn(yTrue), firstColumn(yScore))
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// BinaryLogLoss は二値交差エントロピーを計算する。
// 確率は[1e-15, 1-1e-15]にクリップされる。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if _, err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	const eps = 1e-15
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yProb.AtVec(i), eps, 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Threshold は確率を閾値で0/1ラベルに変換する（p >= threshold で1）
func Threshold(proba []float64, threshold float64) *mat.VecDense {
	labels := make([]float64, len(proba))
	for i, p := range proba {
		if p >= threshold {
			labels[i] = 1
		}
	}
	return mat.NewVecDense(len(labels), labels)
}

// BinaryScores はテストセットで報告する5つの指標
type BinaryScores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Score はラベルと陽性確率からBinaryScoresを計算する
func Score(yTrue, proba []float64, threshold float64) (BinaryScores, error) {
	var s BinaryScores
	if len(yTrue) == 0 {
		return s, errors.NewValueError("Score", "empty vector")
	}
	if len(proba) != len(yTrue) {
		return s, errors.NewDimensionError("Score", len(yTrue), len(proba), 0)
	}

	truth := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	scores := mat.NewVecDense(len(proba), append([]float64(nil), proba...))

	if _, err := checkBinary("Score", truth); err != nil {
		return s, err
	}
	cm, err := NewConfusionMatrix(truth, Threshold(proba, threshold))
	if err != nil {
		return s, err
	}
	auc, err := AUC(truth, scores)
	if err != nil {
		return s, err
	}

	n := float64(len(yTrue))
	s.Accuracy = float64(cm.TP+cm.TN) / n
	s.Precision = cm.Precision()
	s.Recall = cm.Recall()
	s.F1 = cm.F1()
	s.ROCAUC = auc
	return s, nil
}
