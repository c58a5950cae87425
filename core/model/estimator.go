package model

import "gonum.org/v1/gonum/mat"

// RecordTransformer は辞書形式のレコードを数値行列に変換するインターフェース
type RecordTransformer interface {
	// Fit はレコードから語彙を学習する
	Fit(records []map[string]any) error

	// Transform はレコードを行列に変換する
	Transform(records []map[string]any) (*mat.Dense, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(records []map[string]any) (*mat.Dense, error)

	// FeatureNames は列の順序で特徴量名を返す
	FeatureNames() []string
}

// Resampler はクラス不均衡を解消するためにサンプルを追加するインターフェース
type Resampler interface {
	// FitResample は元の行を先頭に保ったまま合成行を追加した行列とラベルを返す
	FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error)
}

// ProbabilisticClassifier は陽性クラスの確率を返す学習済み二値分類器のインターフェース
type ProbabilisticClassifier interface {
	// PredictProba は各行の陽性クラス確率を返す
	PredictProba(X mat.Matrix) ([]float64, error)
}
