package xgboost

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bookingrisk/core/model"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// Node is a single node of a regression tree.
// Rows with x[Feature] < Threshold go to Left, others to Right.
type Node struct {
	// Split information (internal nodes)
	Feature   int
	Threshold float64
	Left      int // -1 for leaves
	Right     int // -1 for leaves
	Gain      float64

	// Leaf information
	IsLeaf bool
	Value  float64 // already scaled by the learning rate

	// Statistics
	Cover float64 // sum of hessians reaching the node
	Depth int
}

// Tree is a binary regression tree stored as a flat node slice; node 0 is the root.
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value reached by row.
func (t *Tree) Predict(row []float64) float64 {
	id := 0
	for id >= 0 && id < len(t.Nodes) {
		n := &t.Nodes[id]
		if n.IsLeaf {
			return n.Value
		}
		if row[n.Feature] < n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
	return 0
}

// NumLeaves counts leaf nodes.
func (t *Tree) NumLeaves() int {
	c := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf {
			c++
		}
	}
	return c
}

// Booster is a trained gradient-boosted tree ensemble for binary logistic
// classification. Exported fields are serialized with encoding/gob.
type Booster struct {
	Trees        []Tree
	FeatureNames []string
	BaseMargin   float64
	Params       Params

	// Early stopping result; BestIteration is -1 when early stopping did not run.
	BestIteration int
	BestScore     float64
	NumRounds     int

	State *model.StateManager
}

// NewBooster returns an unfitted booster.
func NewBooster(params Params) *Booster {
	return &Booster{
		Params:        params,
		BestIteration: -1,
		State:         model.NewStateManager("XGBClassifier"),
	}
}

// NumTrees returns the number of trees in the ensemble.
func (b *Booster) NumTrees() int {
	return len(b.Trees)
}

// NumFeatures returns the input width the booster was trained on.
func (b *Booster) NumFeatures() int {
	return len(b.FeatureNames)
}

// PredictMarginOne returns the raw margin for a single row.
func (b *Booster) PredictMarginOne(row []float64) float64 {
	m := b.BaseMargin
	for i := range b.Trees {
		m += b.Trees[i].Predict(row)
	}
	return m
}

// PredictProbaOne returns the positive-class probability for a single row.
func (b *Booster) PredictProbaOne(row []float64) (float64, error) {
	if err := b.State.RequireFitted("PredictProba"); err != nil {
		return 0, err
	}
	if len(row) != b.NumFeatures() {
		return 0, errors.NewDimensionError("PredictProba", b.NumFeatures(), len(row), 1)
	}
	return LogisticObjective{}.Transform(b.PredictMarginOne(row)), nil
}

// PredictMargin returns raw margins for each row of X.
func (b *Booster) PredictMargin(X mat.Matrix) ([]float64, error) {
	if err := b.State.RequireFitted("PredictMargin"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != b.NumFeatures() {
		return nil, errors.NewDimensionError("PredictMargin", b.NumFeatures(), cols, 1)
	}

	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out[i] = b.PredictMarginOne(row)
	}
	return out, nil
}

// PredictProba returns the positive-class probability for each row of X.
func (b *Booster) PredictProba(X mat.Matrix) ([]float64, error) {
	margins, err := b.PredictMargin(X)
	if err != nil {
		return nil, err
	}
	obj := LogisticObjective{}
	for i, m := range margins {
		margins[i] = obj.Transform(m)
	}
	return margins, nil
}

// FeatureImportance returns the total split gain per feature.
func (b *Booster) FeatureImportance() []float64 {
	imp := make([]float64, b.NumFeatures())
	for _, t := range b.Trees {
		for _, n := range t.Nodes {
			if !n.IsLeaf && n.Feature < len(imp) {
				imp[n.Feature] += n.Gain
			}
		}
	}
	return imp
}

// Importance pairs a feature name with its gain.
type Importance struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
}

// TopFeatures returns up to n features sorted by descending gain,
// ties broken by name. Features that never split are omitted.
func (b *Booster) TopFeatures(n int) []Importance {
	imp := b.FeatureImportance()
	out := make([]Importance, 0, len(imp))
	for i, g := range imp {
		if g > 0 {
			out = append(out, Importance{Feature: b.FeatureNames[i], Gain: g})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain > out[j].Gain
		}
		return out[i].Feature < out[j].Feature
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

var _ model.ProbabilisticClassifier = (*Booster)(nil)
