package xgboost

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bookingrisk/core/parallel"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// minSplitLoss is the smallest loss reduction accepted for a split.
const minSplitLoss = 1e-6

// EvalSet is a named dataset whose logloss is reported every round.
type EvalSet struct {
	Name string
	X    mat.Matrix
	Y    []float64
}

// Trainer grows a Booster with exact greedy, level-wise tree construction.
type Trainer struct {
	params    Params
	callbacks CallbackList
	history   map[string][]float64
	objective LogisticObjective

	// Column-major training data and per-feature row orderings.
	cols   [][]float64
	sorted [][]int
	labels []float64

	grad []float64
	hess []float64
}

// NewTrainer creates a trainer for params.
func NewTrainer(params Params) *Trainer {
	return &Trainer{params: params}
}

// AddCallback registers a callback run after every round.
func (t *Trainer) AddCallback(cb Callback) {
	t.callbacks = append(t.callbacks, cb)
}

// History returns the per-round evaluation results of the last fit.
func (t *Trainer) History() map[string][]float64 {
	return t.history
}

// Fit trains on X and y without evaluation sets.
func (t *Trainer) Fit(X mat.Matrix, y []float64, featureNames []string) (*Booster, error) {
	return t.FitWithEvals(X, y, featureNames, nil)
}

// FitWithEvals trains on X and y, reporting "<name>-logloss" for every eval
// set each round. Early stopping watches the last eval set; when it fires the
// ensemble is truncated to the best round.
func (t *Trainer) FitWithEvals(X mat.Matrix, y []float64, featureNames []string, evals []EvalSet) (b *Booster, err error) {
	defer errors.Recover(&err, "XGBClassifier.Fit")

	if err := t.params.Validate(); err != nil {
		return nil, err
	}
	rows, nFeatures, err := checkTrainingData(X, y)
	if err != nil {
		return nil, err
	}
	if featureNames == nil {
		featureNames = make([]string, nFeatures)
		for j := range featureNames {
			featureNames[j] = fmt.Sprintf("f%d", j)
		}
	}
	if len(featureNames) != nFeatures {
		return nil, errors.NewDimensionError("XGBClassifier.Fit", nFeatures, len(featureNames), 1)
	}
	evalRows := make([][][]float64, len(evals))
	for e, set := range evals {
		r, c := set.X.Dims()
		if c != nFeatures {
			return nil, errors.NewDimensionError("XGBClassifier.Fit", nFeatures, c, 1)
		}
		if len(set.Y) != r {
			return nil, errors.NewDimensionError("XGBClassifier.Fit", r, len(set.Y), 0)
		}
		evalRows[e] = make([][]float64, r)
		for i := 0; i < r; i++ {
			evalRows[e][i] = mat.Row(nil, i, set.X)
		}
	}

	logger := log.GetLoggerWithName("xgboost")
	start := time.Now()
	t.prepare(X, y, rows, nFeatures)

	booster := NewBooster(t.params)
	booster.FeatureNames = append([]string(nil), featureNames...)
	booster.BaseMargin = t.objective.InitMargin(t.params.BaseScore)

	margins := make([]float64, rows)
	for i := range margins {
		margins[i] = booster.BaseMargin
	}
	evalMargins := make([][]float64, len(evals))
	for e := range evals {
		evalMargins[e] = make([]float64, len(evalRows[e]))
		for i := range evalMargins[e] {
			evalMargins[e][i] = booster.BaseMargin
		}
	}

	t.history = make(map[string][]float64)
	callbacks := append(CallbackList{RecordEvaluation(t.history)}, t.callbacks...)
	if t.params.VerboseEval > 0 {
		callbacks = append(callbacks, EvaluationLogger(t.params.VerboseEval))
	}
	var stopper *EarlyStopping
	if len(evals) > 0 {
		stopper = NewEarlyStopping(t.params.EarlyStoppingRounds, evals[len(evals)-1].Name+"-logloss")
		if stopper != nil {
			callbacks = append(callbacks, stopper.Callback())
		}
	}

	logger.Info("Training started",
		log.ModelNameKey, "XGBClassifier",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, nFeatures,
		log.LearningRateKey, t.params.LearningRate,
		log.MaxDepthKey, t.params.MaxDepth,
	)

	env := &CallbackEnv{Booster: booster, BeginTime: start}
	for iter := 0; iter < t.params.NumRounds; iter++ {
		t.objective.Gradients(margins, t.labels, t.grad, t.hess)
		if err := errors.CheckNumericalStability("XGBClassifier.gradients", t.grad, iter); err != nil {
			return nil, err
		}

		tree := t.buildTree(margins)
		booster.Trees = append(booster.Trees, tree)

		results := make(map[string]float64, len(evals))
		for e, set := range evals {
			for i, row := range evalRows[e] {
				evalMargins[e][i] += tree.Predict(row)
			}
			results[set.Name+"-logloss"] = t.objective.LogLoss(evalMargins[e], set.Y)
		}

		env.Iteration = iter
		env.EvalResults = results
		if err := callbacks.Run(env); err != nil {
			return nil, err
		}
		if env.StopTraining {
			break
		}
	}

	booster.NumRounds = len(booster.Trees)
	if stopper != nil && stopper.BestIteration >= 0 {
		booster.BestIteration = stopper.BestIteration
		booster.BestScore = stopper.BestScore
		booster.Trees = booster.Trees[:stopper.BestIteration+1]
	}
	booster.State.SetDimensions(nFeatures, rows)
	booster.State.SetFitted()

	logger.Info("Training finished",
		log.ModelNameKey, "XGBClassifier",
		log.IterationKey, booster.NumRounds,
		log.BestIterationKey, booster.BestIteration,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	t.release()
	return booster, nil
}

func checkTrainingData(X mat.Matrix, y []float64) (rows, cols int, err error) {
	if X == nil {
		return 0, 0, errors.NewValueError("XGBClassifier.Fit", "nil matrix")
	}
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.WithStack(errors.ErrEmptyData)
	}
	if len(y) != rows {
		return 0, 0, errors.NewDimensionError("XGBClassifier.Fit", rows, len(y), 0)
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return 0, 0, errors.NewValueError("XGBClassifier.Fit", "labels must be 0 or 1")
		}
	}
	return rows, cols, nil
}

// prepare copies X column-major and presorts every feature once per fit.
func (t *Trainer) prepare(X mat.Matrix, y []float64, rows, nFeatures int) {
	t.labels = y
	t.grad = make([]float64, rows)
	t.hess = make([]float64, rows)
	t.cols = make([][]float64, nFeatures)
	t.sorted = make([][]int, nFeatures)

	parallel.ParallelizeN(nFeatures, t.params.NThread, func(start, end int) {
		for f := start; f < end; f++ {
			col := mat.Col(nil, f, X)
			idx := make([]int, rows)
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(a, b int) bool { return col[idx[a]] < col[idx[b]] })
			t.cols[f] = col
			t.sorted[f] = idx
		}
	})
}

func (t *Trainer) release() {
	t.cols, t.sorted, t.labels, t.grad, t.hess = nil, nil, nil, nil, nil
}

// frontierNode is an open node of the level being expanded.
type frontierNode struct {
	id   int // index into Tree.Nodes
	g, h float64
}

// candidate is the best split found for one frontier node.
type candidate struct {
	feature   int
	threshold float64
	loss      float64
	gl, hl    float64
}

// buildTree grows one tree level by level and adds its leaf values to margins.
func (t *Trainer) buildTree(margins []float64) Tree {
	rows := len(t.grad)
	tree := Tree{Nodes: []Node{{Left: -1, Right: -1}}}

	// position[i] is the frontier slot of row i, or -1 once it reached a leaf.
	position := make([]int, rows)
	root := frontierNode{id: 0}
	for i := 0; i < rows; i++ {
		root.g += t.grad[i]
		root.h += t.hess[i]
	}
	frontier := []frontierNode{root}

	for depth := 0; len(frontier) > 0; depth++ {
		var best []candidate
		if depth < t.params.MaxDepth {
			best = t.findSplits(frontier, position)
		}

		var next []frontierNode
		remap := make([]int, 2*len(frontier))
		for k, fn := range frontier {
			node := &tree.Nodes[fn.id]
			node.Cover = fn.h
			node.Depth = depth
			if best == nil || best[k].feature < 0 {
				node.IsLeaf = true
				node.Value = -fn.g / (fn.h + t.params.Lambda) * t.params.LearningRate
				remap[2*k], remap[2*k+1] = -1, -1
				continue
			}
			c := best[k]
			left := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes,
				Node{Left: -1, Right: -1},
				Node{Left: -1, Right: -1})
			node = &tree.Nodes[fn.id]
			node.Feature = c.feature
			node.Threshold = c.threshold
			node.Gain = c.loss
			node.Left = left
			node.Right = left + 1

			remap[2*k] = len(next)
			next = append(next, frontierNode{id: left, g: c.gl, h: c.hl})
			remap[2*k+1] = len(next)
			next = append(next, frontierNode{id: left + 1, g: fn.g - c.gl, h: fn.h - c.hl})
		}

		for i, k := range position {
			if k < 0 {
				continue
			}
			node := &tree.Nodes[frontier[k].id]
			if node.IsLeaf {
				margins[i] += node.Value
				position[i] = -1
				continue
			}
			if t.cols[node.Feature][i] < node.Threshold {
				position[i] = remap[2*k]
			} else {
				position[i] = remap[2*k+1]
			}
		}
		frontier = next
	}
	return tree
}

// findSplits scans every presorted feature in parallel and returns the best
// split per frontier node. Ties keep the lower feature index.
func (t *Trainer) findSplits(frontier []frontierNode, position []int) []candidate {
	nFeatures := len(t.cols)
	perFeature := make([][]candidate, nFeatures)

	parallel.ParallelizeN(nFeatures, t.params.NThread, func(start, end int) {
		gl := make([]float64, len(frontier))
		hl := make([]float64, len(frontier))
		last := make([]float64, len(frontier))
		seen := make([]bool, len(frontier))

		for f := start; f < end; f++ {
			best := make([]candidate, len(frontier))
			for k := range best {
				best[k].feature = -1
				gl[k], hl[k], seen[k] = 0, 0, false
			}
			col := t.cols[f]
			for _, i := range t.sorted[f] {
				k := position[i]
				if k < 0 {
					continue
				}
				x := col[i]
				if seen[k] && x != last[k] {
					fn := frontier[k]
					loss := t.splitLoss(gl[k], hl[k], fn.g, fn.h)
					if loss > best[k].loss && t.acceptable(loss, hl[k], fn.h-hl[k]) {
						best[k] = candidate{
							feature:   f,
							threshold: midpoint(last[k], x),
							loss:      loss,
							gl:        gl[k],
							hl:        hl[k],
						}
					}
				}
				gl[k] += t.grad[i]
				hl[k] += t.hess[i]
				last[k] = x
				seen[k] = true
			}
			perFeature[f] = best
		}
	})

	best := make([]candidate, len(frontier))
	for k := range best {
		best[k].feature = -1
		for f := 0; f < nFeatures; f++ {
			c := perFeature[f][k]
			if c.feature >= 0 && (best[k].feature < 0 || c.loss > best[k].loss) {
				best[k] = c
			}
		}
	}
	return best
}

// splitLoss is the loss reduction of splitting (G, H) into (GL, HL) and the rest.
func (t *Trainer) splitLoss(gl, hl, g, h float64) float64 {
	lambda := t.params.Lambda
	gr, hr := g-gl, h-hl
	return 0.5 * (gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - g*g/(h+lambda))
}

func (t *Trainer) acceptable(loss, hl, hr float64) bool {
	return loss > math.Max(t.params.Gamma, minSplitLoss) &&
		hl >= t.params.MinChildWeight &&
		hr >= t.params.MinChildWeight
}

// midpoint returns a threshold strictly above lo and not above hi.
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m <= lo {
		return hi
	}
	return m
}
