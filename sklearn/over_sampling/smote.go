// Package over_sampling balances binary training sets by adding minority
// class rows, either interpolated (SMOTE) or duplicated (RandomOverSampler).
package over_sampling

import (
	"container/heap"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/YuminosukeSato/bookingrisk/core/model"
	"github.com/YuminosukeSato/bookingrisk/core/parallel"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// classPlan describes how many minority rows must be generated.
type classPlan struct {
	minority  float64
	minorRows []int
	nMajority int
	nNew      int
}

// plan validates the inputs and counts the rows to add so the minority class
// reaches ratio * n_majority.
func plan(op string, X mat.Matrix, y []float64, ratio float64) (classPlan, error) {
	var p classPlan
	if X == nil {
		return p, errors.NewValueError(op, "nil matrix")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return p, errors.WithStack(errors.ErrEmptyData)
	}
	if len(y) != r {
		return p, errors.NewDimensionError(op, r, len(y), 0)
	}
	if !(ratio > 0 && ratio <= 1) {
		return p, errors.NewValidationError("sampling_strategy", "must be in (0, 1]", ratio)
	}

	byClass := make(map[float64][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass) < 2 {
		return p, errors.WithStack(errors.ErrSingleClass)
	}
	if len(byClass) > 2 {
		return p, errors.NewValueError(op, "only binary targets are supported")
	}

	classes := make([]float64, 0, 2)
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Float64s(classes)
	minor, major := classes[0], classes[1]
	if len(byClass[minor]) > len(byClass[major]) {
		minor, major = major, minor
	}

	p.minority = minor
	p.minorRows = byClass[minor]
	p.nMajority = len(byClass[major])
	p.nNew = int(ratio*float64(p.nMajority)) - len(p.minorRows)
	if p.nNew < 0 {
		return p, errors.NewValueError(op,
			"sampling_strategy would remove samples from the minority class")
	}
	return p, nil
}

// stack copies X and appends extra rows labelled label.
func stack(X mat.Matrix, y []float64, extra [][]float64, label float64) (*mat.Dense, []float64) {
	r, c := X.Dims()
	out := mat.NewDense(r+len(extra), c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
	}
	for i, row := range extra {
		copy(out.RawRowView(r+i), row)
	}

	labels := make([]float64, 0, r+len(extra))
	labels = append(labels, y...)
	for range extra {
		labels = append(labels, label)
	}
	return out, labels
}

// SMOTE generates synthetic minority rows on the segments between a minority
// sample and one of its k nearest minority neighbours.
type SMOTE struct {
	KNeighbors       int
	SamplingStrategy float64
	RandomSeed       uint64
	// NJobs bounds the goroutines used for the neighbour search; 0 uses all CPUs.
	NJobs int
}

// NewSMOTE returns a SMOTE with k=5 neighbours and a 1:1 target ratio.
func NewSMOTE(randomSeed uint64) *SMOTE {
	return &SMOTE{
		KNeighbors:       5,
		SamplingStrategy: 1.0,
		RandomSeed:       randomSeed,
	}
}

// FitResample returns X and y with synthetic minority rows appended after
// the original rows.
func (s *SMOTE) FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	p, err := plan("SMOTE", X, y, s.SamplingStrategy)
	if err != nil {
		return nil, nil, err
	}
	k := s.KNeighbors
	if k < 1 {
		return nil, nil, errors.NewValidationError("k_neighbors", "must be positive", k)
	}
	if len(p.minorRows) <= k {
		return nil, nil, errors.NewValueError("SMOTE",
			"expected k_neighbors < number of minority samples")
	}

	_, c := X.Dims()
	minority := make([][]float64, len(p.minorRows))
	for i, row := range p.minorRows {
		minority[i] = mat.Row(nil, row, X)
	}

	neighbors := nearestNeighbors(minority, k, s.NJobs)

	r := rand.New(rand.NewPCG(s.RandomSeed, s.RandomSeed))
	synthetic := make([][]float64, p.nNew)
	diff := make([]float64, c)
	for n := range synthetic {
		idx := r.IntN(len(minority) * k)
		base := minority[idx/k]
		nn := minority[neighbors[idx/k][idx%k]]
		step := r.Float64()

		floats.SubTo(diff, nn, base)
		synthetic[n] = make([]float64, c)
		floats.AddScaledTo(synthetic[n], base, step, diff)
	}

	out, labels := stack(X, y, synthetic, p.minority)

	log.GetLoggerWithName("over_sampling").Info("Minority class oversampled",
		log.ModelNameKey, "SMOTE",
		log.OperationKey, log.OperationResample,
		log.SamplesKey, len(labels),
		log.SyntheticKey, p.nNew,
		log.RandomSeedKey, s.RandomSeed,
	)
	return out, labels, nil
}

// nearestNeighbors returns, for each point, the indices of its k nearest
// other points by Euclidean distance. Ties break on the lower index.
func nearestNeighbors(points [][]float64, k, workers int) [][]int {
	set := make(minoritySet, len(points))
	for i, p := range points {
		set[i] = minorityPoint{idx: i, x: p}
	}
	tree := kdtree.New(set, false)

	result := make([][]int, len(points))
	parallel.ParallelizeWithThreshold(len(points), 64, workers, func(start, end int) {
		for i := start; i < end; i++ {
			// k+1 so the query point itself can be dropped.
			keep := newNeighborKeeper(k + 1)
			tree.NearestSet(keep, minorityPoint{idx: i, x: points[i]})

			nn := make([]int, 0, k)
			for _, c := range keep.Heap {
				if j := c.Comparable.(minorityPoint).idx; j != i && len(nn) < k {
					nn = append(nn, j)
				}
			}
			result[i] = nn
		}
	})

	return result
}

// minorityPoint is a row of the minority class stored in the k-d tree.
type minorityPoint struct {
	idx int
	x   []float64
}

func (p minorityPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(minorityPoint).x[d]
}

func (p minorityPoint) Dims() int { return len(p.x) }

// Distance returns the squared Euclidean distance.
func (p minorityPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(minorityPoint).x
	var sum float64
	for i, v := range p.x {
		d := v - q[i]
		sum += d * d
	}
	return sum
}

type minoritySet []minorityPoint

func (s minoritySet) Index(i int) kdtree.Comparable         { return s[i] }
func (s minoritySet) Len() int                              { return len(s) }
func (s minoritySet) Pivot(d kdtree.Dim) int                { return minorityPlane{Dim: d, minoritySet: s}.Pivot() }
func (s minoritySet) Slice(start, end int) kdtree.Interface { return s[start:end] }

type minorityPlane struct {
	kdtree.Dim
	minoritySet
}

func (p minorityPlane) Less(i, j int) bool {
	return p.minoritySet[i].x[p.Dim] < p.minoritySet[j].x[p.Dim]
}
func (p minorityPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p minorityPlane) Slice(start, end int) kdtree.SortSlicer {
	p.minoritySet = p.minoritySet[start:end]
	return p
}
func (p minorityPlane) Swap(i, j int) {
	p.minoritySet[i], p.minoritySet[j] = p.minoritySet[j], p.minoritySet[i]
}

// neighborKeeper retains the n closest points ordered by distance, then by
// index. The nil sentinel at the root is removed by NearestSet.
type neighborKeeper struct {
	kdtree.Heap
}

func newNeighborKeeper(n int) *neighborKeeper {
	k := &neighborKeeper{make(kdtree.Heap, 1, n)}
	k.Heap[0].Dist = math.Inf(1)
	return k
}

// Less orders the heap with the farthest candidate at the root.
func (k *neighborKeeper) Less(i, j int) bool {
	return farther(k.Heap[i], k.Heap[j])
}

func (k *neighborKeeper) Keep(c kdtree.ComparableDist) {
	if !farther(k.Heap[0], c) {
		return
	}
	if len(k.Heap) == cap(k.Heap) {
		k.Heap[0] = c
		heap.Fix(k, 0)
		return
	}
	heap.Push(k, c)
}

func farther(a, b kdtree.ComparableDist) bool {
	if a.Comparable == nil || b.Comparable == nil {
		return a.Comparable == nil && b.Comparable != nil
	}
	if a.Dist != b.Dist {
		return a.Dist > b.Dist
	}
	return a.Comparable.(minorityPoint).idx > b.Comparable.(minorityPoint).idx
}

// RandomOverSampler duplicates randomly chosen minority rows.
type RandomOverSampler struct {
	SamplingStrategy float64
	RandomSeed       uint64
}

// NewRandomOverSampler returns a RandomOverSampler with a 1:1 target ratio.
func NewRandomOverSampler(randomSeed uint64) *RandomOverSampler {
	return &RandomOverSampler{SamplingStrategy: 1.0, RandomSeed: randomSeed}
}

// FitResample returns X and y with duplicated minority rows appended.
func (ros *RandomOverSampler) FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	p, err := plan("RandomOverSampler", X, y, ros.SamplingStrategy)
	if err != nil {
		return nil, nil, err
	}

	r := rand.New(rand.NewPCG(ros.RandomSeed, ros.RandomSeed))
	extra := make([][]float64, p.nNew)
	for n := range extra {
		extra[n] = mat.Row(nil, p.minorRows[r.IntN(len(p.minorRows))], X)
	}

	out, labels := stack(X, y, extra, p.minority)

	log.GetLoggerWithName("over_sampling").Info("Minority class oversampled",
		log.ModelNameKey, "RandomOverSampler",
		log.OperationKey, log.OperationResample,
		log.SamplesKey, len(labels),
		log.SyntheticKey, p.nNew,
	)
	return out, labels, nil
}

var (
	_ kdtree.Keeper   = (*neighborKeeper)(nil)
	_ model.Resampler = (*SMOTE)(nil)
	_ model.Resampler = (*RandomOverSampler)(nil)
)
