// Package model_selection provides stratified train/test splitting and
// stratified k-fold cross-validation over label vectors.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// Split holds the row indices of one partition.
type Split struct {
	TrainIndices []int
	TestIndices  []int
}

// groupByClass returns the distinct labels in ascending order and the row
// indices of each.
func groupByClass(labels []float64) ([]float64, map[float64][]int) {
	byClass := make(map[float64][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]float64, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes, byClass
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// allocate distributes total across classes proportionally to counts using
// the largest-remainder rule. Ties go to the larger class, then the lower label.
func allocate(total int, counts []int) []int {
	n := 0
	for _, c := range counts {
		n += c
	}

	alloc := make([]int, len(counts))
	rem := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(total) * float64(c) / float64(n)
		alloc[i] = int(math.Floor(exact))
		rem[i] = exact - float64(alloc[i])
		assigned += alloc[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rem[ia] != rem[ib] {
			return rem[ia] > rem[ib]
		}
		return counts[ia] > counts[ib]
	})
	for k := 0; assigned < total; k++ {
		i := order[k%len(order)]
		if alloc[i] < counts[i] {
			alloc[i]++
			assigned++
		}
	}
	return alloc
}

// TrainTestSplit performs a stratified shuffle split of len(labels) rows.
// The test partition has ceil(testSize*n) rows and each class contributes in
// proportion to its frequency. The result is deterministic for a given seed.
func TrainTestSplit(labels []float64, testSize float64, seed uint64) (Split, error) {
	n := len(labels)
	if n == 0 {
		return Split{}, errors.WithStack(errors.ErrEmptyData)
	}
	if testSize <= 0 || testSize >= 1 {
		return Split{}, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	classes, byClass := groupByClass(labels)
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return Split{}, errors.NewValueError("TrainTestSplit",
			"each partition needs at least one row per class")
	}

	counts := make([]int, len(classes))
	for i, c := range classes {
		if len(byClass[c]) < 2 {
			return Split{}, errors.NewValueError("TrainTestSplit",
				"the least populated class has fewer than 2 members")
		}
		counts[i] = len(byClass[c])
	}
	testAlloc := allocate(nTest, counts)

	r := newRand(seed)
	split := Split{
		TrainIndices: make([]int, 0, nTrain),
		TestIndices:  make([]int, 0, nTest),
	}
	for i, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		r.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		split.TestIndices = append(split.TestIndices, idx[:testAlloc[i]]...)
		split.TrainIndices = append(split.TrainIndices, idx[testAlloc[i]:]...)
	}

	r.Shuffle(len(split.TrainIndices), func(a, b int) {
		split.TrainIndices[a], split.TrainIndices[b] = split.TrainIndices[b], split.TrainIndices[a]
	})
	r.Shuffle(len(split.TestIndices), func(a, b int) {
		split.TestIndices[a], split.TestIndices[b] = split.TestIndices[b], split.TestIndices[a]
	})
	return split, nil
}

// StratifiedKFold implements stratified k-fold cross-validation.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold. Every row
// appears in exactly one test fold.
func (skf *StratifiedKFold) Split(labels []float64) ([]Split, error) {
	if len(labels) < skf.NSplits {
		return nil, errors.NewValueError("StratifiedKFold",
			"cannot have number of splits greater than the number of samples")
	}

	classes, byClass := groupByClass(labels)

	if skf.Shuffle {
		r := newRand(skf.RandomSeed)
		for _, c := range classes {
			idx := byClass[c]
			r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
	}

	folds := make([]Split, skf.NSplits)
	for _, c := range classes {
		idx := byClass[c]
		foldSize := len(idx) / skf.NSplits
		remainder := len(idx) % skf.NSplits

		cur := 0
		for i := 0; i < skf.NSplits; i++ {
			size := foldSize
			if i < remainder {
				size++
			}
			folds[i].TestIndices = append(folds[i].TestIndices, idx[cur:cur+size]...)
			cur += size
		}
	}

	for i := range folds {
		inTest := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			inTest[idx] = true
		}
		folds[i].TrainIndices = make([]int, 0, len(labels)-len(folds[i].TestIndices))
		for j := range labels {
			if !inTest[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}

	return folds, nil
}
