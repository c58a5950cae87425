// Package feature_extraction turns feature mappings into numeric matrices.
package feature_extraction

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bookingrisk/core/model"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// Record maps a feature name to its value. Strings are categorical; numbers
// and booleans are numerical.
type Record = map[string]any

// Separator joins a categorical column and its value in a feature name.
const Separator = "="

// DictVectorizer one-hot encodes string values as "name=value" columns and
// passes numerical values through. Columns are sorted by name.
//
// Exported fields are persisted with gob. A fitted vectorizer is read-only
// and safe for concurrent Transform calls.
type DictVectorizer struct {
	Names      []string
	Vocabulary map[string]int
	State      *model.StateManager
}

// NewDictVectorizer creates an unfitted DictVectorizer.
func NewDictVectorizer() *DictVectorizer {
	return &DictVectorizer{State: model.NewStateManager("DictVectorizer")}
}

// featureKey returns the column name for one key/value pair. ok is false for
// value types the vectorizer does not encode.
func featureKey(name string, value any) (key string, v float64, ok bool) {
	switch x := value.(type) {
	case string:
		return name + Separator + x, 1, true
	case float64:
		return name, x, true
	case float32:
		return name, float64(x), true
	case int:
		return name, float64(x), true
	case int32:
		return name, float64(x), true
	case int64:
		return name, float64(x), true
	case bool:
		if x {
			return name, 1, true
		}
		return name, 0, true
	default:
		return "", 0, false
	}
}

// Fit learns the column vocabulary from records.
func (dv *DictVectorizer) Fit(records []Record) error {
	if len(records) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}

	seen := make(map[string]struct{})
	for i, rec := range records {
		for name, value := range rec {
			key, _, ok := featureKey(name, value)
			if !ok {
				return errors.NewValidationError(name,
					fmt.Sprintf("unsupported value type %T in record %d", value, i), value)
			}
			seen[key] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	vocab := make(map[string]int, len(names))
	for i, n := range names {
		vocab[n] = i
	}

	dv.Names = names
	dv.Vocabulary = vocab
	if dv.State == nil {
		dv.State = model.NewStateManager("DictVectorizer")
	}
	dv.State.SetDimensions(len(names), len(records))
	dv.State.SetFitted()

	log.GetLoggerWithName("feature_extraction").Debug("Vocabulary fitted",
		log.ModelNameKey, "DictVectorizer",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(records),
		log.FeaturesKey, len(names),
	)
	return nil
}

// Transform maps records to rows of a dense matrix. Unknown keys, unseen
// categorical values and unsupported types contribute nothing.
func (dv *DictVectorizer) Transform(records []Record) (*mat.Dense, error) {
	if err := dv.State.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	out := mat.NewDense(len(records), len(dv.Names), nil)
	for i, rec := range records {
		dv.fillRow(out.RawRowView(i), rec)
	}
	return out, nil
}

// TransformOne encodes a single record.
func (dv *DictVectorizer) TransformOne(rec Record) ([]float64, error) {
	if err := dv.State.RequireFitted("TransformOne"); err != nil {
		return nil, err
	}
	row := make([]float64, len(dv.Names))
	dv.fillRow(row, rec)
	return row, nil
}

func (dv *DictVectorizer) fillRow(row []float64, rec Record) {
	for name, value := range rec {
		key, v, ok := featureKey(name, value)
		if !ok {
			continue
		}
		if j, found := dv.Vocabulary[key]; found {
			row[j] = v
		}
	}
}

// FitTransform fits the vocabulary and encodes records in one pass.
func (dv *DictVectorizer) FitTransform(records []Record) (*mat.Dense, error) {
	if err := dv.Fit(records); err != nil {
		return nil, err
	}
	return dv.Transform(records)
}

// FeatureNames returns a copy of the column names in output order.
func (dv *DictVectorizer) FeatureNames() []string {
	return append([]string(nil), dv.Names...)
}

// NFeatures returns the output width.
func (dv *DictVectorizer) NFeatures() int {
	return len(dv.Names)
}

var _ model.RecordTransformer = (*DictVectorizer)(nil)
