package pipeline

import (
	"io"
	"slices"

	"github.com/YuminosukeSato/bookingrisk/core/model"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
	"github.com/YuminosukeSato/bookingrisk/sklearn/feature_extraction"
	"github.com/YuminosukeSato/bookingrisk/sklearn/xgboost"
)

// Artifact is the persisted (vectorizer, booster) pair.
type Artifact struct {
	Vectorizer *feature_extraction.DictVectorizer
	Booster    *xgboost.Booster
}

// Validate checks that both halves are present and fitted and that the
// booster was trained on the vectorizer's columns.
func (a *Artifact) Validate() error {
	if a == nil || a.Vectorizer == nil || a.Booster == nil {
		return errors.NewModelError("Artifact.Validate", "incomplete artifact", nil)
	}
	if err := a.Vectorizer.State.RequireFitted("Transform"); err != nil {
		return err
	}
	if err := a.Booster.State.RequireFitted("PredictProba"); err != nil {
		return err
	}
	if !slices.Equal(a.Vectorizer.FeatureNames(), a.Booster.FeatureNames) {
		return errors.Wrapf(errors.ErrFeatureMismatch,
			"vectorizer has %d features, booster has %d",
			a.Vectorizer.NFeatures(), a.Booster.NumFeatures())
	}
	return nil
}

// SaveArtifact validates art and writes it to path atomically.
func SaveArtifact(path string, art *Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	if err := model.SaveModel(art, path); err != nil {
		return errors.NewModelError("SaveArtifact", "write failed", err)
	}
	log.GetLoggerWithName("pipeline").Info("Artifact saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		log.FeaturesKey, art.Booster.NumFeatures(),
	)
	return nil
}

// LoadArtifact reads and validates an artifact written by SaveArtifact.
func LoadArtifact(path string) (*Artifact, error) {
	var art Artifact
	if err := model.LoadModel(&art, path); err != nil {
		return nil, errors.NewModelError("LoadArtifact", "read failed", err)
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	log.GetLoggerWithName("pipeline").Info("Artifact loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.FeaturesKey, art.Booster.NumFeatures(),
	)
	return &art, nil
}

// ReadArtifact decodes and validates an artifact from r.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var art Artifact
	if err := model.LoadModelFromReader(&art, r); err != nil {
		return nil, errors.NewModelError("ReadArtifact", "decode failed", err)
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// WriteArtifact validates art and encodes it to w.
func WriteArtifact(w io.Writer, art *Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	return model.SaveModelToWriter(art, w)
}
