// Package pipeline wires the training stages together: feature engineering,
// stratified splitting, vectorizing, oversampling, boosting, evaluation and
// artifact persistence.
package pipeline

import (
	"time"

	"github.com/YuminosukeSato/bookingrisk/core/model"
	"github.com/YuminosukeSato/bookingrisk/dataset"
	"github.com/YuminosukeSato/bookingrisk/metrics"
	"github.com/YuminosukeSato/bookingrisk/pkg/config"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
	"github.com/YuminosukeSato/bookingrisk/report"
	"github.com/YuminosukeSato/bookingrisk/sklearn/feature_extraction"
	"github.com/YuminosukeSato/bookingrisk/sklearn/model_selection"
	"github.com/YuminosukeSato/bookingrisk/sklearn/over_sampling"
	"github.com/YuminosukeSato/bookingrisk/sklearn/xgboost"
)

// Early stopping evaluation sets.
const (
	EvalTrain      = "train"
	EvalValidation = "validation"
)

// Balancer names accepted in configuration.
const (
	BalancerSMOTE  = "smote"
	BalancerRandom = "random"
	BalancerNone   = "none"
)

// Report summarises one training run.
type Report struct {
	Validation    metrics.BinaryScores   `json:"validation"`
	Test          metrics.BinaryScores   `json:"test"`
	CrossVal      []metrics.BinaryScores `json:"cross_validation,omitempty"`
	NumRounds     int                    `json:"num_rounds"`
	BestIteration int                    `json:"best_iteration"`
	NumTrees      int                    `json:"num_trees"`
	NumFeatures   int                    `json:"num_features"`
	TrainRows     int                    `json:"train_rows"`
	TestRows      int                    `json:"test_rows"`
	TopFeatures   []xgboost.Importance   `json:"top_features"`
}

// Result is the outcome of Train.
type Result struct {
	Artifact *Artifact
	Report   Report

	// Test labels and probabilities, kept for plotting.
	TestLabels []float64
	TestProba  []float64
}

// Params converts the training configuration to booster parameters.
func Params(cfg config.TrainConfig) xgboost.Params {
	p := xgboost.DefaultParams()
	p.LearningRate = cfg.LearningRate
	p.MaxDepth = cfg.MaxDepth
	p.MinChildWeight = cfg.MinChildWeight
	p.NumRounds = cfg.NumRounds
	p.EarlyStoppingRounds = cfg.EarlyStoppingRounds
	p.VerboseEval = cfg.EvalPeriod
	p.NThread = cfg.NThread
	return p
}

// NewBalancer returns the configured resampler, or nil for "none".
func NewBalancer(cfg config.TrainConfig) (model.Resampler, error) {
	switch cfg.Balancer {
	case BalancerSMOTE:
		s := over_sampling.NewSMOTE(cfg.SMOTESeed)
		s.KNeighbors = cfg.SMOTENeighbors
		s.SamplingStrategy = cfg.SamplingStrategy
		s.NJobs = cfg.NThread
		return s, nil
	case BalancerRandom:
		r := over_sampling.NewRandomOverSampler(cfg.SMOTESeed)
		r.SamplingStrategy = cfg.SamplingStrategy
		return r, nil
	case BalancerNone, "":
		return nil, nil
	default:
		return nil, errors.NewValidationError("balancer", "must be smote, random or none", cfg.Balancer)
	}
}

// Fit vectorizes train, balances it and boosts a model. When holdout is not
// nil it is evaluated every round and, in validation mode, drives early
// stopping.
func Fit(train, holdout []dataset.Example, cfg config.TrainConfig) (*Artifact, error) {
	dv := feature_extraction.NewDictVectorizer()
	X, err := dv.FitTransform(dataset.Records(train))
	if err != nil {
		return nil, err
	}
	y := dataset.Labels(train)

	balancer, err := NewBalancer(cfg)
	if err != nil {
		return nil, err
	}
	if balancer != nil {
		if X, y, err = balancer.FitResample(X, y); err != nil {
			return nil, errors.Wrap(err, "oversampling failed")
		}
	}

	// The last eval set drives early stopping.
	evals := []xgboost.EvalSet{{Name: EvalTrain, X: X, Y: y}}
	if holdout != nil && cfg.EarlyStoppingEval == EvalValidation {
		Xh, err := dv.Transform(dataset.Records(holdout))
		if err != nil {
			return nil, err
		}
		evals = append(evals, xgboost.EvalSet{Name: EvalValidation, X: Xh, Y: dataset.Labels(holdout)})
	}

	booster, err := xgboost.NewTrainer(Params(cfg)).FitWithEvals(X, y, dv.FeatureNames(), evals)
	if err != nil {
		return nil, err
	}
	return &Artifact{Vectorizer: dv, Booster: booster}, nil
}

// Evaluate scores art on examples at the 0.5 decision threshold.
func Evaluate(art *Artifact, examples []dataset.Example) (metrics.BinaryScores, []float64, error) {
	proba, err := PredictProba(art, examples)
	if err != nil {
		return metrics.BinaryScores{}, nil, err
	}
	scores, err := metrics.Score(dataset.Labels(examples), proba, metrics.DefaultThreshold)
	if err != nil {
		return metrics.BinaryScores{}, nil, err
	}
	return scores, proba, nil
}

// PredictProba returns the cancellation probability of every example.
func PredictProba(art *Artifact, examples []dataset.Example) ([]float64, error) {
	X, err := art.Vectorizer.Transform(dataset.Records(examples))
	if err != nil {
		return nil, err
	}
	return art.Booster.PredictProba(X)
}

// CrossValidate scores the configured pipeline on stratified folds of examples.
func CrossValidate(examples []dataset.Example, cfg config.TrainConfig, folds int) ([]metrics.BinaryScores, error) {
	skf := model_selection.NewStratifiedKFold(folds, true, cfg.Seed)
	splits, err := skf.Split(dataset.Labels(examples))
	if err != nil {
		return nil, err
	}

	foldCfg := cfg
	foldCfg.EarlyStoppingEval = EvalTrain
	foldCfg.EvalPeriod = 0

	logger := log.GetLoggerWithName("pipeline").With(log.PhaseKey, log.PhaseValidation)
	out := make([]metrics.BinaryScores, len(splits))
	for i, s := range splits {
		art, err := Fit(dataset.Subset(examples, s.TrainIndices), nil, foldCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		scores, _, err := Evaluate(art, dataset.Subset(examples, s.TestIndices))
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		out[i] = scores
		logger.Info("Fold scored",
			"fold", i,
			log.AccuracyKey, scores.Accuracy,
			log.ROCAUCKey, scores.ROCAUC,
		)
	}
	return out, nil
}

// Train runs the full procedure on engineered examples.
//
// Rows are split 80/20 into full-train and test, and full-train again 75/25
// into train and validation. A model fitted on train is scored on
// validation. The final model is then fitted on full-train and scored on
// test; in validation early-stopping mode the train-split model, which
// stopped on validation, is kept as final instead.
func Train(examples []dataset.Example, cfg config.TrainConfig, topFeatures int) (*Result, error) {
	logger := log.GetLoggerWithName("pipeline")
	start := time.Now()

	outer, err := model_selection.TrainTestSplit(dataset.Labels(examples), cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "test split")
	}
	fullTrain := dataset.Subset(examples, outer.TrainIndices)
	test := dataset.Subset(examples, outer.TestIndices)

	inner, err := model_selection.TrainTestSplit(dataset.Labels(fullTrain), cfg.ValidationSize, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "validation split")
	}
	train := dataset.Subset(fullTrain, inner.TrainIndices)
	validation := dataset.Subset(fullTrain, inner.TestIndices)

	logger.Info("Data split",
		"full_train", len(fullTrain),
		"train", len(train),
		"validation", len(validation),
		"test", len(test),
	)

	var rep Report

	if cfg.CVFolds > 1 {
		if rep.CrossVal, err = CrossValidate(fullTrain, cfg, cfg.CVFolds); err != nil {
			return nil, err
		}
	}

	candidate, err := Fit(train, validation, cfg)
	if err != nil {
		return nil, err
	}
	if rep.Validation, _, err = Evaluate(candidate, validation); err != nil {
		return nil, err
	}
	logScores(logger, log.PhaseValidation, rep.Validation)

	final := candidate
	rep.TrainRows = len(train)
	if cfg.EarlyStoppingEval != EvalValidation {
		if final, err = Fit(fullTrain, nil, cfg); err != nil {
			return nil, err
		}
		rep.TrainRows = len(fullTrain)
	}

	var proba []float64
	if rep.Test, proba, err = Evaluate(final, test); err != nil {
		return nil, err
	}
	logScores(logger, log.PhaseTesting, rep.Test)

	b := final.Booster
	rep.NumRounds = b.NumRounds
	rep.BestIteration = b.BestIteration
	rep.NumTrees = b.NumTrees()
	rep.NumFeatures = b.NumFeatures()
	rep.TestRows = len(test)
	rep.TopFeatures = b.TopFeatures(topFeatures)

	for rank, imp := range rep.TopFeatures {
		logger.Debug("Feature importance", "rank", rank+1, "feature", imp.Feature, "gain", imp.Gain)
	}
	logger.Info("Training pipeline finished",
		log.IterationKey, rep.NumRounds,
		log.BestIterationKey, rep.BestIteration,
		log.FeaturesKey, rep.NumFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Result{
		Artifact:   final,
		Report:     rep,
		TestLabels: dataset.Labels(test),
		TestProba:  proba,
	}, nil
}

// Run loads the dataset named by cfg, trains, writes the artifact and the
// optional ROC plot.
func Run(cfg *config.Config) (*Result, error) {
	bookings, err := dataset.LoadCSV(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	examples, err := dataset.Engineer(bookings)
	if err != nil {
		return nil, err
	}

	res, err := Train(examples, cfg.Train, cfg.Report.TopFeatures)
	if err != nil {
		return nil, err
	}
	if err := SaveArtifact(cfg.Artifact.Path, res.Artifact); err != nil {
		return nil, err
	}
	if cfg.Report.ROCPlotPath != "" {
		if err := report.PlotROC(cfg.Report.ROCPlotPath, res.TestLabels, res.TestProba); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func logScores(logger log.Logger, phase string, s metrics.BinaryScores) {
	logger.Info("Model evaluated",
		log.PhaseKey, phase,
		log.AccuracyKey, s.Accuracy,
		log.PrecisionKey, s.Precision,
		log.RecallKey, s.Recall,
		log.F1Key, s.F1,
		log.ROCAUCKey, s.ROCAUC,
	)
}
