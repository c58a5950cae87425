// Standard attribute keys. Keys follow a dotted hierarchy ("model.name",
// "data.samples") so log queries can filter by prefix.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "DictVectorizer", "SMOTE", "Booster"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "resample"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline phase.
	// Examples: "training", "validation", "testing", "inference"
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of vector columns.
	FeaturesKey = "data.features"

	// PositivesKey is the number of rows labelled as cancelled.
	PositivesKey = "data.positives"

	// SyntheticKey is the number of rows generated by an oversampler.
	SyntheticKey = "data.synthetic"

	// FallbackKey is the number of rows whose arrival date used the fallback.
	FallbackKey = "data.date_fallbacks"

	// PathKey is a file path read or written by the operation.
	PathKey = "data.path"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"

	LossKey      = "metrics.loss"
	AccuracyKey  = "metrics.accuracy"
	PrecisionKey = "metrics.precision"
	RecallKey    = "metrics.recall"
	F1Key        = "metrics.f1"
	ROCAUCKey    = "metrics.roc_auc"

	// IterationKey is the current boosting round.
	IterationKey = "training.iteration"

	// BestIterationKey is the round with the best evaluation score.
	BestIterationKey = "training.best_iteration"

	// EvalSetKey names the evaluation set a loss was measured on.
	EvalSetKey = "training.eval_set"
)

// Prediction.
const (
	// ConfidenceKey records a predicted cancellation probability.
	ConfidenceKey = "preds.confidence"

	// ThresholdKey records the decision threshold.
	ThresholdKey = "preds.threshold"

	// VerdictKey records the human-readable decision.
	VerdictKey = "preds.verdict"
)

// Errors.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters.
const (
	LearningRateKey = "hyperparams.learning_rate"
	MaxDepthKey     = "hyperparams.max_depth"
	RandomSeedKey   = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationResample     = "resample"
	OperationLoad         = "load"
	OperationSave         = "save"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
