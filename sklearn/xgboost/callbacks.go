package xgboost

import (
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// CallbackEnv contains the environment for callbacks
type CallbackEnv struct {
	Booster      *Booster
	Iteration    int
	BeginTime    time.Time
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is called after every boosting round.
type Callback func(env *CallbackEnv) error

// CallbackList runs callbacks in order and stops at the first error.
type CallbackList []Callback

// Run invokes every callback with env.
func (cl CallbackList) Run(env *CallbackEnv) error {
	for _, cb := range cl {
		if err := cb(env); err != nil {
			return err
		}
	}
	return nil
}

// EvaluationLogger logs evaluation results every period rounds.
func EvaluationLogger(period int) Callback {
	logger := log.GetLoggerWithName("xgboost")
	return func(env *CallbackEnv) error {
		if period <= 0 || env.Iteration%period != 0 {
			return nil
		}
		names := make([]string, 0, len(env.EvalResults))
		for name := range env.EvalResults {
			names = append(names, name)
		}
		sort.Strings(names)

		fields := []any{log.IterationKey, env.Iteration}
		for _, name := range names {
			fields = append(fields, name, env.EvalResults[name])
		}
		fields = append(fields, log.DurationMsKey, time.Since(env.BeginTime).Milliseconds())
		logger.Debug("Boosting round", fields...)
		return nil
	}
}

// RecordEvaluation appends every evaluation result to history.
func RecordEvaluation(history map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		for name, value := range env.EvalResults {
			history[name] = append(history[name], value)
		}
		return nil
	}
}

// EarlyStopping stops training once Metric has not improved for Rounds
// consecutive rounds. Lower is better.
type EarlyStopping struct {
	Rounds          int
	Metric          string
	BestScore       float64
	BestIteration   int
	RoundsNoImprove int
}

// NewEarlyStopping returns nil when rounds is not positive.
func NewEarlyStopping(rounds int, metric string) *EarlyStopping {
	if rounds <= 0 {
		return nil
	}
	return &EarlyStopping{
		Rounds:        rounds,
		Metric:        metric,
		BestScore:     math.Inf(1),
		BestIteration: -1,
	}
}

// Update records score for iteration and reports whether training should stop.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if score < es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
		return false
	}
	es.RoundsNoImprove++
	return es.RoundsNoImprove >= es.Rounds
}

// Callback adapts es to the callback list.
func (es *EarlyStopping) Callback() Callback {
	return func(env *CallbackEnv) error {
		score, ok := env.EvalResults[es.Metric]
		if !ok {
			return nil
		}
		if es.Update(env.Iteration, score) {
			env.StopTraining = true
			log.GetLoggerWithName("xgboost").Info("Early stopping",
				log.IterationKey, env.Iteration,
				log.BestIterationKey, es.BestIteration,
				log.EvalSetKey, es.Metric,
				log.LossKey, es.BestScore,
			)
		}
		return nil
	}
}
