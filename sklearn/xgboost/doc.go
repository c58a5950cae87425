// Package xgboost implements gradient-boosted regression trees for binary
// classification with the logistic objective.
//
// Trees are grown level by level with the exact greedy algorithm: every
// feature is presorted once per fit and scanned for the split maximising
//
//	gain = 1/2 * [GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)]
//
// subject to gain > max(γ, 1e-6) and both children carrying at least
// min_child_weight hessian. Leaf values are -G/(H+λ) scaled by eta.
//
// Example:
//
//	trainer := xgboost.NewTrainer(xgboost.DefaultParams())
//	booster, err := trainer.FitWithEvals(X, y, names, []xgboost.EvalSet{
//		{Name: "validation", X: Xval, Y: yval},
//	})
//	proba, err := booster.PredictProba(Xtest)
package xgboost
