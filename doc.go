// Package bookingrisk predicts whether a hotel booking will be cancelled.
//
// The module trains a gradient-boosted tree classifier on the hotel
// reservations dataset and serves it over HTTP or AWS Lambda.
//
// # Training
//
//	go run ./cmd/train --config config.yaml --roc roc.png
//
// reads hotel_reservations.csv, engineers the features (total nights, price
// per person, arrival weekday), splits the rows 80/20 and then 75/25 with
// label stratification, one-hot encodes categoricals, balances the classes
// with SMOTE, boosts up to 200 trees with early stopping and writes the
// (vectorizer, booster) artifact to xgboost_model_booking_cancellation_smote.bin.
//
// # Serving
//
//	go run ./cmd/server     # POST /predict, GET /healthz, GET /metrics
//	./lambda                # API Gateway proxy handler
//
// Both front ends load the artifact once at start and share the read-only
// serving.Predictor across requests.
//
// # Packages
//
//   - dataset: CSV loading and feature engineering
//   - sklearn/model_selection: stratified splits and k-fold
//   - sklearn/feature_extraction: DictVectorizer
//   - sklearn/over_sampling: SMOTE and random oversampling
//   - sklearn/xgboost: boosted trees with the logistic objective
//   - metrics: classification scores and ROC
//   - pipeline: training orchestration and artifacts
//   - serving: Predictor, HTTP router, Lambda handler
//   - pkg/config, pkg/log, pkg/errors, pkg/validation: ambient stack
package bookingrisk
