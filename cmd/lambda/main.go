// Command lambda runs the prediction handler on AWS Lambda behind an API
// Gateway proxy integration. The artifact is loaded once per cold start.
package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/YuminosukeSato/bookingrisk/pkg/config"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
	"github.com/YuminosukeSato/bookingrisk/serving"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		os.Exit(1)
	}
	if err := log.SetupLogger(cfg.Log.Level, os.Stdout); err != nil {
		log.GetLogger().Error("Invalid log level", err)
		os.Exit(1)
	}

	predictor, err := serving.LoadPredictor(cfg.Artifact.Path)
	if err != nil {
		log.GetLoggerWithName("lambda").Error("Cannot serve without a model", err, log.PathKey, cfg.Artifact.Path)
		os.Exit(1)
	}

	lambda.Start(serving.NewLambdaHandler(predictor).Handle)
}
