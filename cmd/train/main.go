// Command train fits the cancellation model and writes the artifact.
//
//	train                                   # hotel_reservations.csv -> xgboost_model_booking_cancellation_smote.bin
//	train --config config.yaml --roc roc.png
//	train --synthetic 5000 --data smoke.csv # smoke run without the dataset
package main

import (
	"fmt"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/goccy/go-json"

	"github.com/YuminosukeSato/bookingrisk/dataset"
	"github.com/YuminosukeSato/bookingrisk/pipeline"
	"github.com/YuminosukeSato/bookingrisk/pkg/config"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

type args struct {
	Config    string `arg:"--config" help:"YAML config file (defaults to CONFIG_PATH or ./config.yaml)"`
	Data      string `arg:"--data" help:"reservations CSV, overrides data.path"`
	Artifact  string `arg:"--artifact" help:"output artifact, overrides artifact.path"`
	ROC       string `arg:"--roc" help:"ROC curve image, overrides report.roc_plot_path"`
	Synthetic int    `arg:"--synthetic" help:"write N synthetic bookings to a new file named by --data before training"`
	Report    string `arg:"--report" help:"write the training report as JSON to this path"`
}

func (args) Description() string {
	return "Train the booking cancellation classifier."
}

func main() {
	var a args
	arg.MustParse(&a)

	if err := run(a); err != nil {
		log.GetLogger().Error("Training failed", err)
		os.Exit(1)
	}
}

func run(a args) error {
	var (
		cfg *config.Config
		err error
	)
	if a.Config != "" {
		cfg, err = config.LoadFile(a.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := log.SetupLogger(cfg.Log.Level, os.Stdout); err != nil {
		return err
	}

	if a.Data != "" {
		cfg.Data.Path = a.Data
	}
	if a.Artifact != "" {
		cfg.Artifact.Path = a.Artifact
	}
	if a.ROC != "" {
		cfg.Report.ROCPlotPath = a.ROC
	}
	if a.Synthetic > 0 {
		if a.Data == "" {
			return errors.NewValidationError("synthetic", "requires --data naming a new file", a.Synthetic)
		}
		if err := writeSynthetic(cfg.Data.Path, a.Synthetic, cfg.Train.Seed); err != nil {
			return err
		}
	}

	res, err := pipeline.Run(cfg)
	if err != nil {
		return err
	}

	t := res.Report.Test
	fmt.Printf("Test Accuracy: %.2f%%\n", t.Accuracy*100)
	fmt.Printf("Test Precision: %.2f%%\n", t.Precision*100)
	fmt.Printf("Test Recall: %.2f%%\n", t.Recall*100)
	fmt.Printf("Test F1 Score: %.2f%%\n", t.F1*100)
	fmt.Printf("Test ROC AUC Score: %.2f%%\n", t.ROCAUC*100)
	fmt.Printf("The model and DictVectorizer are saved to %s\n", cfg.Artifact.Path)

	if a.Report != "" {
		body, err := json.MarshalIndent(res.Report, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Report, body, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// writeSynthetic writes n generated bookings to path, which must not exist.
func writeSynthetic(path string, n int, seed uint64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "refusing to write synthetic data to %s", path)
	}
	if err := dataset.WriteCSV(f, dataset.Synthetic(n, seed)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
