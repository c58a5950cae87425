// Package report renders evaluation plots.
package report

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/bookingrisk/metrics"
	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// ROCPlot builds the ROC curve of proba against yTrue, with the chance
// diagonal for reference.
func ROCPlot(yTrue, proba []float64) (*plot.Plot, error) {
	if len(yTrue) != len(proba) {
		return nil, errors.NewDimensionError("ROCPlot", len(yTrue), len(proba), 0)
	}
	truth := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	scores := mat.NewVecDense(len(proba), append([]float64(nil), proba...))

	fpr, tpr, _, err := metrics.ROCCurve(truth, scores)
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUC(truth, scores)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "ROC curve (test)"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	curve := make(plotter.XYs, len(fpr))
	for i := range fpr {
		curve[i].X = fpr[i]
		curve[i].Y = tpr[i]
	}
	chance := plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}}

	if err := plotutil.AddLines(p,
		fmt.Sprintf("model (AUC %.4f)", auc), curve,
		"chance", chance,
	); err != nil {
		return nil, errors.Wrap(err, "failed to add ROC lines")
	}
	p.Legend.Top = false
	p.Legend.Left = false
	return p, nil
}

// PlotROC writes the ROC curve to path. The format follows the file
// extension (png, svg, pdf).
func PlotROC(path string, yTrue, proba []float64) error {
	p, err := ROCPlot(yTrue, proba)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save ROC plot to %s", path)
	}
	log.GetLoggerWithName("report").Info("ROC curve written",
		log.PathKey, path,
		log.SamplesKey, len(yTrue),
	)
	return nil
}
