package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "hotel_reservations.csv", cfg.Data.Path)
	assert.Equal(t, 200, cfg.Train.NumRounds)
	assert.Equal(t, uint64(42), cfg.Train.SMOTESeed)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
train:
  num_rounds: 50
  balancer: random
  early_stopping_eval: validation
server:
  addr: ":8080"
  read_timeout: 3s
report:
  roc_plot_path: roc.png
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("BOOKING_TRAIN__NUM_ROUNDS", "75")
	t.Setenv("BOOKING_LOG__LEVEL", "debug")
	t.Setenv("BOOKING_ARTIFACT__PATH", "/tmp/model.bin")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Train.NumRounds, "env wins over file")
	assert.Equal(t, "random", cfg.Train.Balancer)
	assert.Equal(t, "validation", cfg.Train.EarlyStoppingEval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "roc.png", cfg.Report.ROCPlotPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/model.bin", cfg.Artifact.Path)
	assert.Equal(t, 0.1, cfg.Train.LearningRate, "untouched defaults survive")
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Setenv("BOOKING_TRAIN__BALANCER", "adasyn")

	_, err := LoadFile("")
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "balancer", vErr.ParamName)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Train.TestSize = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Level = "trace"
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "train.num_rounds", envKey("BOOKING_TRAIN__NUM_ROUNDS"))
	assert.Equal(t, "report.roc_plot_path", envKey("BOOKING_REPORT__ROC_PLOT_PATH"))
}
