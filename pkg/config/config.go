// Package config loads runtime settings for the trainer, the HTTP server and
// the Lambda handler.
//
// Sources are layered with koanf, later ones winning:
//
//  1. Defaults from Default()
//  2. An optional YAML file (CONFIG_PATH, then config.yaml / config.yml)
//  3. Environment variables prefixed BOOKING_, with "__" between levels,
//     e.g. BOOKING_TRAIN__NUM_ROUNDS=300 or BOOKING_SERVER__ADDR=:8080
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/validation"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "BOOKING_"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config is the complete runtime configuration.
type Config struct {
	Data     DataConfig     `koanf:"data"`
	Artifact ArtifactConfig `koanf:"artifact"`
	Train    TrainConfig    `koanf:"train"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Report   ReportConfig   `koanf:"report"`
}

// DataConfig locates the training dataset.
type DataConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ArtifactConfig locates the serialized (vectorizer, booster) pair.
type ArtifactConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// TrainConfig holds split, balancing and booster settings.
type TrainConfig struct {
	Seed           uint64  `koanf:"seed"`
	TestSize       float64 `koanf:"test_size" validate:"gt=0,lt=1"`
	ValidationSize float64 `koanf:"validation_size" validate:"gt=0,lt=1"`

	LearningRate        float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth            int     `koanf:"max_depth" validate:"gte=1"`
	MinChildWeight      float64 `koanf:"min_child_weight" validate:"gte=0"`
	NumRounds           int     `koanf:"num_rounds" validate:"gte=1"`
	EarlyStoppingRounds int     `koanf:"early_stopping_rounds" validate:"gte=0"`
	EvalPeriod          int     `koanf:"eval_period" validate:"gte=0"`
	NThread             int     `koanf:"nthread" validate:"gte=0"`

	// EarlyStoppingEval picks the set early stopping watches.
	EarlyStoppingEval string `koanf:"early_stopping_eval" validate:"oneof=train validation"`

	Balancer         string  `koanf:"balancer" validate:"oneof=smote random none"`
	SMOTENeighbors   int     `koanf:"smote_neighbors" validate:"gte=1"`
	SMOTESeed        uint64  `koanf:"smote_seed"`
	SamplingStrategy float64 `koanf:"sampling_strategy" validate:"gt=0,lte=1"`

	// CVFolds > 1 runs stratified cross-validation before the final fit.
	CVFolds int `koanf:"cv_folds" validate:"gte=0"`
}

// ServerConfig configures the local HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// ReportConfig configures training reports.
type ReportConfig struct {
	// ROCPlotPath is written as PNG when non-empty.
	ROCPlotPath string `koanf:"roc_plot_path"`
	TopFeatures int    `koanf:"top_features" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data:     DataConfig{Path: "hotel_reservations.csv"},
		Artifact: ArtifactConfig{Path: "xgboost_model_booking_cancellation_smote.bin"},
		Train: TrainConfig{
			Seed:                1,
			TestSize:            0.2,
			ValidationSize:      0.25,
			LearningRate:        0.1,
			MaxDepth:            12,
			MinChildWeight:      1,
			NumRounds:           200,
			EarlyStoppingRounds: 5,
			EvalPeriod:          5,
			NThread:             0,
			EarlyStoppingEval:   "train",
			Balancer:            "smote",
			SMOTENeighbors:      5,
			SMOTESeed:           42,
			SamplingStrategy:    1.0,
			CVFolds:             0,
		},
		Server: ServerConfig{
			Addr:            ":9696",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log:    LogConfig{Level: "info"},
		Report: ReportConfig{TopFeatures: 10},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	return nil
}

// envKey maps BOOKING_TRAIN__NUM_ROUNDS to train.num_rounds.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
