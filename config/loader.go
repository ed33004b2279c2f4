package config

import (
	"os"
	"strings"

	"github.com/LdDl/sot-go/sot"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Default returns configuration matching the behaviour of the original tracking script:
// CSRT tracker, 0.7 re-detection threshold, interactive selection and a preview window
func Default() Config {
	return Config{
		SourceKind:     SourceVideo,
		Algorithm:      string(sot.AlgorithmCSRT),
		MatchThreshold: sot.DefaultMatchThreshold,
		Display:        true,
		LogLevel:       "info",
	}
}

// Load reads and validates configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Can't read config '%s'", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Bad config '%s'", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default() and validates result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "Can't decode YAML")
	}
	cfg.Algorithm = strings.ToLower(strings.TrimSpace(cfg.Algorithm))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (cfg Config) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return errors.Wrap(err, "Invalid configuration")
	}
	return nil
}

// AlgorithmValue returns configured tracker algorithm
func (cfg Config) AlgorithmValue() (sot.Algorithm, error) {
	return sot.ParseAlgorithm(cfg.Algorithm)
}

// Level returns zerolog level for LogLevel. Empty value means info
func (cfg Config) Level() (zerolog.Level, error) {
	if cfg.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "Bad log level '%s'", cfg.LogLevel)
	}
	return level, nil
}

// Options builds state machine options
func (cfg Config) Options(logger *zerolog.Logger) sot.Options {
	return sot.Options{
		MatchThreshold: cfg.MatchThreshold,
		Workers:        cfg.Workers,
		Logger:         logger,
	}
}

// TrackerOptions builds native tracker tuning
func (cfg Config) TrackerOptions() sot.TrackerOptions {
	return sot.TrackerOptions{
		SearchMargin:            cfg.Tracker.SearchMargin,
		MinScore:                cfg.Tracker.MinScore,
		FlowGrid:                cfg.Tracker.FlowGrid,
		FlowWindow:              cfg.Tracker.FlowWindow,
		FlowRadius:              cfg.Tracker.FlowRadius,
		MaxForwardBackwardError: cfg.Tracker.MaxForwardBackwardError,
		Workers:                 cfg.Workers,
	}
}

// SelectionRect returns fixed selection box if configured
func (cfg Config) SelectionRect() (sot.Rectangle, bool) {
	if cfg.Selection == nil {
		return sot.Rectangle{}, false
	}
	return sot.NewRect(cfg.Selection.X, cfg.Selection.Y, cfg.Selection.Width, cfg.Selection.Height), true
}
