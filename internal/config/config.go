// Package config loads pipeline parameters from an optional YAML file,
// TURMORIC_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Threshold   ThresholdConfig   `mapstructure:"threshold"`
	Regionprops RegionpropsConfig `mapstructure:"regionprops"`
	Aggregate   AggregateConfig   `mapstructure:"aggregate"`
	Report      ReportConfig      `mapstructure:"report"`
	Split       SplitConfig       `mapstructure:"split"`
	Limits      LimitsConfig      `mapstructure:"limits"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type ThresholdConfig struct {
	Method        string `mapstructure:"method"`
	Channel       int    `mapstructure:"channel"`
	MinObjectSize int    `mapstructure:"min_object_size"`
	FillHoles     bool   `mapstructure:"fill_holes"`
	InputSuffix   string `mapstructure:"input_suffix"`
}

type RegionpropsConfig struct {
	MaskSuffix string   `mapstructure:"mask_suffix"`
	Properties []string `mapstructure:"properties"`
}

type AggregateConfig struct {
	// TreatmentSource is "directory" or "filename".
	TreatmentSource   string            `mapstructure:"treatment_source"`
	TreatmentMapping  map[string]string `mapstructure:"treatment_mapping"`
	FilenameTokens    int               `mapstructure:"filename_tokens"`
	SingleTokenLabels []string          `mapstructure:"single_token_labels"`
}

type ReportConfig struct {
	Metrics []string `mapstructure:"metrics"`
	Formats []string `mapstructure:"formats"`
}

type SplitConfig struct {
	Groups     []string `mapstructure:"groups"`
	Conditions []string `mapstructure:"conditions"`
	TestSize   float64  `mapstructure:"test_size"`
	Seed       int64    `mapstructure:"seed"`
	SliceToken int      `mapstructure:"slice_token"`
}

// LimitsConfig bounds memory. MaxPixels (height x width x channels) is
// checked per image, and images are read fully before processing. A batch
// holds up to Workers images at once, each as float64 samples plus a few
// working copies of the signal channel and mask, so peak usage grows with
// Workers x MaxPixels x 8 bytes. Workers 0 means one per CPU.
type LimitsConfig struct {
	MaxPixels int `mapstructure:"max_pixels"`
	Workers   int `mapstructure:"workers"`
}

// Load reads configPath when non-empty and layers environment overrides on
// top of the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("turmoric")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("threshold.method", "li")
	v.SetDefault("threshold.channel", 1)
	v.SetDefault("threshold.min_object_size", 71)
	v.SetDefault("threshold.fill_holes", true)
	v.SetDefault("threshold.input_suffix", ".tif")

	v.SetDefault("regionprops.mask_suffix", "li_thresh.npy")
	v.SetDefault("regionprops.properties", []string{
		"area", "bbox_area", "centroid", "convex_area",
		"eccentricity", "equivalent_diameter", "euler_number",
		"extent", "filled_area", "major_axis_length",
		"minor_axis_length", "orientation", "perimeter", "solidity",
	})

	v.SetDefault("aggregate.treatment_source", "directory")
	v.SetDefault("aggregate.treatment_mapping", map[string]string{})
	v.SetDefault("aggregate.filename_tokens", 2)
	v.SetDefault("aggregate.single_token_labels", []string{"ORST"})

	v.SetDefault("report.metrics", []string{"area", "perimeter", "circularity"})
	v.SetDefault("report.formats", []string{"png", "pdf"})

	v.SetDefault("split.groups", []string{})
	v.SetDefault("split.conditions", []string{})
	v.SetDefault("split.test_size", 0.2)
	v.SetDefault("split.seed", 42)
	v.SetDefault("split.slice_token", 2)

	v.SetDefault("limits.max_pixels", 1<<28)
	v.SetDefault("limits.workers", 0)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Threshold.Channel < 0 {
		errs = append(errs, fmt.Errorf("threshold.channel must be >= 0, got %d", c.Threshold.Channel))
	}
	if c.Threshold.MinObjectSize < 0 {
		errs = append(errs, fmt.Errorf("threshold.min_object_size must be >= 0, got %d", c.Threshold.MinObjectSize))
	}
	if c.Split.TestSize < 0 || c.Split.TestSize > 1 {
		errs = append(errs, fmt.Errorf("split.test_size must be within [0, 1], got %g", c.Split.TestSize))
	}
	if c.Split.SliceToken < 0 {
		errs = append(errs, fmt.Errorf("split.slice_token must be >= 0, got %d", c.Split.SliceToken))
	}
	if c.Aggregate.FilenameTokens < 1 {
		errs = append(errs, fmt.Errorf("aggregate.filename_tokens must be >= 1, got %d", c.Aggregate.FilenameTokens))
	}
	switch c.Aggregate.TreatmentSource {
	case "directory", "filename":
	default:
		errs = append(errs, fmt.Errorf("aggregate.treatment_source must be directory or filename, got %q", c.Aggregate.TreatmentSource))
	}
	if c.Limits.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_pixels must be positive, got %d", c.Limits.MaxPixels))
	}
	if c.Limits.Workers < 0 {
		errs = append(errs, fmt.Errorf("limits.workers must be >= 0, got %d", c.Limits.Workers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
