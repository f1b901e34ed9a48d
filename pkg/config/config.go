// Package config loads the pipeline configuration from built-in defaults,
// an optional YAML file and REALESTATE_* environment variables, in that
// order of increasing precedence. Command-line flags are applied on top by
// the caller before Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "REALESTATE"

// Config represents the complete application configuration
type Config struct {
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Normalize NormalizeConfig `yaml:"normalize" envconfig:"NORMALIZE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// SourcesConfig locates the two raw listing files
type SourcesConfig struct {
	SourceA string `yaml:"source_a" envconfig:"SOURCE_A" validate:"required"`
	SourceB string `yaml:"source_b" envconfig:"SOURCE_B" validate:"required"`
}

// NormalizeConfig controls price conversion and malformed-row handling
type NormalizeConfig struct {
	ExchangeRate float64 `yaml:"exchange_rate" envconfig:"EXCHANGE_RATE" validate:"gt=0"`
	OnMalformed  string  `yaml:"on_malformed" envconfig:"ON_MALFORMED" validate:"oneof=skip abort"`
}

// ReportConfig controls the rendered artifacts
type ReportConfig struct {
	OutDir        string  `yaml:"out_dir" envconfig:"OUT_DIR" validate:"required"`
	HistogramBins int     `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS" validate:"min=1,max=200"`
	FocusState    string  `yaml:"focus_state" envconfig:"FOCUS_STATE" validate:"required"`
	FocusRegion   string  `yaml:"focus_region" envconfig:"FOCUS_REGION" validate:"required"`
	MapCenterLat  float64 `yaml:"map_center_lat" envconfig:"MAP_CENTER_LAT" validate:"latitude"`
	MapCenterLon  float64 `yaml:"map_center_lon" envconfig:"MAP_CENTER_LON" validate:"longitude"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sources: SourcesConfig{
			SourceA: "data/brasil-real-estate-1.csv",
			SourceB: "data/brasil-real-estate-2.csv",
		},
		Normalize: NormalizeConfig{
			ExchangeRate: 3.19,
			OnMalformed:  "skip",
		},
		Report: ReportConfig{
			OutDir:        "reports",
			HistogramBins: 30,
			FocusState:    "Rio Grande do Sul",
			FocusRegion:   "South",
			MapCenterLat:  -14.2,
			MapCenterLon:  -51.9,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is non-empty) and the environment. The result is not validated so
// that callers can apply flag overrides first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags: unset variables leave file and built-in values alone.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys missing from the file
// keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report yaml key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field against its constraints and reports all
// violations at once, keyed by dotted YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s=%s", key, fe.Value(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s", key, fe.Value(), fe.Tag()))
		}
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}
