package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "realestate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3.19, cfg.Normalize.ExchangeRate)
	assert.Equal(t, "skip", cfg.Normalize.OnMalformed)
	assert.Equal(t, 30, cfg.Report.HistogramBins)
	assert.Equal(t, "Rio Grande do Sul", cfg.Report.FocusState)
	assert.Equal(t, "South", cfg.Report.FocusRegion)
	assert.Equal(t, -14.2, cfg.Report.MapCenterLat)
	assert.Equal(t, -51.9, cfg.Report.MapCenterLon)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), *cfg)
			},
		},
		{
			name: "file overlays defaults",
			file: "normalize:\n  exchange_rate: 5.25\nreport:\n  out_dir: out\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5.25, cfg.Normalize.ExchangeRate)
				assert.Equal(t, "out", cfg.Report.OutDir)
				assert.Equal(t, "skip", cfg.Normalize.OnMalformed)
				assert.Equal(t, 30, cfg.Report.HistogramBins)
			},
		},
		{
			name: "env overrides file",
			file: "normalize:\n  exchange_rate: 5.25\n",
			env: map[string]string{
				"REALESTATE_NORMALIZE_EXCHANGE_RATE": "4.5",
				"REALESTATE_NORMALIZE_ON_MALFORMED":  "abort",
				"REALESTATE_SOURCES_SOURCE_A":        "/tmp/a.csv",
				"REALESTATE_REPORT_HISTOGRAM_BINS":   "12",
				"REALESTATE_LOGGING_FORMAT":          "json",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4.5, cfg.Normalize.ExchangeRate)
				assert.Equal(t, "abort", cfg.Normalize.OnMalformed)
				assert.Equal(t, "/tmp/a.csv", cfg.Sources.SourceA)
				assert.Equal(t, "data/brasil-real-estate-2.csv", cfg.Sources.SourceB)
				assert.Equal(t, 12, cfg.Report.HistogramBins)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name:    "unknown key in file",
			file:    "normalize:\n  exchange: 5\n",
			wantErr: true,
		},
		{
			name:    "bad env value",
			env:     map[string]string{"REALESTATE_REPORT_HISTOGRAM_BINS": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"zero exchange rate", func(c *Config) { c.Normalize.ExchangeRate = 0 }, "normalize.exchange_rate"},
		{"negative exchange rate", func(c *Config) { c.Normalize.ExchangeRate = -1 }, "normalize.exchange_rate"},
		{"unknown policy", func(c *Config) { c.Normalize.OnMalformed = "ignore" }, "normalize.on_malformed"},
		{"too many bins", func(c *Config) { c.Report.HistogramBins = 500 }, "report.histogram_bins"},
		{"no bins", func(c *Config) { c.Report.HistogramBins = 0 }, "report.histogram_bins"},
		{"latitude out of range", func(c *Config) { c.Report.MapCenterLat = 95 }, "report.map_center_lat"},
		{"missing source", func(c *Config) { c.Sources.SourceB = "" }, "sources.source_b"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
