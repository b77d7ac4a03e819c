// Package config resolves the process configuration once at startup from
// built-in defaults, an optional YAML file and environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

// Storage drivers.
const (
	StorageSQLite     = "sqlite"
	StorageSQLitePure = "sqlite-pure"
	StorageCSV        = "csv"
	StorageMemory     = "memory"
)

// Config is the resolved configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Models    ModelsConfig    `yaml:"models"`
	Storage   StorageConfig   `yaml:"storage"`
	Synth     SynthConfig     `yaml:"synth"`
	Workers   WorkersConfig   `yaml:"workers"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Recommend RecommendConfig `yaml:"recommend"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

type ModelsConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	Watch   bool   `yaml:"watch"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type SynthConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	FrameLength   int     `yaml:"frame_length"`
	HopSize       int     `yaml:"hop_size"`
	FMin          float64 `yaml:"fmin"`
	FMax          float64 `yaml:"fmax"`
	Wave          string  `yaml:"wave"`
	Volume        float64 `yaml:"volume"`
	Interpolation string  `yaml:"interpolation"`
}

type WorkersConfig struct {
	Count      int `yaml:"count"`
	QueueSize  int `yaml:"queue_size"`
	RetainJobs int `yaml:"retain_jobs"`
}

type SpotifyConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	Market         string `yaml:"market"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms"`
}

// Enabled reports whether credentials are present.
func (s SpotifyConfig) Enabled() bool { return s.ClientID != "" && s.ClientSecret != "" }

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// Enabled reports whether a host is configured.
func (o OllamaConfig) Enabled() bool { return o.Host != "" }

type RecommendConfig struct {
	DefaultTable string            `yaml:"default_table"`
	TaskModel    string            `yaml:"task_model"`
	Links        map[string]string `yaml:"links"`
	Tables       []TableConfig     `yaml:"tables"`
}

// TableConfig declares an extra rule table.
type TableConfig struct {
	Name    string         `yaml:"name"`
	Default domain.Outcome `yaml:"default"`
	Rules   []domain.Rule  `yaml:"rules"`
}

// Default returns the built-in configuration.
func Default() *Config {
	synth := dsp.DefaultSynthOptions()
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxUploadBytes:    32 << 20,
		},
		Models: ModelsConfig{
			Dir:     "models",
			Pattern: "**/*.model.{yaml,yml,json}",
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "vocalis.db",
		},
		Synth: SynthConfig{
			SampleRate:    22050,
			FrameLength:   synth.Pitch.FrameLength,
			HopSize:       synth.Pitch.HopSize,
			FMin:          synth.Pitch.FMin,
			FMax:          synth.Pitch.FMax,
			Wave:          string(synth.Shape),
			Volume:        synth.Volume,
			Interpolation: string(synth.Interpolation),
		},
		Workers: WorkersConfig{
			Count:      2,
			QueueSize:  16,
			RetainJobs: 100,
		},
		Spotify: SpotifyConfig{
			MaxRetries:     3,
			RetryBackoffMS: 500,
		},
		Ollama: OllamaConfig{
			Model: "llama3.1:8b",
		},
		Recommend: RecommendConfig{
			DefaultTable: domain.CompanionTableName,
			TaskModel:    "companion-task",
		},
	}
}

// SynthOptions converts the synth section into synthesizer options.
func (c *Config) SynthOptions() (dsp.SynthOptions, error) {
	opts := dsp.DefaultSynthOptions()
	shape, err := dsp.ParseWaveShape(c.Synth.Wave)
	if err != nil {
		return opts, err
	}
	interp, err := dsp.ParseInterpolation(c.Synth.Interpolation)
	if err != nil {
		return opts, err
	}
	opts.Shape = shape
	opts.Interpolation = interp
	opts.Volume = c.Synth.Volume
	opts.Pitch.FrameLength = c.Synth.FrameLength
	opts.Pitch.HopSize = c.Synth.HopSize
	opts.Pitch.FMin = c.Synth.FMin
	opts.Pitch.FMax = c.Synth.FMax
	return opts, nil
}

// RuleTables builds the extra tables declared under recommend.tables.
func (c *Config) RuleTables() ([]*domain.RuleTable, error) {
	out := make([]*domain.RuleTable, 0, len(c.Recommend.Tables))
	seen := map[string]bool{domain.CompanionTableName: true}
	for _, tc := range c.Recommend.Tables {
		if seen[tc.Name] {
			return nil, &InvalidConfigError{
				Path:    c.Path,
				Field:   "recommend.tables",
				Message: fmt.Sprintf("table name %q is already taken", tc.Name),
				Hint:    "Table names are unique and companion is reserved for the built-in table",
			}
		}
		seen[tc.Name] = true
		t, err := domain.NewRuleTable(tc.Name, tc.Default, tc.Rules)
		if err != nil {
			return nil, &InvalidConfigError{
				Path:    c.Path,
				Field:   "recommend.tables",
				Message: err.Error(),
				Hint:    "Each table needs a name, a default music label and unique mood/activity pairs",
			}
		}
		out = append(out, t)
	}
	return out, nil
}
