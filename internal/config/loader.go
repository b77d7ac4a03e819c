package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "VOCALIS_CONFIG"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load resolves defaults, then the YAML file at path (or $VOCALIS_CONFIG),
// then environment overrides, and validates the result. An empty path with
// no variable set uses defaults only.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		if err := readFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &ConfigNotFoundError{
				Path: path,
				Hint: "Pass --config with an existing file or unset " + EnvConfigPath,
			}
		}
		return fmt.Errorf("failed to access config: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := decode(cfg, bytes.NewReader(data)); err != nil {
		return &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Check indentation and field names against the documented sections",
		}
	}
	cfg.Path = path
	return nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func decode(cfg *Config, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &InvalidConfigError{
				Field:   key,
				Message: fmt.Sprintf("%q is not an integer", v),
				Hint:    "Unset the variable or give it a whole number",
			}
		}
		*dst = n
		return nil
	}

	str("VOCALIS_ADDR", &cfg.Server.Addr)
	str("VOCALIS_MODELS_DIR", &cfg.Models.Dir)
	str("VOCALIS_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("VOCALIS_STORAGE_PATH", &cfg.Storage.Path)
	str("SPOTIFY_CLIENT_ID", &cfg.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &cfg.Spotify.ClientSecret)
	str("OLLAMA_HOST", &cfg.Ollama.Host)
	if err := num("SPOTIFY_MAX_RETRIES", &cfg.Spotify.MaxRetries); err != nil {
		return err
	}
	return num("SPOTIFY_RETRY_BACKOFF_MS", &cfg.Spotify.RetryBackoffMS)
}
