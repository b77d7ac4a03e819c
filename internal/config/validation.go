package config

import (
	"fmt"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	bad := func(field, msg, hint string) error {
		return &InvalidConfigError{Path: c.Path, Field: field, Message: msg, Hint: hint}
	}

	if c.Server.Addr == "" {
		return bad("server.addr", "must not be empty", "Use a listen address such as :8080")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return bad("server.max_upload_bytes", "must be positive", "32 MiB (33554432) is a reasonable cap")
	}
	if c.Models.Dir == "" {
		return bad("models.dir", "must not be empty", "Point it at the directory holding *.model.yaml artifacts")
	}
	switch c.Storage.Driver {
	case StorageSQLite, StorageSQLitePure, StorageCSV:
		if c.Storage.Path == "" {
			return bad("storage.path", "is required for driver "+c.Storage.Driver, "Use a file path, or :memory: for sqlite")
		}
	case StorageMemory:
	default:
		return bad("storage.driver", fmt.Sprintf("unknown driver %q", c.Storage.Driver),
			"Choose one of sqlite, sqlite-pure, csv, memory")
	}

	s := c.Synth
	if s.SampleRate <= 0 {
		return bad("synth.sample_rate", "must be positive", "22050 matches the reference loader")
	}
	if s.HopSize <= 0 {
		return bad("synth.hop_size", "must be positive", "512 is the default hop")
	}
	if s.FrameLength < s.HopSize {
		return bad("synth.frame_length", "must be at least hop_size", "2048 is the default frame length")
	}
	if s.FMin <= 0 || s.FMin >= s.FMax {
		return bad("synth.fmin", fmt.Sprintf("range [%g, %g] is empty", s.FMin, s.FMax), "fmin must be positive and below fmax")
	}
	if s.Volume <= 0 || s.Volume > 1 {
		return bad("synth.volume", fmt.Sprintf("%g not in (0, 1]", s.Volume), "Use 1.0 for full scale")
	}
	if _, err := c.SynthOptions(); err != nil {
		return bad("synth", err.Error(), "wave is sine|harmonic|square|triangle, interpolation is linear|repeat")
	}

	if c.Workers.Count < 1 {
		return bad("workers.count", "must be at least 1", "Match it to the CPUs you want for synthesis")
	}
	if c.Workers.QueueSize < 1 {
		return bad("workers.queue_size", "must be at least 1", "Jobs beyond the queue are rejected, not dropped")
	}
	if c.Spotify.MaxRetries < 0 {
		return bad("spotify.max_retries", "must not be negative", "Use 0 to disable retries")
	}
	if c.Spotify.RetryBackoffMS < 0 {
		return bad("spotify.retry_backoff_ms", "must not be negative", "500 is the default")
	}
	tables, err := c.RuleTables()
	if err != nil {
		return err
	}
	if name := c.Recommend.DefaultTable; name != "" && name != domain.CompanionTableName {
		found := false
		for _, t := range tables {
			found = found || t.Name == name
		}
		if !found {
			return bad("recommend.default_table", fmt.Sprintf("table %q is not declared", name),
				"Declare it under recommend.tables or use companion")
		}
	}
	return nil
}
