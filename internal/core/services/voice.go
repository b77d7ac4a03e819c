package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ewilliams-labs/vocalis/internal/audio"
	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

// Voice turns uploaded recordings into synthesized tones and analyses.
type Voice struct {
	sampleRate int
	defaults   dsp.SynthOptions
	logger     *slog.Logger
}

// NewVoice constructs a Voice. Input is resampled to sampleRate before
// processing; zero keeps the native rate.
func NewVoice(sampleRate int, defaults dsp.SynthOptions, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{sampleRate: sampleRate, defaults: defaults, logger: logger}
}

// Defaults returns the configured synthesis options.
func (v *Voice) Defaults() dsp.SynthOptions { return v.defaults }

// Load decodes a clip and brings it to the working sample rate.
func (v *Voice) Load(ctx context.Context, r io.Reader, filename string) (domain.Waveform, error) {
	w, err := audio.DecodeFile(r, filename)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("service: failed to decode %q: %w", filename, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Waveform{}, err
	}
	if v.sampleRate > 0 && w.SampleRate != v.sampleRate {
		v.logger.Debug("resampling", "from", w.SampleRate, "to", v.sampleRate)
		if w, err = audio.Resample(w, v.sampleRate); err != nil {
			return domain.Waveform{}, fmt.Errorf("service: failed to resample: %w", err)
		}
	}
	return w, nil
}

// Synthesize renders a tone following the pitch of the uploaded clip.
func (v *Voice) Synthesize(ctx context.Context, r io.Reader, filename string, opts dsp.SynthOptions) (domain.Waveform, error) {
	w, err := v.Load(ctx, r, filename)
	if err != nil {
		return domain.Waveform{}, err
	}
	return v.SynthesizeWaveform(ctx, w, opts)
}

// SynthesizeWaveform is Synthesize for an already decoded clip.
func (v *Voice) SynthesizeWaveform(ctx context.Context, w domain.Waveform, opts dsp.SynthOptions) (domain.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return domain.Waveform{}, err
	}
	out, err := dsp.Synthesize(w, opts)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("service: synthesis failed: %w", err)
	}
	v.logger.Info("tone synthesized", "samples", len(out.Samples), "rate", out.SampleRate, "wave", opts.Shape)
	return out, nil
}

// Analyze describes the uploaded clip.
func (v *Voice) Analyze(ctx context.Context, r io.Reader, filename string) (dsp.Analysis, error) {
	w, err := v.Load(ctx, r, filename)
	if err != nil {
		return dsp.Analysis{}, err
	}
	a, err := dsp.Analyze(w, v.defaults.Pitch)
	if err != nil {
		return dsp.Analysis{}, fmt.Errorf("service: analysis failed: %w", err)
	}
	return a, nil
}
