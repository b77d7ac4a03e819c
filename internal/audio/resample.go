package audio

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// MaxSamples bounds the length of a resampled clip (20 minutes at 48 kHz).
const MaxSamples = 48000 * 60 * 20

// Resample converts w to rate with linear interpolation. The output holds
// round(len * rate / w.SampleRate) samples; more than MaxSamples is an
// ErrOutOfRange.
func Resample(w domain.Waveform, rate int) (domain.Waveform, error) {
	if err := w.Validate(); err != nil {
		return domain.Waveform{}, err
	}
	if rate <= 0 {
		return domain.Waveform{}, &domain.FieldError{Field: "sample_rate", Reason: fmt.Sprintf("target rate %d must be positive", rate), Kind: domain.ErrInvalidInput}
	}
	if rate == w.SampleRate || len(w.Samples) == 0 {
		out := make([]float64, len(w.Samples))
		copy(out, w.Samples)
		return domain.Waveform{Samples: out, SampleRate: rate}, nil
	}

	ratio := float64(w.SampleRate) / float64(rate)
	exact := math.Round(float64(len(w.Samples)) / ratio)
	if exact > MaxSamples {
		return domain.Waveform{}, fmt.Errorf("audio: resampling %d samples from %d to %d Hz gives %.0f samples, limit %d: %w",
			len(w.Samples), w.SampleRate, rate, exact, MaxSamples, domain.ErrOutOfRange)
	}
	n := int(exact)
	out := make([]float64, n)
	last := len(w.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		k := int(pos)
		if k >= last {
			out[i] = w.Samples[last]
			continue
		}
		frac := pos - float64(k)
		out[i] = w.Samples[k]*(1-frac) + w.Samples[k+1]*frac
	}
	return domain.Waveform{Samples: out, SampleRate: rate}, nil
}
