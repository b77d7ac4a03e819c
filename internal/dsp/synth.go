package dsp

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// WaveShape selects the periodic function evaluated at the running phase.
type WaveShape string

const (
	ShapeSine     WaveShape = "sine"
	ShapeHarmonic WaveShape = "harmonic"
	ShapeSquare   WaveShape = "square"
	ShapeTriangle WaveShape = "triangle"
)

// Interpolation selects how frame estimates are spread over samples.
type Interpolation string

const (
	InterpLinear Interpolation = "linear"
	InterpRepeat Interpolation = "repeat"
)

// ParseWaveShape accepts a shape name, case-insensitively. Empty means sine.
func ParseWaveShape(s string) (WaveShape, error) {
	switch WaveShape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeSine:
		return ShapeSine, nil
	case ShapeHarmonic:
		return ShapeHarmonic, nil
	case ShapeSquare:
		return ShapeSquare, nil
	case ShapeTriangle:
		return ShapeTriangle, nil
	}
	return "", &domain.FieldError{Field: "wave", Reason: fmt.Sprintf("unknown shape %q", s), Kind: domain.ErrInvalidInput}
}

// ParseInterpolation accepts "linear" or "repeat". Empty means linear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch Interpolation(strings.ToLower(strings.TrimSpace(s))) {
	case "", InterpLinear:
		return InterpLinear, nil
	case InterpRepeat:
		return InterpRepeat, nil
	}
	return "", &domain.FieldError{Field: "interpolation", Reason: fmt.Sprintf("unknown mode %q", s), Kind: domain.ErrInvalidInput}
}

// SynthOptions configures Synthesize.
type SynthOptions struct {
	Pitch         PitchOptions
	Shape         WaveShape
	Interpolation Interpolation
	// Volume is the output peak after normalization, in (0, 1].
	Volume float64
	// Strict turns a wholly unvoiced input into ErrNoVoicedFrames instead
	// of a silent result.
	Strict bool
}

// DefaultSynthOptions returns a full-scale sine with linear interpolation.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		Pitch:         DefaultPitchOptions(),
		Shape:         ShapeSine,
		Interpolation: InterpLinear,
		Volume:        1.0,
	}
}

func (o SynthOptions) validate() (SynthOptions, error) {
	if o.Shape == "" {
		o.Shape = ShapeSine
	}
	if _, err := ParseWaveShape(string(o.Shape)); err != nil {
		return o, err
	}
	if o.Interpolation == "" {
		o.Interpolation = InterpLinear
	}
	if _, err := ParseInterpolation(string(o.Interpolation)); err != nil {
		return o, err
	}
	if o.Volume == 0 {
		o.Volume = 1.0
	}
	if o.Volume < 0 || o.Volume > 1 || math.IsNaN(o.Volume) {
		return o, &domain.FieldError{Field: "volume", Reason: fmt.Sprintf("%g not in (0, 1]", o.Volume), Kind: domain.ErrOutOfRange}
	}
	return o, nil
}

// Synthesize renders a tone that follows the pitch of w. The result has
// exactly as many samples as w, at the same rate.
func Synthesize(w domain.Waveform, opts SynthOptions) (domain.Waveform, error) {
	opts, err := opts.validate()
	if err != nil {
		return domain.Waveform{}, err
	}
	contour, err := TrackPitch(w, opts.Pitch)
	if err != nil {
		return domain.Waveform{}, err
	}
	return SynthesizeContour(contour, len(w.Samples), opts)
}

// SynthesizeContour renders n samples from an existing pitch contour.
func SynthesizeContour(c domain.PitchContour, n int, opts SynthOptions) (domain.Waveform, error) {
	opts, err := opts.validate()
	if err != nil {
		return domain.Waveform{}, err
	}
	if c.SampleRate <= 0 {
		return domain.Waveform{}, &domain.FieldError{Field: "sample_rate", Reason: "must be positive", Kind: domain.ErrInvalidInput}
	}
	if opts.Strict && c.VoicedCount() == 0 {
		return domain.Waveform{}, domain.ErrNoVoicedFrames
	}

	freqs := Upsample(c, n, opts.Interpolation)
	phase := Phase(freqs, c.SampleRate)
	out := make([]float64, n)
	for i, ph := range phase {
		if freqs[i] == 0 {
			continue
		}
		out[i] = shapeAt(opts.Shape, ph)
	}
	normalize(out, opts.Volume)
	return domain.Waveform{Samples: out, SampleRate: c.SampleRate}, nil
}

// Upsample spreads per-frame frequencies over n samples. Frame i sits at
// sample i*hop. The result always has exactly n values: a contour longer
// than the signal is truncated, a shorter one is held at its last value
// (linear) or zero padded (repeat).
func Upsample(c domain.PitchContour, n int, mode Interpolation) []float64 {
	out := make([]float64, n)
	frames := len(c.Frequencies)
	if n == 0 || frames == 0 {
		return out
	}
	hop := c.HopSize
	if hop <= 0 {
		hop = DefaultHopSize
	}

	if mode == InterpRepeat {
		for i := range out {
			k := i / hop
			if k >= frames {
				break
			}
			out[i] = c.Frequencies[k]
		}
		return out
	}

	if frames == 1 {
		for i := range out {
			out[i] = c.Frequencies[0]
		}
		return out
	}
	xs := make([]float64, frames)
	for k := range xs {
		xs[k] = float64(k * hop)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, c.Frequencies); err != nil {
		// xs is strictly increasing by construction.
		panic(err)
	}
	for i := range out {
		out[i] = pl.Predict(float64(i))
	}
	return out
}

// Phase integrates instantaneous frequency into instantaneous phase:
// phase[i] = sum_{k<=i} 2*pi*f[k]/sr.
func Phase(freqs []float64, sampleRate int) []float64 {
	phase := make([]float64, len(freqs))
	if len(freqs) == 0 {
		return phase
	}
	floats.CumSum(phase, freqs)
	floats.Scale(2*math.Pi/float64(sampleRate), phase)
	return phase
}

func shapeAt(shape WaveShape, ph float64) float64 {
	switch shape {
	case ShapeHarmonic:
		return 0.5*math.Sin(ph) + 0.25*math.Sin(2*ph)
	case ShapeSquare:
		if math.Sin(ph) >= 0 {
			return 1
		}
		return -1
	case ShapeTriangle:
		return 2 / math.Pi * math.Asin(math.Sin(ph))
	default:
		return math.Sin(ph)
	}
}

// normalize scales x so its peak magnitude equals volume. A silent buffer
// is left untouched.
func normalize(x []float64, volume float64) {
	var peak float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i, v := range x {
		x[i] = v / peak * volume
	}
}
