// Package dsp implements the signal processing behind the voice tools:
// pitch tracking, contour-driven tone synthesis and coarse audio analysis.
package dsp

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Pitch tracking defaults. The range spans C2 to C7.
const (
	DefaultFrameLength = 2048
	DefaultHopSize     = 512
	DefaultThreshold   = 0.15
	DefaultSilenceRMS  = 0.01
)

var (
	DefaultFMin = mustNote("C2")
	DefaultFMax = mustNote("C7")
)

// PitchOptions configures TrackPitch.
type PitchOptions struct {
	FrameLength int
	HopSize     int
	FMin        float64
	FMax        float64
	// Threshold is the YIN absolute threshold on the normalized difference.
	Threshold float64
	// SilenceRMS marks frames quieter than this as unvoiced.
	SilenceRMS float64
}

// DefaultPitchOptions returns the tracker settings used throughout the app.
func DefaultPitchOptions() PitchOptions {
	return PitchOptions{
		FrameLength: DefaultFrameLength,
		HopSize:     DefaultHopSize,
		FMin:        DefaultFMin,
		FMax:        DefaultFMax,
		Threshold:   DefaultThreshold,
		SilenceRMS:  DefaultSilenceRMS,
	}
}

func (o PitchOptions) withDefaults() PitchOptions {
	d := DefaultPitchOptions()
	if o.FrameLength <= 0 {
		o.FrameLength = d.FrameLength
	}
	if o.HopSize <= 0 {
		o.HopSize = d.HopSize
	}
	if o.FMin <= 0 {
		o.FMin = d.FMin
	}
	if o.FMax <= 0 {
		o.FMax = d.FMax
	}
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.SilenceRMS < 0 {
		o.SilenceRMS = 0
	}
	return o
}

// Validate reports option combinations the tracker cannot honor.
func (o PitchOptions) Validate() error {
	o = o.withDefaults()
	if o.FMin >= o.FMax {
		return &domain.FieldError{Field: "fmin", Reason: fmt.Sprintf("%g must be below fmax %g", o.FMin, o.FMax), Kind: domain.ErrInvalidInput}
	}
	return nil
}

// FrameCount is the number of centered analysis frames for n samples.
func FrameCount(n, hop int) int {
	if n <= 0 {
		return 0
	}
	return 1 + n/hop
}

// TrackPitch estimates the fundamental frequency of each frame with the
// YIN method. Frames are centered on multiples of the hop size and zero
// padded at the edges. Unvoiced frames get frequency 0.
func TrackPitch(w domain.Waveform, opts PitchOptions) (domain.PitchContour, error) {
	if err := w.Validate(); err != nil {
		return domain.PitchContour{}, err
	}
	if err := opts.Validate(); err != nil {
		return domain.PitchContour{}, err
	}
	opts = opts.withDefaults()

	sr := float64(w.SampleRate)
	tauMin := int(math.Floor(sr / opts.FMax))
	if tauMin < 2 {
		tauMin = 2
	}
	tauMax := int(math.Ceil(sr / opts.FMin))
	frameLen := opts.FrameLength
	if frameLen < 2*(tauMax+1) {
		frameLen = 2 * (tauMax + 1)
	}

	n := FrameCount(len(w.Samples), opts.HopSize)
	contour := domain.PitchContour{
		Frequencies: make([]float64, n),
		Voiced:      make([]bool, n),
		HopSize:     opts.HopSize,
		SampleRate:  w.SampleRate,
	}

	frame := make([]float64, frameLen)
	diff := make([]float64, tauMax+2)
	for i := 0; i < n; i++ {
		fillFrame(frame, w.Samples, i*opts.HopSize-frameLen/2)
		if rms(frame) < opts.SilenceRMS {
			continue
		}
		f0, ok := yin(frame, diff, tauMin, tauMax, opts.Threshold, sr)
		if !ok || f0 < opts.FMin || f0 > opts.FMax {
			continue
		}
		contour.Frequencies[i] = f0
		contour.Voiced[i] = true
	}
	return contour, nil
}

// fillFrame copies samples[start:start+len(frame)] into frame, zero
// filling positions that fall outside the signal.
func fillFrame(frame, samples []float64, start int) {
	for j := range frame {
		k := start + j
		if k < 0 || k >= len(samples) {
			frame[j] = 0
			continue
		}
		frame[j] = samples[k]
	}
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}

// yin returns the estimated frequency of frame, or ok=false when no lag
// dips below the threshold. diff must hold at least tauMax+2 values.
func yin(frame, diff []float64, tauMin, tauMax int, threshold, sr float64) (float64, bool) {
	window := len(frame) - tauMax - 1

	diff[0] = 1
	var running float64
	for tau := 1; tau <= tauMax+1; tau++ {
		var d float64
		for j := 0; j < window; j++ {
			delta := frame[j] - frame[j+tau]
			d += delta * delta
		}
		running += d
		if running == 0 {
			diff[tau] = 1
			continue
		}
		diff[tau] = d * float64(tau) / running
	}

	tau := -1
	for t := tauMin; t <= tauMax; t++ {
		if diff[t] < threshold {
			for t+1 <= tauMax && diff[t+1] < diff[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0, false
	}

	refined := float64(tau)
	if tau > 1 {
		a, b, c := diff[tau-1], diff[tau], diff[tau+1]
		denom := a - 2*b + c
		if denom != 0 {
			shift := 0.5 * (a - c) / denom
			if math.Abs(shift) < 1 {
				refined += shift
			}
		}
	}
	if refined <= 0 {
		return 0, false
	}
	return sr / refined, true
}
