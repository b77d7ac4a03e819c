package domain

import "time"

// Waveform is a mono sample stream with nominal amplitude in [-1, 1].
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration reports the playing time of the waveform.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Validate checks the waveform can be analyzed.
func (w Waveform) Validate() error {
	if w.SampleRate <= 0 {
		return &FieldError{Field: "sample_rate", Reason: "must be positive", Kind: ErrInvalidInput}
	}
	return nil
}

// PitchContour holds one fundamental-frequency estimate per analysis frame.
// A frequency of zero marks an unvoiced or silent frame.
type PitchContour struct {
	Frequencies []float64
	Voiced      []bool
	HopSize     int
	SampleRate  int
}

// VoicedCount returns the number of frames with a detected pitch.
func (c PitchContour) VoicedCount() int {
	n := 0
	for _, f := range c.Frequencies {
		if f > 0 {
			n++
		}
	}
	return n
}
