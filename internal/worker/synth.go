package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ewilliams-labs/vocalis/internal/audio"
	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

// Synthesizer renders a tone from a decoded clip.
type Synthesizer interface {
	SynthesizeWaveform(ctx context.Context, w domain.Waveform, opts dsp.SynthOptions) (domain.Waveform, error)
}

// SynthesisTask synthesizes w and encodes the result as WAV.
func SynthesisTask(s Synthesizer, w domain.Waveform, opts dsp.SynthOptions) Task {
	return func(ctx context.Context) (Result, error) {
		out, err := s.SynthesizeWaveform(ctx, w, opts)
		if err != nil {
			return Result{}, err
		}
		var buf bytes.Buffer
		if err := audio.EncodeWAV(&buf, out); err != nil {
			return Result{}, fmt.Errorf("worker: encode result: %w", err)
		}
		return Result{
			Data:        buf.Bytes(),
			ContentType: "audio/wav",
			Samples:     len(out.Samples),
			SampleRate:  out.SampleRate,
		}, nil
	}
}
