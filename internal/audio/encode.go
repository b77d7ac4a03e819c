package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

const pcmFormat = 1

// EncodeWAV writes wave as a 16-bit mono PCM file. Samples are clipped to
// [-1, 1].
func EncodeWAV(w io.Writer, wave domain.Waveform) error {
	if err := wave.Validate(); err != nil {
		return err
	}
	ws, ok := w.(io.WriteSeeker)
	var mem *seekBuffer
	if !ok {
		mem = &seekBuffer{}
		ws = mem
	}

	data := make([]int, len(wave.Samples))
	for i, v := range wave.Samples {
		v = math.Max(-1, math.Min(1, v))
		data[i] = int(math.Round(v * math.MaxInt16))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: wave.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(ws, wave.SampleRate, 16, 1, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: wav close: %w", err)
	}
	if mem != nil {
		if _, err := w.Write(mem.buf); err != nil {
			return fmt.Errorf("audio: write: %w", err)
		}
	}
	return nil
}

// seekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, errors.New("audio: invalid whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("audio: negative position")
	}
	b.pos = int(next)
	return next, nil
}
