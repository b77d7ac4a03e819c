// Package audio converts uploaded media into mono waveforms and back.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Supported container formats.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// Decoded clips must declare a rate inside this range.
const (
	MinSampleRate = 4000
	MaxSampleRate = 192000
)

// FormatFromName guesses the container from a file name extension.
// It returns "" for anything it does not recognize.
func FormatFromName(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "wav", "wave":
		return FormatWAV
	case "mp3":
		return FormatMP3
	}
	return ""
}

// Sniff inspects the leading bytes of a file.
func Sniff(head []byte) string {
	switch {
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return FormatWAV
	case len(head) >= 3 && string(head[:3]) == "ID3":
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return ""
}

// Decode reads a whole clip and downmixes it to mono samples in [-1, 1].
// An empty format is detected from the content.
func Decode(r io.Reader, format string) (domain.Waveform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("audio: read: %w", err)
	}
	if len(data) == 0 {
		return domain.Waveform{}, domain.ErrEmptyAudio
	}
	if format == "" {
		format = Sniff(data)
	}

	var w domain.Waveform
	switch strings.ToLower(format) {
	case FormatWAV:
		w, err = decodeWAV(data)
	case FormatMP3:
		w, err = decodeMP3(data)
	default:
		return domain.Waveform{}, fmt.Errorf("audio: %q: %w", format, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return domain.Waveform{}, err
	}
	if w.SampleRate < MinSampleRate || w.SampleRate > MaxSampleRate {
		return domain.Waveform{}, fmt.Errorf("audio: sample rate %d Hz outside [%d, %d]: %w", w.SampleRate, MinSampleRate, MaxSampleRate, domain.ErrUnsupportedFormat)
	}
	if len(w.Samples) == 0 {
		return domain.Waveform{}, domain.ErrEmptyAudio
	}
	return w, nil
}

// DecodeFile is Decode with the format taken from name when it is known.
func DecodeFile(r io.Reader, name string) (domain.Waveform, error) {
	return Decode(r, FormatFromName(name))
}

func decodeWAV(data []byte) (domain.Waveform, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return domain.Waveform{}, fmt.Errorf("audio: invalid wav header: %w", domain.ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != 1 {
		return domain.Waveform{}, fmt.Errorf("audio: wav encoding %d is not PCM: %w", d.WavAudioFormat, domain.ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("audio: wav decode: %v: %w", err, domain.ErrUnsupportedFormat)
	}
	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(d.BitDepth)
	if depth <= 0 || depth > 32 {
		return domain.Waveform{}, fmt.Errorf("audio: wav bit depth %d: %w", depth, domain.ErrUnsupportedFormat)
	}
	scale := float64(int64(1) << (depth - 1))
	if depth == 8 {
		// 8-bit PCM is unsigned.
		out := make([]float64, len(buf.Data)/channels)
		for i := range out {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += (float64(buf.Data[i*channels+c]) - 128) / 128
			}
			out[i] = sum / float64(channels)
		}
		return domain.Waveform{Samples: out, SampleRate: int(d.SampleRate)}, nil
	}

	out := make([]float64, len(buf.Data)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / scale
		}
		out[i] = sum / float64(channels)
	}
	return domain.Waveform{Samples: out, SampleRate: int(d.SampleRate)}, nil
}

// decodeMP3 reads the decoder's 16-bit little-endian stereo stream.
func decodeMP3(data []byte) (domain.Waveform, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("audio: mp3 decode: %v: %w", err, domain.ErrUnsupportedFormat)
	}

	samples := make([]float64, 0, decoder.Length()/4)
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			chunk := append(pending, buf[:n]...)
			i := 0
			for ; i+3 < len(chunk); i += 4 {
				left := int16(chunk[i]) | int16(chunk[i+1])<<8
				right := int16(chunk[i+2]) | int16(chunk[i+3])<<8
				samples = append(samples, (float64(left)+float64(right))/2/32768.0)
			}
			pending = append(pending[:0], chunk[i:]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return domain.Waveform{}, fmt.Errorf("audio: mp3 read: %v: %w", err, domain.ErrUnsupportedFormat)
		}
	}
	return domain.Waveform{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}
