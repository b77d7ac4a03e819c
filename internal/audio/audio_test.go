package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

func tone(n, sr int) domain.Waveform {
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sr))
	}
	return domain.Waveform{Samples: s, SampleRate: sr}
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := tone(2205, 22050)

	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, in))
	assert.Equal(t, "RIFF", buf.String()[:4])

	out, err := Decode(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, 22050, out.SampleRate)
	require.Len(t, out.Samples, len(in.Samples))
	for i := range in.Samples {
		assert.InDelta(t, in.Samples[i], out.Samples[i], 1.0/16384)
	}
}

func TestEncodeWAV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, tone(1000, 16000)))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	out, err := DecodeFile(f, path)
	require.NoError(t, err)
	assert.Len(t, out.Samples, 1000)
	assert.Equal(t, 16000, out.SampleRate)
}

func TestEncodeWAV_Clips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, domain.Waveform{Samples: []float64{2, -2, 0}, SampleRate: 8000}))

	out, err := Decode(&buf, FormatWAV)
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Samples[0], 1e-3)
	assert.InDelta(t, -1, out.Samples[1], 1e-3)
	assert.Zero(t, out.Samples[2])
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil), "")
	assert.ErrorIs(t, err, domain.ErrEmptyAudio)

	_, err = Decode(strings.NewReader("plain text, not audio"), "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = Decode(strings.NewReader("RIFF....WAVEjunk"), FormatWAV)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = Decode(strings.NewReader("definitely not an mp3 stream"), FormatMP3)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = Decode(strings.NewReader("x"), "flac")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestFormatDetection(t *testing.T) {
	assert.Equal(t, FormatWAV, FormatFromName("clip.WAV"))
	assert.Equal(t, FormatMP3, FormatFromName("/tmp/voice.mp3"))
	assert.Empty(t, FormatFromName("notes.txt"))

	assert.Equal(t, FormatWAV, Sniff([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")))
	assert.Equal(t, FormatMP3, Sniff([]byte("ID3\x04")))
	assert.Equal(t, FormatMP3, Sniff([]byte{0xFF, 0xFB, 0x90}))
	assert.Empty(t, Sniff([]byte("OggS")))
}

func TestResample(t *testing.T) {
	in := tone(44100, 44100)

	out, err := Resample(in, 22050)
	require.NoError(t, err)
	assert.Equal(t, 22050, out.SampleRate)
	assert.Len(t, out.Samples, 22050)
	assert.InDelta(t, in.Samples[200], out.Samples[100], 1e-12)

	up, err := Resample(domain.Waveform{Samples: []float64{0, 1}, SampleRate: 2}, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 1}, up.Samples)

	same, err := Resample(in, 44100)
	require.NoError(t, err)
	assert.Equal(t, in.Samples, same.Samples)

	_, err = Resample(in, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResample_CapsLength(t *testing.T) {
	in := domain.Waveform{Samples: make([]float64, 4000), SampleRate: 1}

	_, err := Resample(in, 22050)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestDecode_RejectsImplausibleRates(t *testing.T) {
	for _, rate := range []int{1, MinSampleRate - 1, MaxSampleRate + 1} {
		var buf bytes.Buffer
		require.NoError(t, EncodeWAV(&buf, domain.Waveform{Samples: make([]float64, 4000), SampleRate: rate}))

		_, err := Decode(bytes.NewReader(buf.Bytes()), FormatWAV)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat, "rate %d", rate)
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, domain.Waveform{Samples: make([]float64, 400), SampleRate: MinSampleRate}))
	w, err := Decode(bytes.NewReader(buf.Bytes()), FormatWAV)
	require.NoError(t, err)
	assert.Equal(t, MinSampleRate, w.SampleRate)
}
