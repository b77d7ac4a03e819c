package dsp

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Sound classes.
const (
	SoundDoorKnock = "Door Knock"
	SoundHorn      = "Horn"
	SoundGeneral   = "Explosion/General Noise"
)

// Audio moods.
const (
	MoodEnergetic = "Energetic"
	MoodSadCalm   = "Sad/Calm"
	MoodNeutral   = "Neutral"
)

const (
	minTempoBPM = 60.0
	maxTempoBPM = 200.0
)

// PitchStats summarizes the voiced part of a contour.
type PitchStats struct {
	HzMedian   float64 `json:"hz_median"`
	HzMean     float64 `json:"hz_mean"`
	HzMin      float64 `json:"hz_min"`
	HzMax      float64 `json:"hz_max"`
	MIDIMedian float64 `json:"midi_median"`
	Note       string  `json:"note,omitempty"`
}

// Analysis is the coarse description of an uploaded clip.
type Analysis struct {
	DurationSeconds  float64    `json:"duration_seconds"`
	SampleRate       int        `json:"sample_rate"`
	RMSEnergy        float64    `json:"rms_energy"`
	ZeroCrossingRate float64    `json:"zero_crossing_rate"`
	SpectralCentroid float64    `json:"spectral_centroid_hz"`
	TempoBPM         float64    `json:"tempo_bpm"`
	SoundClass       string     `json:"sound_class"`
	Mood             string     `json:"mood"`
	VoicedRatio      float64    `json:"voiced_ratio"`
	Pitch            PitchStats `json:"pitch"`
}

// Analyze computes frame-averaged energy, zero-crossing rate and spectral
// centroid, a tempo estimate, pitch statistics, and the rule-based sound
// class and mood derived from them.
func Analyze(w domain.Waveform, opts PitchOptions) (Analysis, error) {
	if err := w.Validate(); err != nil {
		return Analysis{}, err
	}
	if len(w.Samples) == 0 {
		return Analysis{}, domain.ErrEmptyAudio
	}
	opts = opts.withDefaults()

	contour, err := TrackPitch(w, opts)
	if err != nil {
		return Analysis{}, err
	}

	frames := FrameCount(len(w.Samples), opts.HopSize)
	frameLen := opts.FrameLength
	fft := fourier.NewFFT(frameLen)
	window := hann(frameLen)
	frame := make([]float64, frameLen)
	windowed := make([]float64, frameLen)
	coeffs := make([]complex128, frameLen/2+1)
	mags := make([]float64, len(coeffs))
	prevMags := make([]float64, len(coeffs))

	energies := make([]float64, 0, frames)
	zcrs := make([]float64, 0, frames)
	centroids := make([]float64, 0, frames)
	onsets := make([]float64, 0, frames)

	for i := 0; i < frames; i++ {
		fillFrame(frame, w.Samples, i*opts.HopSize-frameLen/2)
		energies = append(energies, rms(frame))
		zcrs = append(zcrs, zeroCrossingRate(frame))

		floats.MulTo(windowed, frame, window)
		coeffs = fft.Coefficients(coeffs, windowed)
		var total, weighted, flux float64
		for k, c := range coeffs {
			m := cmplx.Abs(c)
			mags[k] = m
			total += m
			weighted += m * fft.Freq(k) * float64(w.SampleRate)
			if d := m - prevMags[k]; i > 0 && d > 0 {
				flux += d
			}
		}
		if total > 0 {
			centroids = append(centroids, weighted/total)
		}
		onsets = append(onsets, flux)
		copy(prevMags, mags)
	}

	a := Analysis{
		DurationSeconds:  w.Duration().Seconds(),
		SampleRate:       w.SampleRate,
		RMSEnergy:        stat.Mean(energies, nil),
		ZeroCrossingRate: stat.Mean(zcrs, nil),
		TempoBPM:         estimateTempo(onsets, float64(w.SampleRate)/float64(opts.HopSize)),
		Pitch:            pitchStats(contour),
	}
	if len(centroids) > 0 {
		a.SpectralCentroid = stat.Mean(centroids, nil)
	}
	if frames > 0 {
		a.VoicedRatio = float64(contour.VoicedCount()) / float64(frames)
	}
	a.SoundClass = ClassifySound(a.SpectralCentroid, a.ZeroCrossingRate)
	a.Mood = ClassifyMood(a.TempoBPM, a.RMSEnergy)
	return a, nil
}

// ClassifySound applies the centroid/zero-crossing rule.
func ClassifySound(centroidHz, zcr float64) string {
	switch {
	case centroidHz < 1500 && zcr < 0.1:
		return SoundDoorKnock
	case centroidHz > 3000:
		return SoundHorn
	default:
		return SoundGeneral
	}
}

// ClassifyMood applies the tempo/energy rule.
func ClassifyMood(tempoBPM, energy float64) string {
	switch {
	case tempoBPM > 120 && energy > 0.05:
		return MoodEnergetic
	case tempoBPM < 80:
		return MoodSadCalm
	default:
		return MoodNeutral
	}
}

func zeroCrossingRate(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(x); i++ {
		if (x[i-1] >= 0) != (x[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(x))
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// estimateTempo picks the onset-envelope autocorrelation peak between
// 60 and 200 BPM. It returns 0 when the envelope is flat or too short.
func estimateTempo(onsets []float64, framesPerSecond float64) float64 {
	if len(onsets) < 4 || framesPerSecond <= 0 {
		return 0
	}
	mean := stat.Mean(onsets, nil)
	env := make([]float64, len(onsets))
	copy(env, onsets)
	floats.AddConst(-mean, env)
	if floats.Norm(env, 2) == 0 {
		return 0
	}

	minLag := int(math.Floor(60 * framesPerSecond / maxTempoBPM))
	maxLag := int(math.Ceil(60 * framesPerSecond / minTempoBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}
	if minLag > maxLag {
		return 0
	}

	bestLag, best := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		r := floats.Dot(env[:len(env)-lag], env[lag:])
		if r > best {
			best, bestLag = r, lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60 * framesPerSecond / float64(bestLag)
}

func pitchStats(c domain.PitchContour) PitchStats {
	voiced := make([]float64, 0, len(c.Frequencies))
	for _, f := range c.Frequencies {
		if f > 0 {
			voiced = append(voiced, f)
		}
	}
	if len(voiced) == 0 {
		return PitchStats{}
	}
	sort.Float64s(voiced)
	med := voiced[len(voiced)/2]
	if len(voiced)%2 == 0 {
		med = (voiced[len(voiced)/2-1] + med) / 2
	}
	midi := HzToMIDI(med)
	return PitchStats{
		HzMedian:   med,
		HzMean:     stat.Mean(voiced, nil),
		HzMin:      voiced[0],
		HzMax:      voiced[len(voiced)-1],
		MIDIMedian: midi,
		Note:       MIDIToNoteName(int(math.Round(midi))),
	}
}
