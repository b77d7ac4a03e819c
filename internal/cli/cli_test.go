package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/vocalis/internal/audio"
	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

const penguinYAML = `
name: penguins
kind: decision_tree
schema:
  fields:
    - {name: island, kind: categorical, categories: [Biscoe, Dream, Torgersen]}
    - {name: flipper_length_mm, kind: numeric, min: 150, max: 250}
output:
  name: species
  encoder:
    classes: [Adelie, Chinstrap, Gentoo]
params:
  nodes:
    - {feature: 1, threshold: 206.5, left: 1, right: 4}
    - {feature: 0, threshold: 0.5, left: 2, right: 3}
    - {left: -1, right: -1, value: 0}
    - {left: -1, right: -1, value: 1}
    - {left: -1, right: -1, value: 2}
`

type fixture struct {
	dir    string
	config string
}

// newFixture writes a config using the given storage section and a models
// directory holding the penguins artifact.
func newFixture(t *testing.T, storage string) fixture {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(models, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(models, "penguins.model.yaml"), []byte(penguinYAML), 0o644))

	cfg := "models:\n  dir: " + models + "\n" + storage
	path := filepath.Join(dir, "vocalis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return fixture{dir: dir, config: path}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTone(t *testing.T, path string, hz float64, n int) {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*hz*float64(i)/22050)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, audio.EncodeWAV(f, domain.Waveform{Samples: samples, SampleRate: 22050}))
	require.NoError(t, f.Close())
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd("1.2.3")

	assert.Equal(t, "vocalis", root.Use)
	assert.Equal(t, "1.2.3", root.Version)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))

	want := []string{"serve", "synth", "analyze", "recommend", "predict", "models", "associations", "history"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotEmpty(t, cmd.Short, name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
	}{
		{"synth", []string{"output", "wave", "interp", "volume", "strict"}},
		{"analyze", []string{"json"}},
		{"recommend", []string{"mood", "activity", "goal", "hour", "table", "json"}},
		{"predict", []string{"set", "json"}},
		{"associations", []string{"file", "min-confidence", "min-lift", "json"}},
		{"history", []string{"limit", "json"}},
		{"serve", []string{"addr"}},
	}
	root := NewRootCmd("test")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tc.name})
			require.NoError(t, err)
			for _, f := range tc.flags {
				assert.NotNil(t, cmd.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}
}

func TestSynthCommand(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")
	in := filepath.Join(fx.dir, "voice.wav")
	writeTone(t, in, 220, 11025)

	out, err := run(t, "--config", fx.config, "synth", in, "--wave", "square", "--volume", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "voice_tone.wav")

	f, err := os.Open(filepath.Join(fx.dir, "voice_tone.wav"))
	require.NoError(t, err)
	defer f.Close()
	w, err := audio.Decode(f, audio.FormatWAV)
	require.NoError(t, err)
	assert.Len(t, w.Samples, 11025)

	peak := 0.0
	for _, s := range w.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestSynthCommand_Errors(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")
	in := filepath.Join(fx.dir, "voice.wav")
	writeTone(t, in, 220, 4096)

	_, err := run(t, "--config", fx.config, "synth", in, "--wave", "sawtooth")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = run(t, "--config", fx.config, "synth", filepath.Join(fx.dir, "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "--config", fx.config, "synth")
	assert.Error(t, err, "input argument is required")
}

func TestAnalyzeCommand(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")
	in := filepath.Join(fx.dir, "tone.wav")
	writeTone(t, in, 220, 22050)

	out, err := run(t, "--config", fx.config, "analyze", in, "--json")
	require.NoError(t, err)

	var a dsp.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "A3", a.Pitch.Note)
	assert.InDelta(t, 1.0, a.DurationSeconds, 0.01)

	out, err = run(t, "--config", fx.config, "analyze", in)
	require.NoError(t, err)
	assert.Contains(t, out, "Sound class:")
	assert.Contains(t, out, "A3")
}

func TestRecommendAndHistory(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: csv\n  path: "+filepath.Join(t.TempDir(), "history.csv")+"\n")

	out, err := run(t, "--config", fx.config, "recommend", "--mood", "Sad", "--activity", "Relaxing", "--hour", "21")
	require.NoError(t, err)
	assert.Contains(t, out, "Music: Calm Acoustic / Ambient")
	assert.Contains(t, out, "evening")

	out, err = run(t, "--config", fx.config, "recommend", "--mood", "Energetic", "--activity", "Workout", "--hour", "7", "--json")
	require.NoError(t, err)
	var rec domain.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "High BPM EDM / Hip-Hop", rec.Music)
	assert.True(t, rec.Matched)

	out, err = run(t, "--config", fx.config, "history", "--json")
	require.NoError(t, err)
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Energetic", entries[0].Mood, "newest first")

	_, err = run(t, "--config", fx.config, "recommend", "--mood", "Sad", "--activity", "Relaxing", "--hour", "24")
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = run(t, "--config", fx.config, "recommend", "--activity", "Relaxing")
	assert.Error(t, err, "mood is required")
}

func TestHistoryEmpty(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")
	out, err := run(t, "--config", fx.config, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No recommendations yet.")
}

func TestPredictAndModels(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")

	out, err := run(t, "--config", fx.config, "predict", "penguins", "--set", "flipper_length_mm=190", "--set", "island=Dream")
	require.NoError(t, err)
	assert.Equal(t, "penguins: Chinstrap\n", out)

	out, err = run(t, "--config", fx.config, "predict", "penguins", "-s", "island=Biscoe", "-s", "flipper_length_mm=220", "--json")
	require.NoError(t, err)
	var p domain.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Gentoo", p.Label)

	_, err = run(t, "--config", fx.config, "predict", "penguins", "--set", "island=Atlantis", "--set", "flipper_length_mm=190")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = run(t, "--config", fx.config, "predict", "whales", "--set", "x=1")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	out, err = run(t, "--config", fx.config, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "penguins [decision_tree]")
	assert.Contains(t, out, "island (one of Biscoe, Dream, Torgersen)")
	assert.Contains(t, out, "flipper_length_mm (150 to 250)")
	assert.Contains(t, out, "species: Adelie, Chinstrap, Gentoo")
}

func TestAssociationsCommand(t *testing.T) {
	fx := newFixture(t, "storage:\n  driver: memory\n")
	rules := `
name: basket
rules:
  - {antecedents: [bread], consequents: [butter], support: 0.04, confidence: 0.42, lift: 1.6}
  - {antecedents: [pasta], consequents: [sauce], support: 0.03, confidence: 0.58, lift: 3.1}
  - {antecedents: [coffee], consequents: [sugar], support: 0.03, confidence: 0.33, lift: 1.2}
`
	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "models", "market-basket.rules.yaml"), []byte(rules), 0o644))

	out, err := run(t, "--config", fx.config, "associations")
	require.NoError(t, err)
	assert.Contains(t, out, "basket: 2 of 3 rules")
	assert.Less(t, strings.Index(out, "{pasta} → {sauce}"), strings.Index(out, "{bread} → {butter}"))
	assert.NotContains(t, out, "coffee")

	out, err = run(t, "--config", fx.config, "associations", "--min-lift", "2", "--json")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, []any{"pasta"}, got[0]["antecedents"])

	_, err = run(t, "--config", fx.config, "associations", "--min-confidence", "1.5")
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = run(t, "associations", "--file", filepath.Join(fx.dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestModelsCommand_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocalis.yaml")
	cfg := "models:\n  dir: " + filepath.Join(dir, "nope") + "\nstorage:\n  driver: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	_, err := run(t, "--config", path, "models")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"age=50", " bmi = 31.5 ", "note="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": "50", "bmi": "31.5", "note": ""}, got)

	for _, bad := range [][]string{{"age"}, {"=5"}, {"a=1", "a=2"}} {
		_, err := parseSets(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, strings.Join(bad, ","))
	}
}
