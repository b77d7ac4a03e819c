package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/vocalis/internal/audio"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

// NewSynthCmd creates the 'synth' command that renders a tone offline.
func NewSynthCmd() *cobra.Command {
	var (
		output string
		wave   string
		interp string
		volume float64
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "synth <input>",
		Short: "Render a tone that follows the pitch of a recording",
		Long: `Track the pitch of a WAV or MP3 recording and write a 16-bit mono WAV of
a synthetic tone with the same length. Unvoiced stretches are silent.`,
		Example: `  vocalis synth voice.wav
  vocalis synth hum.mp3 -o hum_tone.wav --wave harmonic --volume 0.8
  vocalis synth voice.wav --interp repeat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			voice, err := newVoice(cfg, slog.Default())
			if err != nil {
				return err
			}

			opts := voice.Defaults()
			if cmd.Flags().Changed("wave") {
				if opts.Shape, err = dsp.ParseWaveShape(wave); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("interp") {
				if opts.Interpolation, err = dsp.ParseInterpolation(interp); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("volume") {
				opts.Volume = volume
			}
			opts.Strict = strict

			in := args[0]
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			out, err := voice.Synthesize(cmd.Context(), f, filepath.Base(in), opts)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(in, filepath.Ext(in)) + "_tone.wav"
			}
			dst, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := audio.EncodeWAV(dst, out); err != nil {
				dst.Close()
				return err
			}
			if err := dst.Close(); err != nil {
				return err
			}

			printf(cmd, "✓ Wrote %s (%d samples, %d Hz, %s)\n", output, len(out.Samples), out.SampleRate, out.Duration())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output WAV path (default <input>_tone.wav)")
	cmd.Flags().StringVar(&wave, "wave", string(dsp.ShapeSine), "Wave shape: sine, harmonic, square, triangle")
	cmd.Flags().StringVar(&interp, "interp", string(dsp.InterpLinear), "Contour upsampling: linear or repeat")
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Output peak in (0, 1]")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when no pitch is detected instead of writing silence")

	return cmd
}

// NewAnalyzeCmd creates the 'analyze' command that describes a recording.
func NewAnalyzeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <input>",
		Short: "Describe the energy, tempo, pitch and sound class of a recording",
		Example: `  vocalis analyze knock.wav
  vocalis analyze song.mp3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			voice, err := newVoice(cfg, slog.Default())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := voice.Analyze(cmd.Context(), f, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, a)
			}

			printf(cmd, "File:        %s\n", args[0])
			printf(cmd, "Duration:    %.2fs at %d Hz\n", a.DurationSeconds, a.SampleRate)
			printf(cmd, "Energy:      %.4f RMS\n", a.RMSEnergy)
			printf(cmd, "ZCR:         %.4f\n", a.ZeroCrossingRate)
			printf(cmd, "Centroid:    %.1f Hz\n", a.SpectralCentroid)
			printf(cmd, "Tempo:       %.1f BPM\n", a.TempoBPM)
			printf(cmd, "Sound class: %s\n", a.SoundClass)
			printf(cmd, "Mood:        %s\n", a.Mood)
			if a.Pitch.Note != "" {
				printf(cmd, "Pitch:       %s (median %.1f Hz, %.0f%% voiced)\n", a.Pitch.Note, a.Pitch.HzMedian, a.VoicedRatio*100)
			} else {
				printf(cmd, "Pitch:       %s\n", "none detected")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
