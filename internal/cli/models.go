package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/inference"
)

// NewModelsCmd creates the 'models' command that lists loaded artifacts.
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List model artifacts and their input schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := loadModels(cfg, slog.Default())
			if err != nil {
				return err
			}

			models := reg.List()
			printf(cmd, "Models (%d) in %s:\n\n", len(models), cfg.Models.Dir)
			for _, m := range models {
				printf(cmd, "  %s [%s]\n", m.Name(), m.Kind())
				if d := m.Description(); d != "" {
					printf(cmd, "    %s\n", d)
				}
				for _, f := range m.Schema().Fields {
					printf(cmd, "    - %s\n", describeField(f))
				}
				if out := m.Output(); out.Encoder.Len() > 0 {
					printf(cmd, "    → %s: %s\n", out.Name, strings.Join(out.Encoder.Classes, ", "))
				} else if out.Name != "" {
					printf(cmd, "    → %s\n", out.Name)
				}
			}
			return nil
		},
	}

	return cmd
}

func describeField(f domain.FeatureField) string {
	if f.Kind == domain.KindCategorical {
		return fmt.Sprintf("%s (one of %s)", f.Name, strings.Join(f.Categories, ", "))
	}
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("%s (%g to %g)", f.Name, *f.Min, *f.Max)
	case f.Min != nil:
		return fmt.Sprintf("%s (>= %g)", f.Name, *f.Min)
	case f.Max != nil:
		return fmt.Sprintf("%s (<= %g)", f.Name, *f.Max)
	}
	return f.Name + " (number)"
}

// NewPredictCmd creates the 'predict' command.
func NewPredictCmd() *cobra.Command {
	var (
		sets       []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "predict <model>",
		Short: "Run a model on named inputs",
		Long: `Run a loaded model artifact. Inputs are given by field name, so their
order on the command line does not matter.`,
		Example: `  vocalis predict salary --set years_experience=5
  vocalis predict penguins --set island=Dream --set flipper_length_mm=190
  vocalis predict diabetes --set age=50 --set bmi=31 --set insulin=80 --set glucose=150 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseSets(sets)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := loadModels(cfg, slog.Default())
			if err != nil {
				return err
			}

			p, err := reg.Predict(cmd.Context(), args[0], inputs)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, p)
			}
			if p.Label != "" {
				printf(cmd, "%s: %s\n", p.Model, p.Label)
			} else {
				printf(cmd, "%s: %.4f\n", p.Model, p.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Input as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func parseSets(sets []string) (map[string]any, error) {
	inputs := make(map[string]any, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, &domain.FieldError{Field: "set", Reason: fmt.Sprintf("%q is not field=value", s), Kind: domain.ErrInvalidInput}
		}
		if _, dup := inputs[k]; dup {
			return nil, &domain.FieldError{Field: k, Reason: "given more than once", Kind: domain.ErrInvalidInput}
		}
		inputs[k] = strings.TrimSpace(v)
	}
	return inputs, nil
}

// NewAssociationsCmd creates the 'associations' command that filters a
// market basket rule set.
func NewAssociationsCmd() *cobra.Command {
	var (
		file          string
		minConfidence float64
		minLift       float64
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "associations",
		Short: "Show association rules above confidence and lift thresholds",
		Example: `  vocalis associations
  vocalis associations --min-confidence 0.5 --min-lift 2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minConfidence < 0 || minConfidence > 1 {
				return &domain.FieldError{Field: "min-confidence", Reason: "must be between 0 and 1", Kind: domain.ErrOutOfRange}
			}
			if minLift < 0 {
				return &domain.FieldError{Field: "min-lift", Reason: "must not be negative", Kind: domain.ErrOutOfRange}
			}
			if file == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				file = filepath.Join(cfg.Models.Dir, "market-basket.rules.yaml")
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("rule set: %w", err)
			}
			defer f.Close()
			rs, err := inference.DecodeRuleSet(f)
			if err != nil {
				return err
			}

			rules := rs.Filter(minConfidence, minLift)
			if jsonOutput {
				return writeJSON(cmd, rules)
			}
			printf(cmd, "%s: %d of %d rules\n", rs.Name, len(rules), len(rs.Rules))
			for _, r := range rules {
				printf(cmd, "  %s  support %.3f  confidence %.2f  lift %.2f\n", r, r.Support, r.Confidence, r.Lift)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Rule set file (default <models.dir>/market-basket.rules.yaml)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.4, "Minimum confidence")
	cmd.Flags().Float64Var(&minLift, "min-lift", 1.0, "Minimum lift")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
