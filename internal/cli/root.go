/*
Package cli implements the vocalis command tree.

Every command resolves the configuration once through --config (or
$VOCALIS_CONFIG) and the environment, then builds only the components it
needs.
*/
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/vocalis/internal/config"
)

// NewRootCmd builds the top-level command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "vocalis",
		Short: "Voice-to-tone synthesizer, mood companion and model runner",
		Long: `Vocalis turns a recorded voice into a melodic tone that follows its pitch,
suggests a task and music for a mood and activity, and serves trained
model artifacts behind named-field schemas.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			opts := &slog.HandlerOptions{Level: level}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		},
	}

	root.PersistentFlags().String("config", "", "Path to a YAML config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewSynthCmd())
	root.AddCommand(NewAnalyzeCmd())
	root.AddCommand(NewRecommendCmd())
	root.AddCommand(NewPredictCmd())
	root.AddCommand(NewModelsCmd())
	root.AddCommand(NewAssociationsCmd())
	root.AddCommand(NewHistoryCmd())

	return root
}

// loadConfig resolves the config named by the inherited --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		slog.Debug("config loaded", "path", cfg.Path)
	}
	return cfg, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
