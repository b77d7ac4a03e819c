package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// NewRecommendCmd creates the 'recommend' command.
func NewRecommendCmd() *cobra.Command {
	var (
		req        domain.RecommendRequest
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest a task and music for a mood and activity",
		Long: `Look up the mood and activity in a rule table, fall back to the table
default when the pair is unknown, and record the suggestion in the history.`,
		Example: `  vocalis recommend --mood Sad --activity Relaxing
  vocalis recommend --mood Stressed --activity Coding --goal "ship the fix" --hour 23
  vocalis recommend --mood Calm --activity Reading --table study --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("hour") {
				req.Hour = time.Now().Hour()
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.Default()
			history, closeHistory, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			companion, err := newCompanion(cmd.Context(), cfg, history, optionalModels(cfg, logger), logger)
			if err != nil {
				return err
			}
			rec, err := companion.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, rec)
			}

			printf(cmd, "Task:  %s\n", rec.Task)
			printf(cmd, "Music: %s\n", rec.Music)
			if rec.PlaylistURL != "" {
				printf(cmd, "Link:  %s\n", rec.PlaylistURL)
			}
			note := "table match"
			if !rec.Matched {
				note = "default"
			}
			printf(cmd, "(%s, %s, %s)\n", rec.TimeBucket, strings.ReplaceAll(rec.Source, "_", " "), note)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Mood, "mood", "", "Current mood, e.g. Sad, Calm, Energetic, Stressed")
	cmd.Flags().StringVar(&req.Activity, "activity", "", "Current activity, e.g. Relaxing, Studying, Workout, Coding")
	cmd.Flags().StringVar(&req.Goal, "goal", "", "Free-text goal stored with the history row")
	cmd.Flags().IntVar(&req.Hour, "hour", 0, "Hour of day 0-23 (default now)")
	cmd.Flags().StringVar(&req.Table, "table", "", "Rule table name (default from config)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("mood")
	_ = cmd.MarkFlagRequired("activity")

	return cmd
}

// NewHistoryCmd creates the 'history' command.
func NewHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recommendations",
		Example: `  vocalis history
  vocalis history --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			history, closeHistory, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			entries, err := history.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if jsonOutput {
				if entries == nil {
					entries = []domain.HistoryEntry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				printf(cmd, "No recommendations yet.\n")
				return nil
			}
			for _, e := range entries {
				printf(cmd, "%s  %-10s %-10s → %s | %s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Mood, e.Activity, e.Task, e.Music)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
