package ports

import (
	"context"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

type MoodClassifier interface {
	ClassifyMood(ctx context.Context, text string, moods []string) (domain.MoodResult, error)
}
