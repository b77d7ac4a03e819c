package ports

import (
	"context"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Predictor runs a named model on named inputs.
type Predictor interface {
	Predict(ctx context.Context, model string, inputs map[string]any) (domain.Prediction, error)
}
