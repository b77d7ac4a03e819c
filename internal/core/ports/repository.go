package ports

import (
	"context"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// HistoryRepository stores recommendation history. Rows are only ever
// appended.
type HistoryRepository interface {
	Append(ctx context.Context, e domain.HistoryEntry) error
	// List returns up to limit entries, newest first. A limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}
