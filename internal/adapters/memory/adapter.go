// Package memory keeps recommendation history in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

type Adapter struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Append(ctx context.Context, e domain.HistoryEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

// List returns up to limit entries, newest first.
func (a *Adapter) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.HistoryEntry, 0, len(a.entries))
	for i := len(a.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, a.entries[i])
	}
	return out, nil
}
