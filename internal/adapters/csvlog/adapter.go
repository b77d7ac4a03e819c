// Package csvlog stores recommendation history as an append-only CSV file.
package csvlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Header is the first line of every log file.
var Header = []string{"Mood", "Activity", "Goal", "Time", "Recommended Task", "Music", "Status"}

// Adapter appends history rows to a CSV file. Writers in this process are
// serialized; the file is opened per call.
type Adapter struct {
	mu   sync.Mutex
	path string
}

func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// Append writes one row, creating the file with its header first if needed.
func (a *Adapter) Append(ctx context.Context, e domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("csvlog: open %s: %w", a.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csvlog: stat %s: %w", a.path, err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("csvlog: write header: %w", err)
		}
	}
	if err := w.Write([]string{e.Mood, e.Activity, e.Goal, strconv.Itoa(e.Hour), e.Task, e.Music, e.Status}); err != nil {
		return fmt.Errorf("csvlog: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvlog: flush: %w", err)
	}
	return nil
}

// List reads the log newest first. The file carries no ids, so each row is
// identified by its 1-based position below the header.
func (a *Adapter) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvlog: open %s: %w", a.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	var rows []domain.HistoryEntry
	for line := 0; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvlog: read %s: %w", a.path, err)
		}
		if line == 0 {
			continue
		}
		hour, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("csvlog: row %d: bad time %q", line, rec[3])
		}
		rows = append(rows, domain.HistoryEntry{
			ID:       strconv.Itoa(line),
			Mood:     rec[0],
			Activity: rec[1],
			Goal:     rec[2],
			Hour:     hour,
			Task:     rec[4],
			Music:    rec[5],
			Status:   rec[6],
		})
	}

	out := make([]domain.HistoryEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rows[i])
	}
	return out, nil
}
