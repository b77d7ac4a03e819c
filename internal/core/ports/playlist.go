package ports

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoConfidentMatch indicates search results did not meet the confidence threshold.
var ErrNoConfidentMatch = errors.New("no confident match")

// NoConfidentMatchError provides context for a failed playlist match.
type NoConfidentMatchError struct {
	Genre string
	Best  string
	Score float64
}

func (e NoConfidentMatchError) Error() string {
	if e.Genre == "" {
		return ErrNoConfidentMatch.Error()
	}
	if e.Best == "" {
		return fmt.Sprintf("no confident match found for genre %q", e.Genre)
	}
	return fmt.Sprintf("no confident match found for genre %q (best %q scored %.2f)", e.Genre, e.Best, e.Score)
}

func (e NoConfidentMatchError) Is(target error) bool {
	return target == ErrNoConfidentMatch
}

// PlaylistFinder resolves a music genre label to a playable link.
type PlaylistFinder interface {
	FindPlaylist(ctx context.Context, genre string) (string, error)
}
