package domain

import (
	"fmt"
	"time"
)

// RecommendRequest carries the form inputs for a single recommendation.
type RecommendRequest struct {
	Mood     string `json:"mood"`
	Activity string `json:"activity"`
	Goal     string `json:"goal"`
	Hour     int    `json:"hour"`
	Table    string `json:"table,omitempty"`
}

// Validate checks the required fields and the hour range.
func (r RecommendRequest) Validate() error {
	if r.Mood == "" {
		return &FieldError{Field: "mood", Reason: "is required", Kind: ErrInvalidInput}
	}
	if r.Activity == "" {
		return &FieldError{Field: "activity", Reason: "is required", Kind: ErrInvalidInput}
	}
	if r.Hour < 0 || r.Hour > 23 {
		return &FieldError{Field: "hour", Reason: fmt.Sprintf("%d not in [0, 23]", r.Hour), Kind: ErrOutOfRange}
	}
	return nil
}

// Recommendation is the answer returned to the caller.
type Recommendation struct {
	Task        string `json:"task"`
	Music       string `json:"music"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	TimeBucket  string `json:"time_bucket"`
	Source      string `json:"source"`
	Matched     bool   `json:"matched"`
	HistoryID   string `json:"history_id,omitempty"`
}

// Recommendation sources.
const (
	SourceRuleTable = "rule_table"
	SourceModel     = "model"
)

// Time-of-day buckets.
const (
	BucketNight     = "night"
	BucketMorning   = "morning"
	BucketAfternoon = "afternoon"
	BucketEvening   = "evening"
)

// TimeBucket maps an hour of the day to a coarse bucket.
func TimeBucket(hour int) (string, error) {
	switch {
	case hour < 0 || hour > 23:
		return "", &FieldError{Field: "hour", Reason: fmt.Sprintf("%d not in [0, 23]", hour), Kind: ErrOutOfRange}
	case hour < 5:
		return BucketNight, nil
	case hour < 12:
		return BucketMorning, nil
	case hour < 17:
		return BucketAfternoon, nil
	case hour < 22:
		return BucketEvening, nil
	default:
		return BucketNight, nil
	}
}

// HistoryEntry is one row of the append-only recommendation log.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Mood      string    `json:"mood"`
	Activity  string    `json:"activity"`
	Goal      string    `json:"goal"`
	Hour      int       `json:"hour"`
	Task      string    `json:"task"`
	Music     string    `json:"music"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusRecommended is the status written for every served recommendation.
const StatusRecommended = "Recommended"
