package domain

// MoodResult is a mood picked for a piece of free text.
type MoodResult struct {
	Mood        string `json:"mood"`
	Explanation string `json:"explanation,omitempty"`
}
