package domain

// Prediction is the result of running one loaded model on one row.
type Prediction struct {
	Model string    `json:"model"`
	Kind  string    `json:"kind"`
	Value float64   `json:"value"`
	Label string    `json:"label,omitempty"`
	Row   []float64 `json:"row"`
}
