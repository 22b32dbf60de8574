package domain

// Task is a coding exercise offered to the candidate.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	StarterCode string `json:"starter_code"`
}
