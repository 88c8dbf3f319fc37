package model

// Task is the domain model for a task list entry.
// The JSON field names are the persisted layout; keep them stable.
type Task struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Category  string `json:"category"`
}
