package models

import "time"

// Task is a content item owned by exactly one user. Only the owner reference
// is stored; a user's task list is derived from it.
type Task struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}
