// Package models defines the records persisted by the server.
package models

import "time"

// User is an account. Email is unique and always set; Username and
// PasswordHash are empty for records created by an email-only lookup.
// Tasks is filled on read from the tasks owned by the user.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Tasks        []string  `json:"tasks"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
