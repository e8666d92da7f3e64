package domain

import "time"

// User is an account identified by its email address. Emails are compared
// case-sensitively and never rewritten.
type User struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Post is a short text entry owned by a single user. The ID is assigned by
// the store on creation.
type Post struct {
	ID        uint      `json:"id"`
	OwnerID   uint      `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"-"`
}
