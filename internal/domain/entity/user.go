package entity

import (
	"time"
)

// User is the aggregate root for the feedback domain. Messages live inside
// the user record; a message has no identity outside its owner.
//
// PasswordHash is a bcrypt hash and must never be serialized to clients.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	IsVerified          bool
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsAcceptingMessages bool
	Messages            []Message
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Message is an anonymous note sent to a user. Immutable after creation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Projection is the reduced view of a User that is safe to embed in a
// session token. No password material, no verification secrets.
type Projection struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

// Project returns the session-safe view of u.
func (u *User) Project() Projection {
	return Projection{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		IsVerified:          u.IsVerified,
		IsAcceptingMessages: u.IsAcceptingMessages,
	}
}
