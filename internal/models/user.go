package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceStatus describes a user's availability.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// User represents an account in the chat system. PasswordHash is opaque to
// everything except the credential verifier and never leaves the server.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Email        string         `db:"email" json:"email,omitempty"`
	DisplayName  string         `db:"display_name" json:"display_name"`
	Status       PresenceStatus `db:"status" json:"status"`
	LastSeen     time.Time      `db:"last_seen" json:"last_seen"`
}

// NewUser creates an offline user with a fresh id.
func NewUser(username, passwordHash, email string) User {
	return User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		DisplayName:  username,
		Status:       StatusOffline,
		LastSeen:     time.Now().UTC(),
	}
}
