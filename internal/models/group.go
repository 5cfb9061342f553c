package models

import (
	"time"

	"github.com/google/uuid"
)

// Group represents a chat group. Group messages are not routed by the
// message router; the entity exists for membership management only.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Image       []byte    `db:"image" json:"image,omitempty"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GroupMember binds a user to a group. Admins are always members; deleting
// the membership row drops the admin bit with it.
type GroupMember struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	IsAdmin  bool      `db:"is_admin" json:"is_admin"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// NewGroup creates a group owned by creatorID. The caller is responsible
// for inserting the creator as an admin member alongside the group row.
func NewGroup(name, description, creatorID string) Group {
	return Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     creatorID,
		CreatedAt:   time.Now().UTC(),
	}
}
