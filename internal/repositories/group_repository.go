package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-relay/internal/models"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrMemberNotFound = errors.New("group member not found")
)

// GroupRepository manages group membership. Group messages are not routed
// by this service; the entity only backs the admin REST surface.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group models.Group) error
	GetGroup(ctx context.Context, groupID string) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	AddMember(ctx context.Context, groupID, userID string, isAdmin bool) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup inserts the group and its creator as an admin member in one
// transaction, so a group never exists without its owner inside it.
func (r *GroupRepo) CreateGroup(ctx context.Context, group models.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO groups (id, name, description, image, owner_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		group.ID, group.Name, group.Description, group.Image, group.OwnerID, group.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, is_admin) VALUES ($1, $2, TRUE)`,
		group.ID, group.OwnerID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGroup fetches a group by id.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, description, image, owner_id, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// ListGroupsForUser returns the groups the user belongs to.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.description, g.image, g.owner_id, g.created_at
        FROM groups g
        JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1
        ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// ListMembers returns the group's membership rows.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.SelectContext(ctx, &members, `SELECT group_id, user_id, is_admin, joined_at
        FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC`, groupID)
	return members, err
}

// AddMember adds or updates a membership. Promoting to admin is an upsert
// on the same row, keeping admin a subset of members by construction.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID string, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, is_admin) VALUES ($1, $2, $3)
        ON CONFLICT (group_id, user_id) DO UPDATE SET is_admin = EXCLUDED.is_admin`, groupID, userID, isAdmin)
	return err
}

// RemoveMember deletes the membership row, which also revokes admin.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemberNotFound
	}
	return nil
}
