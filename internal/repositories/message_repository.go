package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-relay/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository is the durable side of the routing path.
type MessageRepository interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	UpdateMessageStatus(ctx context.Context, messageID string, status models.MessageStatus) error
	OfflineMessagesFor(ctx context.Context, userID string) ([]models.Message, error)
	MessagesBetween(ctx context.Context, userID, peerID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// SaveMessage appends a message with its current status. Message ids are
// assigned by senders, so this is a plain insert, never an upsert.
func (r *MessageRepo) SaveMessage(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, sender_id, recipient_id, type, content, media, media_type, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Type, msg.Content, msg.Media, msg.MediaType, msg.Status, msg.CreatedAt)
	return err
}

// UpdateMessageStatus sets the delivery status of a stored message.
func (r *MessageRepo) UpdateMessageStatus(ctx context.Context, messageID string, status models.MessageStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$1 WHERE id=$2`, status, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// OfflineMessagesFor returns the user's undelivered messages in ascending
// creation order, ready for replay.
func (r *MessageRepo) OfflineMessagesFor(ctx context.Context, userID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, recipient_id, type, content, media, media_type, status, created_at
        FROM messages
        WHERE recipient_id=$1 AND status=$2
        ORDER BY created_at ASC`, userID, models.StatusSent)
	return msgs, err
}

// MessagesBetween returns the full conversation history between two users.
func (r *MessageRepo) MessagesBetween(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, recipient_id, type, content, media, media_type, status, created_at
        FROM messages
        WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1)
        ORDER BY created_at ASC`, userID, peerID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, sender_id, recipient_id, type, content, media, media_type, status, created_at
        FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
