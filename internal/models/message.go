package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes message payloads.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeFile     MessageType = "file"
	TypeAudio    MessageType = "audio"
	TypeVideo    MessageType = "video"
	TypeLocation MessageType = "location"
	TypeSystem   MessageType = "system"
)

// MessageStatus tracks delivery state. The happy path is sent -> delivered;
// read is only ever set by clients, failed by a delivery error.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// Message represents one routed chat message. ID and CreatedAt are assigned
// at construction and immutable afterwards; Status is the only mutable field.
type Message struct {
	ID          string        `db:"id" json:"id"`
	SenderID    string        `db:"sender_id" json:"sender_id"`
	RecipientID string        `db:"recipient_id" json:"recipient_id"`
	Type        MessageType   `db:"type" json:"type"`
	Content     string        `db:"content" json:"content"`
	Media       []byte        `db:"media" json:"media,omitempty"`
	MediaType   string        `db:"media_type" json:"media_type,omitempty"`
	Status      MessageStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// NewMessage builds a message with a pre-assigned id and status sent.
func NewMessage(senderID, recipientID string, msgType MessageType, content string) Message {
	return Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        msgType,
		Content:     content,
		Status:      StatusSent,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewMediaMessage builds a message carrying a binary payload.
func NewMediaMessage(senderID, recipientID string, msgType MessageType, content string, media []byte, mediaType string) Message {
	msg := NewMessage(senderID, recipientID, msgType, content)
	msg.Media = media
	msg.MediaType = mediaType
	return msg
}
