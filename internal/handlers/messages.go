package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
)

// MessageHandler exposes conversation history and client-driven status
// updates over REST.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo}
}

// History handles GET /messages/:peer_id for the authenticated user.
func (h *MessageHandler) History(c *gin.Context) {
	userID := c.GetString("userID")
	peerID := c.Param("peer_id")

	msgs, err := h.messageRepo.MessagesBetween(c.Request.Context(), userID, peerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead handles PUT /messages/:message_id/read. The read transition is
// always client-originated; the routing core never produces it.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID := c.Param("message_id")

	if err := h.messageRepo.UpdateMessageStatus(c.Request.Context(), messageID, models.StatusRead); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update message"})
		return
	}

	c.Status(http.StatusNoContent)
}
