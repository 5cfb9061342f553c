package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/mocks"
	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
)

func setupMessageRouter(messageRepo repositories.MessageRepository, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewMessageHandler(messageRepo)

	engine := gin.New()
	engine.Use(authAs(userID))
	engine.GET("/messages/:peer_id", handler.History)
	engine.PUT("/messages/:message_id/read", handler.MarkRead)
	return engine
}

func TestHistoryReturnsConversation(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("MessagesBetween", mock.Anything, "user-alice", "user-bob").Return([]models.Message{
		{ID: "m1", SenderID: "user-alice", RecipientID: "user-bob", Content: "hi"},
		{ID: "m2", SenderID: "user-bob", RecipientID: "user-alice", Content: "hey"},
	}, nil).Once()

	engine := setupMessageRouter(messageRepo, "user-alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/messages/user-bob", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"m1"`)
	assert.Contains(t, w.Body.String(), `"m2"`)
	messageRepo.AssertExpectations(t)
}

func TestHistoryStoreError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("MessagesBetween", mock.Anything, "user-alice", "user-bob").
		Return(([]models.Message)(nil), assert.AnError).Once()

	engine := setupMessageRouter(messageRepo, "user-alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/messages/user-bob", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMarkRead(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("UpdateMessageStatus", mock.Anything, "m1", models.StatusRead).Return(nil).Once()

	engine := setupMessageRouter(messageRepo, "user-alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/messages/m1/read", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("UpdateMessageStatus", mock.Anything, "ghost", models.StatusRead).
		Return(repositories.ErrMessageNotFound).Once()

	engine := setupMessageRouter(messageRepo, "user-alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/messages/ghost/read", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
