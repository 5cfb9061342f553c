package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/auth"
	"chat-relay/internal/models"
	"chat-relay/internal/registry"
	"chat-relay/internal/repositories"
	"chat-relay/internal/telemetry"
)

// UserHandler manages account registration and presence lookups.
type UserHandler struct {
	userRepo repositories.UserRepository
	registry *registry.Registry
	audit    *telemetry.AuditEmitter
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, reg *registry.Registry, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{userRepo: userRepo, registry: reg, audit: audit}
}

// Register handles POST /users.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required,min=8"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	user := models.NewUser(req.Username, hash, req.Email)
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}

	if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		h.emitAudit(c, "ERROR", "user registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	h.emitAudit(c, "INFO", "user registered")
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "username": user.Username})
}

// Presence handles GET /users/:user_id/presence. A live registry entry
// overrides whatever presence the store last saw.
func (h *UserHandler) Presence(c *gin.Context) {
	userID := c.Param("user_id")

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	status := user.Status
	if h.registry.Online(userID) {
		status = models.StatusOnline
	} else if status == models.StatusOnline {
		// The store can lag behind a crashed connection.
		status = models.StatusOffline
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   user.ID,
		"username":  user.Username,
		"status":    status,
		"last_seen": user.LastSeen,
	})
}

func (h *UserHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
