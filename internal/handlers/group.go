package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
	"chat-relay/internal/telemetry"
)

// GroupHandler manages group membership endpoints. Group messages are not
// routed by this service; these endpoints only maintain the entity.
type GroupHandler struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	audit     *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo, userRepo: userRepo, audit: audit}
}

// CreateGroup handles POST /groups. The creator becomes a member and an
// admin in the same transaction as the group row.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := models.NewGroup(req.Name, req.Description, userID)
	if err := h.groupRepo.CreateGroup(c.Request.Context(), group); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetString("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns the group and its members.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID := c.Param("group_id")

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}

	members, err := h.groupRepo.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group, "members": members})
}

// AddMember handles POST /groups/:group_id/members. Only admins may add.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID := c.Param("group_id")
	callerID := c.GetString("userID")

	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.callerIsAdmin(c, groupID, callerID)
	if err != nil {
		return
	}
	if !admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admins can manage members"})
		return
	}

	if _, err := h.userRepo.GetByID(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate user"})
		return
	}

	if err := h.groupRepo.AddMember(c.Request.Context(), groupID, req.UserID, req.IsAdmin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		return
	}

	h.emitAudit(c, "INFO", "group member added")
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /groups/:group_id/members/:user_id. Removing
// a member also revokes any admin bit they held. Members may remove
// themselves; removing anyone else requires admin.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID := c.Param("group_id")
	targetID := c.Param("user_id")
	callerID := c.GetString("userID")

	if targetID != callerID {
		admin, err := h.callerIsAdmin(c, groupID, callerID)
		if err != nil {
			return
		}
		if !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can manage members"})
			return
		}
	}

	if err := h.groupRepo.RemoveMember(c.Request.Context(), groupID, targetID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.emitAudit(c, "INFO", "group member removed")
	c.Status(http.StatusNoContent)
}

// callerIsAdmin loads the membership list and checks the caller's admin
// bit, writing the error response itself on lookup failure.
func (h *GroupHandler) callerIsAdmin(c *gin.Context, groupID, callerID string) (bool, error) {
	members, err := h.groupRepo.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return false, err
	}
	for _, m := range members {
		if m.UserID == callerID {
			return m.IsAdmin, nil
		}
	}
	return false, nil
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
