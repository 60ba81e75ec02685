package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/repositories"
)

// UserHandler exposes the contact list and per-chat settings.
type UserHandler struct {
	users repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers returns every account with its presence flag.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ChatSetting mutates the caller's pinned/archived sets for one partner.
// The action is the last route segment: pin, unpin, archive or unarchive.
func (h *UserHandler) ChatSetting(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		partnerID, err := strconv.Atoi(c.Param("partner_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
			return
		}
		userID := c.GetInt("userID")

		var user models.User
		switch action {
		case "pin":
			user, err = h.users.PinChat(c.Request.Context(), userID, partnerID)
		case "unpin":
			user, err = h.users.UnpinChat(c.Request.Context(), userID, partnerID)
		case "archive":
			user, err = h.users.ArchiveChat(c.Request.Context(), userID, partnerID)
		case "unarchive":
			user, err = h.users.UnarchiveChat(c.Request.Context(), userID, partnerID)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
			return
		}
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrUserNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "could not update chat settings"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
