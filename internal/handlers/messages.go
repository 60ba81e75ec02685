package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/repositories"
	"github.com/angga0x/ownchat/internal/telemetry"
	"github.com/angga0x/ownchat/internal/ws"
)

const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// MessageHandler manages the message REST surface.
type MessageHandler struct {
	messages  repositories.MessageRepository
	users     repositories.UserRepository
	router    *ws.Router
	status    *ws.Status
	audit     *telemetry.AuditEmitter
	uploadDir string
}

// NewMessageHandler builds a MessageHandler. The audit emitter may be nil.
func NewMessageHandler(messages repositories.MessageRepository, users repositories.UserRepository, router *ws.Router, status *ws.Status, audit *telemetry.AuditEmitter, uploadDir string) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		users:     users,
		router:    router,
		status:    status,
		audit:     audit,
		uploadDir: uploadDir,
	}
}

// GetConversation returns the conversation with a partner, hidden-for-me
// messages filtered out and tombstones kept.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	partnerID, err := strconv.Atoi(c.Param("partner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}
	userID := c.GetInt("userID")

	partner, err := h.users.GetUser(c.Request.Context(), partnerID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "partner not found"})
		return
	}

	msgs, err := h.messages.GetMessagesBetween(c.Request.Context(), userID, partnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	me, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	names := map[int]string{userID: me.Username, partnerID: partner.Username}

	resp := make([]models.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		if m.HiddenFor(userID) {
			continue
		}
		resp = append(resp, models.MessagePayload{Message: m, SenderUsername: names[m.SenderID]})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp, "partner_online": partner.Online})
}

// PostImage accepts a multipart image upload, stores it and routes it like
// a text send. Oversized or non-image uploads are rejected.
func (h *MessageHandler) PostImage(c *gin.Context) {
	userID := c.GetInt("userID")

	receiverID, err := strconv.Atoi(c.PostForm("receiver_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image"})
		return
	}
	if file.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image too large"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	imagePath := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, imagePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store image"})
		return
	}

	msg, err := h.router.Send(c.Request.Context(), userID, receiverID, nil, &imagePath, c.PostForm("client_tag"))
	if err != nil {
		writeRouteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// DeleteForMe hides a message for the caller only.
func (h *MessageHandler) DeleteForMe(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	userID := c.GetInt("userID")

	if _, err := h.status.DeleteForMe(c.Request.Context(), messageID, userID); err != nil {
		writeRouteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteForAll tombstones a message for both parties. Sender only.
func (h *MessageHandler) DeleteForAll(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	userID := c.GetInt("userID")

	if _, err := h.status.DeleteForAll(c.Request.Context(), messageID, userID); err != nil {
		writeRouteError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), "message_delete_for_all", "info", "message retracted",
		&userID, observability.RequestIDFromRequest(c.Request))
	c.Status(http.StatusNoContent)
}

func writeRouteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ws.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ws.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can do that"})
	case errors.Is(err, repositories.ErrMessageNotFound), errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
	}
}
