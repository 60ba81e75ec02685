package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/angga0x/ownchat/internal/auth"
	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/repositories"
	"github.com/angga0x/ownchat/internal/telemetry"
)

// AuthHandler manages registration and login.
type AuthHandler struct {
	users    repositories.UserRepository
	sessions *auth.Manager
	audit    *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler. The audit emitter may be nil.
func NewAuthHandler(users repositories.UserRepository, sessions *auth.Manager, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, audit: audit}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.audit.Record(c.Request.Context(), "user_register", "info", "account created",
		&user.ID, observability.RequestIDFromRequest(c.Request))
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.audit.Record(c.Request.Context(), "login_failed", "warn", "bad password",
			&user.ID, observability.RequestIDFromRequest(c.Request))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.audit.Record(c.Request.Context(), "user_login", "info", "session issued",
		&user.ID, observability.RequestIDFromRequest(c.Request))
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}
