package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/config"
	"github.com/terminal-bench/lendvault/internal/middleware"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
)

// AuthHandler handles registration, login and account management.
type AuthHandler struct {
	cfg   *config.Config
	users *repository.UserRepository
	txs   *repository.TransactionRepository
	items *repository.ItemRepository
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(cfg *config.Config, users *repository.UserRepository, txs *repository.TransactionRepository, items *repository.ItemRepository) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, txs: txs, items: items}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Location string `json:"location" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// Register creates an account and returns a bearer token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	exists, err := h.users.Exists(c.Request.Context(), req.Email, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	}

	user := &models.User{
		ID:        uuid.New(),
		Email:     req.Email,
		Username:  req.Username,
		Location:  req.Location,
		Phone:     req.Phone,
		Tokens:    models.StartingTokens,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.users.Create(c.Request.Context(), user, req.Password); err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.IssueToken(h.cfg, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user.Profile(),
	})
}

// LoginRequest is the login payload.
type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// Login validates credentials and returns a bearer token. Banned
// accounts cannot log in.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.users.GetByEmailOrUsername(c.Request.Context(), req.EmailOrUsername)
	if err != nil || !h.users.ValidatePassword(user, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is banned"})
		return
	}

	token, err := middleware.IssueToken(h.cfg, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user.Profile(),
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// UpdateProfileRequest is the profile update payload.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"required"`
	Location string `json:"location" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password"`
}

// UpdateProfile changes editable profile fields; password only when
// provided.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	taken, err := h.users.UsernameTaken(c.Request.Context(), req.Username, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
		return
	}

	if err := h.users.UpdateProfile(c.Request.Context(), userID, req.Username, req.Location, req.Phone, req.Password); err != nil {
		respondError(c, err)
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// DeleteAccount anonymizes the account. Items are removed, but
// transaction history is retained for the other parties. Accounts with
// active transactions cannot be deleted.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	active, err := h.txs.HasActiveForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete account with active transactions"})
		return
	}

	if err := h.items.DeleteByOwner(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.users.Anonymize(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
