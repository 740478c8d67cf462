package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/services/reputation"
)

// ReviewHandler handles post-completion reviews.
type ReviewHandler struct {
	reviews    *repository.ReviewRepository
	txs        *repository.TransactionRepository
	users      *repository.UserRepository
	reputation *reputation.Service
	logger     *slog.Logger
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(reviews *repository.ReviewRepository, txs *repository.TransactionRepository, users *repository.UserRepository, rep *reputation.Service, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, txs: txs, users: users, reputation: rep, logger: logger}
}

// CreateReviewRequest is the review payload.
type CreateReviewRequest struct {
	TransactionID string  `json:"transaction_id" binding:"required,uuid"`
	Stars         int     `json:"stars" binding:"required,min=1,max=5"`
	Comment       *string `json:"comment"`
}

// Create files a review of the other participant on a completed
// transaction and refreshes the reviewed user's reputation.
func (h *ReviewHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	txID, err := parseUUID(req.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_id"})
		return
	}

	tx, err := h.txs.Get(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !tx.Participant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a transaction participant"})
		return
	}
	if tx.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "transaction is not completed"})
		return
	}

	reviewedID := tx.OwnerID
	if userID == tx.OwnerID {
		reviewedID = tx.BorrowerID
	}

	review := &models.Review{
		ID:             uuid.New(),
		TransactionID:  txID,
		ReviewerID:     userID,
		ReviewedUserID: reviewedID,
		Stars:          req.Stars,
		Comment:        req.Comment,
		CreatedAt:      time.Now(),
	}
	if err := h.reviews.Insert(c.Request.Context(), review); err != nil {
		respondError(c, err)
		return
	}

	if err := h.reputation.Recompute(c.Request.Context(), reviewedID); err != nil {
		h.logger.Error("failed to recompute reputation after review", "user_id", reviewedID, "error", err)
	}
	c.JSON(http.StatusCreated, review)
}

// ForUser returns all reviews of a user.
func (h *ReviewHandler) ForUser(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListByReviewedUser(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// UserProfile returns another user's public profile.
func (h *ReviewHandler) UserProfile(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}
