package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/services/reputation"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// ComplaintHandler handles complaints between transaction participants.
type ComplaintHandler struct {
	complaints *repository.ComplaintRepository
	txs        *repository.TransactionRepository
	reputation *reputation.Service
	notifier   stores.Notifier
}

// NewComplaintHandler creates a complaint handler.
func NewComplaintHandler(complaints *repository.ComplaintRepository, txs *repository.TransactionRepository, rep *reputation.Service, notifier stores.Notifier) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, txs: txs, reputation: rep, notifier: notifier}
}

// CreateComplaintRequest is the complaint payload.
type CreateComplaintRequest struct {
	TransactionID string   `json:"transaction_id" binding:"required,uuid"`
	Type          string   `json:"type" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	ProofImages   []string `json:"proof_images"`
}

// Create files a complaint against the other participant. The
// complained user's stars are halved immediately and the account is
// banned once the complaint count reaches the threshold.
func (h *ComplaintHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctype, err := models.ParseComplaintType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid complaint type"})
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

	complainedID := tx.OwnerID
	if userID == tx.OwnerID {
		complainedID = tx.BorrowerID
	}

	complaint := &models.Complaint{
		ID:               uuid.New(),
		ComplainantID:    userID,
		ComplainedUserID: complainedID,
		TransactionID:    txID,
		Type:             ctype,
		Description:      req.Description,
		ProofImages:      req.ProofImages,
		IsValid:          true,
		CreatedAt:        time.Now(),
	}
	if complaint.ProofImages == nil {
		complaint.ProofImages = []string{}
	}
	if err := h.complaints.Insert(c.Request.Context(), complaint); err != nil {
		respondError(c, err)
		return
	}

	if err := h.reputation.ApplyComplaint(c.Request.Context(), complainedID); err != nil {
		respondError(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), complainedID,
		"Complaint Filed",
		"A complaint has been filed against you on a transaction.",
		"complaint", txID)

	c.JSON(http.StatusCreated, complaint)
}

// AgainstUser returns complaints filed against a user.
func (h *ComplaintHandler) AgainstUser(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	complaints, err := h.complaints.ListByComplainedUser(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}
