package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/services/rental"
)

// TransactionHandler exposes the rental lifecycle over HTTP.
type TransactionHandler struct {
	rentals *rental.Service
	txs     *repository.TransactionRepository
}

// NewTransactionHandler creates a transaction handler.
func NewTransactionHandler(rentals *rental.Service, txs *repository.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{rentals: rentals, txs: txs}
}

// RequestTransactionRequest is the borrow request payload.
type RequestTransactionRequest struct {
	ItemID    string    `json:"item_id" binding:"required,uuid"`
	Days      int       `json:"days" binding:"required,gt=0"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// Request creates a pending borrow request for an item.
func (h *TransactionHandler) Request(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req RequestTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	itemID, err := parseUUID(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
		return
	}

	tx, err := h.rentals.Request(c.Request.Context(), userID, rental.RequestInput{
		ItemID:    itemID,
		Days:      req.Days,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Pending lists borrow requests awaiting the caller's decision as owner.
func (h *TransactionHandler) Pending(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txs, err := h.txs.ListPendingForOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// MyActivities returns the caller's transactions split by role.
func (h *TransactionHandler) MyActivities(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	borrowed, err := h.txs.ListByBorrower(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	lent, err := h.txs.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"borrowed": borrowed, "lent": lent})
}

// Get returns a single transaction, visible to its participants only.
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
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
	c.JSON(http.StatusOK, tx)
}

// Approve accepts a pending request. Owner only.
func (h *TransactionHandler) Approve(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rentals.Approve(c.Request.Context(), userID, txID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction approved"})
}

// Reject declines a pending request. Owner only.
func (h *TransactionHandler) Reject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rentals.Reject(c.Request.Context(), userID, txID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction rejected"})
}

// ConfirmDelivery records the caller's delivery confirmation. Tokens
// move when both parties have confirmed.
func (h *TransactionHandler) ConfirmDelivery(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rentals.ConfirmDelivery(c.Request.Context(), userID, txID); err != nil {
		respondError(c, err)
		return
	}
	tx, err := h.txs.Get(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ConfirmReturnRequest carries the owner's optional damage report.
type ConfirmReturnRequest struct {
	DamageSeverity string `json:"damage_severity"`
}

// ConfirmReturn records the caller's return confirmation. A damage
// severity is honored only on the owner's confirmation.
func (h *TransactionHandler) ConfirmReturn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ConfirmReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	severity, err := models.ParseSeverity(req.DamageSeverity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid damage severity"})
		return
	}

	if err := h.rentals.ConfirmReturn(c.Request.Context(), userID, txID, severity); err != nil {
		respondError(c, err)
		return
	}
	tx, err := h.txs.Get(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
