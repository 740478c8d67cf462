package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// MessageHandler handles per-transaction chat.
type MessageHandler struct {
	messages *repository.MessageRepository
	txs      *repository.TransactionRepository
	notifier stores.Notifier
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(messages *repository.MessageRepository, txs *repository.TransactionRepository, notifier stores.Notifier) *MessageHandler {
	return &MessageHandler{messages: messages, txs: txs, notifier: notifier}
}

// SendMessageRequest is the chat message payload.
type SendMessageRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,uuid"`
	Message       string `json:"message" binding:"required"`
}

// Send posts a message on a transaction's chat. Participants only; the
// other party is notified.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendMessageRequest
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

	receiverID := tx.OwnerID
	if userID == tx.OwnerID {
		receiverID = tx.BorrowerID
	}

	msg := &models.Message{
		ID:            uuid.New(),
		TransactionID: txID,
		SenderID:      userID,
		ReceiverID:    receiverID,
		Message:       req.Message,
		Timestamp:     time.Now(),
	}
	if err := h.messages.Insert(c.Request.Context(), msg); err != nil {
		respondError(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), receiverID,
		"New Message", "You have a new message about your rental.",
		"message", txID)

	c.JSON(http.StatusCreated, msg)
}

// ForTransaction returns the transaction's chat history, oldest first.
// Participants only.
func (h *MessageHandler) ForTransaction(c *gin.Context) {
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
	messages, err := h.messages.ListByTransaction(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ChatList returns the caller's transactions that can carry chat:
// approved or delivered rentals the user participates in.
func (h *MessageHandler) ChatList(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	txs, err := h.txs.ListByUserAndStatus(c.Request.Context(), userID,
		models.StatusApproved, models.StatusDelivered)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
