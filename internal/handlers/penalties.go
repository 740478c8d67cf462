package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/services/penalty"
)

// PenaltyHandler exposes the user's penalty history and settlement.
type PenaltyHandler struct {
	penalties *repository.PenaltyRepository
	queue     *penalty.Queue
}

// NewPenaltyHandler creates a penalty handler.
func NewPenaltyHandler(penalties *repository.PenaltyRepository, queue *penalty.Queue) *PenaltyHandler {
	return &PenaltyHandler{penalties: penalties, queue: queue}
}

// List returns the caller's penalties, paid and unpaid.
func (h *PenaltyHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	penalties, err := h.penalties.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, penalties)
}

// ProcessPending pays the caller's unpaid penalties oldest-first from
// the current balance.
func (h *PenaltyHandler) ProcessPending(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	paid, err := h.queue.SettlePending(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if paid == nil {
		paid = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, gin.H{"paid_penalties": paid, "count": len(paid)})
}
