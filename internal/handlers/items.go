package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/repository"
)

// ItemHandler handles item listing CRUD and pricing suggestions.
type ItemHandler struct {
	items *repository.ItemRepository
	txs   *repository.TransactionRepository
}

// NewItemHandler creates an item handler.
func NewItemHandler(items *repository.ItemRepository, txs *repository.TransactionRepository) *ItemHandler {
	return &ItemHandler{items: items, txs: txs}
}

// ItemRequest is the create/update payload.
type ItemRequest struct {
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description" binding:"required"`
	Category          string    `json:"category" binding:"required"`
	Value             int       `json:"value" binding:"required,gt=0"`
	TokenPerDay       int       `json:"token_per_day" binding:"required,gt=0"`
	Images            []string  `json:"images"`
	AvailabilityStart time.Time `json:"availability_start" binding:"required"`
	AvailabilityEnd   time.Time `json:"availability_end" binding:"required"`
}

func (req *ItemRequest) validate(c *gin.Context) bool {
	if !models.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return false
	}
	if req.Value > models.MaxItemValue {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item value exceeds maximum"})
		return false
	}
	if !req.AvailabilityEnd.After(req.AvailabilityStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "availability end must be after start"})
		return false
	}
	return true
}

// Create lists a new item for rent.
func (h *ItemHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.validate(c) {
		return
	}

	item := &models.Item{
		ID:                uuid.New(),
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Value:             req.Value,
		TokenPerDay:       req.TokenPerDay,
		OwnerID:           userID,
		Images:            req.Images,
		AvailabilityStart: req.AvailabilityStart,
		AvailabilityEnd:   req.AvailabilityEnd,
		IsAvailable:       true,
		CreatedAt:         time.Now(),
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	if err := h.items.Create(c.Request.Context(), item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// List returns available items, optionally filtered by category, search
// text and owner location.
func (h *ItemHandler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Location: c.Query("location"),
	}
	items, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get returns a single item.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// MyItems returns the authenticated user's listings.
func (h *ItemHandler) MyItems(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.items.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Update edits an item. Only the owner may update, and not while the
// item has an active transaction.
func (h *ItemHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.validate(c) {
		return
	}

	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if item.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the item owner"})
		return
	}
	active, err := h.txs.HasActiveForItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if active {
		c.JSON(http.StatusConflict, gin.H{"error": "item has an active transaction"})
		return
	}

	item.Title = req.Title
	item.Description = req.Description
	item.Category = req.Category
	item.Value = req.Value
	item.TokenPerDay = req.TokenPerDay
	item.AvailabilityStart = req.AvailabilityStart
	item.AvailabilityEnd = req.AvailabilityEnd
	if err := h.items.Update(c.Request.Context(), item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ToggleAvailability flips whether the item can be requested.
func (h *ItemHandler) ToggleAvailability(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if item.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the item owner"})
		return
	}
	item.IsAvailable = !item.IsAvailable
	if err := h.items.SetAvailability(c.Request.Context(), id, item.IsAvailable); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": item.ID, "is_available": item.IsAvailable})
}

// Delete removes an item. Only the owner may delete, and not while the
// item has an active transaction.
func (h *ItemHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if item.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the item owner"})
		return
	}
	active, err := h.txs.HasActiveForItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if active {
		c.JSON(http.StatusConflict, gin.H{"error": "item has an active transaction"})
		return
	}
	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// Categories returns the fixed category list.
func (h *ItemHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}

// SuggestTokensRequest is the pricing suggestion payload.
type SuggestTokensRequest struct {
	Value    int    `json:"value" binding:"required,gt=0"`
	Category string `json:"category" binding:"required"`
}

// SuggestTokens returns the suggested per-day token price for a value
// and category.
func (h *ItemHandler) SuggestTokens(c *gin.Context) {
	var req SuggestTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !models.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggested_tokens": models.SuggestedTokens(req.Value, req.Category)})
}
