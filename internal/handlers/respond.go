package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/middleware"
	"github.com/terminal-bench/lendvault/internal/services/rental"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// respondError maps domain errors to HTTP statuses: missing entities to
// 404, participation failures to 403, lifecycle violations to 409,
// precondition failures to 400, everything else to 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stores.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, rental.ErrNotParticipant), errors.Is(err, rental.ErrOwnerOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, rental.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, rental.ErrInsufficientTokens), errors.Is(err, rental.ErrOwnItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// currentUser returns the authenticated user ID or aborts with 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}

// parseUUID parses a UUID from a request body field.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// pathID parses a UUID path parameter or aborts with 400.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
