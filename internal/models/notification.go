package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a per-user message produced by marketplace events
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	Message   string     `json:"message" db:"message"`
	Kind      string     `json:"type" db:"kind"`
	RelatedID *uuid.UUID `json:"related_id,omitempty" db:"related_id"`
	IsRead    bool       `json:"is_read" db:"is_read"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
