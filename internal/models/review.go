package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a post-completion rating of one participant by the other
type Review struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TransactionID  uuid.UUID `json:"transaction_id" db:"transaction_id"`
	ReviewerID     uuid.UUID `json:"reviewer_id" db:"reviewer_id"`
	ReviewedUserID uuid.UUID `json:"reviewed_user_id" db:"reviewed_user_id"`
	Stars          int       `json:"stars" db:"stars"`
	Comment        *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
