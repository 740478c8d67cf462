package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ComplaintType classifies a complaint.
type ComplaintType string

const (
	ComplaintDelivery ComplaintType = "delivery"
	ComplaintDamage   ComplaintType = "damage"
	ComplaintBehavior ComplaintType = "behavior"
	ComplaintOther    ComplaintType = "other"
)

// ParseComplaintType validates a complaint type string.
func ParseComplaintType(s string) (ComplaintType, error) {
	switch ComplaintType(s) {
	case ComplaintDelivery, ComplaintDamage, ComplaintBehavior, ComplaintOther:
		return ComplaintType(s), nil
	}
	return "", fmt.Errorf("unknown complaint type %q", s)
}

// Complaint is a grievance filed by one participant against the other
type Complaint struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	ComplainantID    uuid.UUID     `json:"complainant_id" db:"complainant_id"`
	ComplainedUserID uuid.UUID     `json:"complained_user_id" db:"complained_user_id"`
	TransactionID    uuid.UUID     `json:"transaction_id" db:"transaction_id"`
	Type             ComplaintType `json:"type" db:"type"`
	Description      string        `json:"description" db:"description"`
	ProofImages      []string      `json:"proof_images" db:"proof_images"`
	IsValid          bool          `json:"is_valid" db:"is_valid"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}
