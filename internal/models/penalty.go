package models

import (
	"time"

	"github.com/google/uuid"
)

// Penalty is an obligation recorded when a settlement cannot be fully
// funded, or a receipt recorded when return damage is paid on the spot.
// The amount is fixed at creation; an underpaid delivery or return
// shortfall produces a new penalty rather than amortizing this one.
type Penalty struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id" db:"transaction_id"`
	Amount        int       `json:"amount" db:"amount"`
	Reason        string    `json:"reason" db:"reason"`
	IsPaid        bool      `json:"is_paid" db:"is_paid"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
