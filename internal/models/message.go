package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message scoped to a transaction
type Message struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID uuid.UUID `json:"transaction_id" db:"transaction_id"`
	SenderID      uuid.UUID `json:"sender_id" db:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id" db:"receiver_id"`
	Message       string    `json:"message" db:"message"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}
