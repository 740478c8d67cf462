package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// MessageRepository persists per-transaction chat messages.
type MessageRepository struct {
	db *sql.DB
}

var _ stores.MessageStore = (*MessageRepository)(nil)

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a message.
func (r *MessageRepository) Insert(ctx context.Context, m *models.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, transaction_id, sender_id, receiver_id, message, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.TransactionID, m.SenderID, m.ReceiverID, m.Message, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByTransaction returns the transaction's messages oldest first.
func (r *MessageRepository) ListByTransaction(ctx context.Context, txID uuid.UUID) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, sender_id, receiver_id, message, ts
		 FROM messages WHERE transaction_id = $1 ORDER BY ts ASC`,
		txID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.TransactionID, &m.SenderID, &m.ReceiverID, &m.Message, &m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
