package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// PenaltyRepository persists penalty obligations and receipts.
type PenaltyRepository struct {
	db *sql.DB
}

var _ stores.PenaltyStore = (*PenaltyRepository)(nil)

// NewPenaltyRepository creates a new penalty repository.
func NewPenaltyRepository(db *sql.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

// Insert stores a penalty.
func (r *PenaltyRepository) Insert(ctx context.Context, p *models.Penalty) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO penalties (id, user_id, transaction_id, amount, reason, is_paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.UserID, p.TransactionID, p.Amount, p.Reason, p.IsPaid, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert penalty: %w", err)
	}
	return nil
}

// ListByUser returns all penalties of the user, newest first.
func (r *PenaltyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error) {
	return r.queryPenalties(ctx,
		`SELECT id, user_id, transaction_id, amount, reason, is_paid, created_at
		 FROM penalties WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

// ListUnpaidByUser returns unpaid penalties ordered by creation time
// ascending; the settlement pass depends on this order.
func (r *PenaltyRepository) ListUnpaidByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error) {
	return r.queryPenalties(ctx,
		`SELECT id, user_id, transaction_id, amount, reason, is_paid, created_at
		 FROM penalties WHERE user_id = $1 AND NOT is_paid ORDER BY created_at ASC`,
		userID)
}

// MarkPaid flags the penalty as settled.
func (r *PenaltyRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE penalties SET is_paid = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark penalty paid: %w", err)
	}
	return requireRow(res)
}

func (r *PenaltyRepository) queryPenalties(ctx context.Context, query string, args ...interface{}) ([]models.Penalty, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list penalties: %w", err)
	}
	defer rows.Close()

	penalties := []models.Penalty{}
	for rows.Next() {
		var p models.Penalty
		err := rows.Scan(&p.ID, &p.UserID, &p.TransactionID, &p.Amount, &p.Reason, &p.IsPaid, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan penalty: %w", err)
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}
