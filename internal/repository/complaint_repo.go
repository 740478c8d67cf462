package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// ComplaintRepository persists complaints.
type ComplaintRepository struct {
	db *sql.DB
}

var _ stores.ComplaintStore = (*ComplaintRepository)(nil)

// NewComplaintRepository creates a new complaint repository.
func NewComplaintRepository(db *sql.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Insert stores a complaint.
func (r *ComplaintRepository) Insert(ctx context.Context, c *models.Complaint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO complaints (id, complainant_id, complained_user_id, transaction_id,
			type, description, proof_images, is_valid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ComplainantID, c.ComplainedUserID, c.TransactionID,
		c.Type, c.Description, pq.Array(c.ProofImages), c.IsValid, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert complaint: %w", err)
	}
	return nil
}

// MarkValid flags the complaint as validated.
func (r *ComplaintRepository) MarkValid(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET is_valid = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to validate complaint: %w", err)
	}
	return requireRow(res)
}

// ListByComplainedUser returns complaints filed against the user.
func (r *ComplaintRepository) ListByComplainedUser(ctx context.Context, userID uuid.UUID) ([]models.Complaint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, complainant_id, complained_user_id, transaction_id, type, description,
			proof_images, is_valid, created_at
		 FROM complaints WHERE complained_user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	complaints := []models.Complaint{}
	for rows.Next() {
		var c models.Complaint
		err := rows.Scan(&c.ID, &c.ComplainantID, &c.ComplainedUserID, &c.TransactionID,
			&c.Type, &c.Description, pq.Array(&c.ProofImages), &c.IsValid, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}
