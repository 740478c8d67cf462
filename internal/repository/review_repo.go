package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// ReviewRepository persists reviews.
type ReviewRepository struct {
	db *sql.DB
}

var _ stores.ReviewStore = (*ReviewRepository)(nil)

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert stores a review.
func (r *ReviewRepository) Insert(ctx context.Context, review *models.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, transaction_id, reviewer_id, reviewed_user_id, stars, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID, review.TransactionID, review.ReviewerID, review.ReviewedUserID,
		review.Stars, review.Comment, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// ListByReviewedUser returns all reviews of the user.
func (r *ReviewRepository) ListByReviewedUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, reviewer_id, reviewed_user_id, stars, comment, created_at
		 FROM reviews WHERE reviewed_user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		err := rows.Scan(&rv.ID, &rv.TransactionID, &rv.ReviewerID, &rv.ReviewedUserID,
			&rv.Stars, &rv.Comment, &rv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
