// Package reputation maintains derived user standing: the star rating
// averaged from reviews, the transaction success rate, and the
// complaint-driven penalties on both.
package reputation

import (
	"context"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// Service recomputes user reputation fields.
type Service struct {
	accounts stores.AccountStore
	reviews  stores.ReviewStore
	txs      stores.TransactionStore
}

// NewService creates a reputation service.
func NewService(accounts stores.AccountStore, reviews stores.ReviewStore, txs stores.TransactionStore) *Service {
	return &Service{accounts: accounts, reviews: reviews, txs: txs}
}

// Recompute refreshes the user's stars and success rate from history.
// Stars become the mean of all reviews of the user; with zero reviews
// the prior value is kept, never reset. Success rate becomes the
// percentage of the user's transactions (either side) that completed;
// with zero transactions the prior value is kept.
func (s *Service) Recompute(ctx context.Context, userID uuid.UUID) error {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	stars := user.Stars
	reviews, err := s.reviews.ListByReviewedUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Stars
		}
		stars = float64(sum) / float64(len(reviews))
	}

	successRate := user.SuccessRate
	total, completed, err := s.txs.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if total > 0 {
		successRate = 100 * float64(completed) / float64(total)
	}

	return s.accounts.UpdateReputation(ctx, userID, stars, successRate)
}

// ApplyComplaint records a complaint against the user: stars are halved
// directly (not recomputed from reviews), the complaint count grows,
// and the account is banned once the count reaches the threshold. This
// is a separate path from Recompute and must stay that way.
func (s *Service) ApplyComplaint(ctx context.Context, userID uuid.UUID) error {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	count := user.ComplaintsCount + 1
	banned := count >= models.BanThreshold
	if err := s.accounts.UpdateComplaintState(ctx, userID, count, banned); err != nil {
		return err
	}
	return s.accounts.UpdateReputation(ctx, userID, user.Stars/2, user.SuccessRate)
}
