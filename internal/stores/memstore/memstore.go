// Package memstore provides in-memory implementations of the store
// interfaces. The core service tests run against it, and it backs
// local development without a database.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// Store implements every persistence interface over process memory.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*models.User
	items     map[uuid.UUID]*models.Item
	txs       map[uuid.UUID]*models.Transaction
	penalties []*models.Penalty
	reviews   []*models.Review
	notices   []models.Notification
}

var (
	_ stores.AccountStore     = (*Store)(nil)
	_ stores.TransactionStore = (*Store)(nil)
	_ stores.PenaltyStore     = (*Store)(nil)
	_ stores.ReviewStore      = (*Store)(nil)
	_ stores.ItemStore        = (*Store)(nil)
	_ stores.Notifier         = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]*models.User),
		items: make(map[uuid.UUID]*models.Item),
		txs:   make(map[uuid.UUID]*models.Transaction),
	}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutItem inserts or replaces an item.
func (s *Store) PutItem(i *models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.items[i.ID] = &cp
}

// GetUser implements stores.AccountStore.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// UpdateTokens implements stores.AccountStore.
func (s *Store) UpdateTokens(ctx context.Context, id uuid.UUID, balance int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return stores.ErrNotFound
	}
	u.Tokens = balance
	return nil
}

// UpdateReputation implements stores.AccountStore.
func (s *Store) UpdateReputation(ctx context.Context, id uuid.UUID, stars, successRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return stores.ErrNotFound
	}
	u.Stars = stars
	u.SuccessRate = successRate
	return nil
}

// UpdateComplaintState implements stores.AccountStore.
func (s *Store) UpdateComplaintState(ctx context.Context, id uuid.UUID, count int, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return stores.ErrNotFound
	}
	u.ComplaintsCount = count
	u.IsBanned = banned
	return nil
}

// GetItem implements stores.ItemStore.
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.items[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

// Get implements stores.TransactionStore.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Create implements stores.TransactionStore.
func (s *Store) Create(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.ID] = &cp
	return nil
}

// UpdateStatus implements stores.TransactionStore.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return stores.ErrNotFound
	}
	t.Status = status
	return nil
}

// UpdateConfirmationFlags implements stores.TransactionStore.
func (s *Store) UpdateConfirmationFlags(ctx context.Context, id uuid.UUID, flags models.ConfirmationFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return stores.ErrNotFound
	}
	t.OwnerConfirmedDelivery = flags.OwnerConfirmedDelivery
	t.BorrowerConfirmedDelivery = flags.BorrowerConfirmedDelivery
	t.OwnerConfirmedReturn = flags.OwnerConfirmedReturn
	t.BorrowerConfirmedReturn = flags.BorrowerConfirmedReturn
	return nil
}

// ListByUserAndStatus implements stores.TransactionStore.
func (s *Store) ListByUserAndStatus(ctx context.Context, userID uuid.UUID, statuses ...models.TransactionStatus) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.txs {
		if t.BorrowerID != userID && t.OwnerID != userID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, t.Status) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

// CountByUser implements stores.TransactionStore.
func (s *Store) CountByUser(ctx context.Context, userID uuid.UUID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, completed := 0, 0
	for _, t := range s.txs {
		if t.BorrowerID != userID && t.OwnerID != userID {
			continue
		}
		total++
		if t.Status == models.StatusCompleted {
			completed++
		}
	}
	return total, completed, nil
}

// Insert implements stores.PenaltyStore.
func (s *Store) Insert(ctx context.Context, p *models.Penalty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.penalties = append(s.penalties, &cp)
	return nil
}

// ListByUser implements stores.PenaltyStore.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Penalty
	for _, p := range s.penalties {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ListUnpaidByUser implements stores.PenaltyStore. Penalties are kept
// in insertion order, which is creation order.
func (s *Store) ListUnpaidByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Penalty
	for _, p := range s.penalties {
		if p.UserID == userID && !p.IsPaid {
			out = append(out, *p)
		}
	}
	return out, nil
}

// MarkPaid implements stores.PenaltyStore.
func (s *Store) MarkPaid(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.penalties {
		if p.ID == id {
			p.IsPaid = true
			return nil
		}
	}
	return stores.ErrNotFound
}

// InsertReview adds a review.
func (s *Store) InsertReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reviews = append(s.reviews, &cp)
	return nil
}

// ListByReviewedUser implements stores.ReviewStore.
func (s *Store) ListByReviewedUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Review
	for _, r := range s.reviews {
		if r.ReviewedUserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Notify implements stores.Notifier by recording the notification.
func (s *Store) Notify(ctx context.Context, userID uuid.UUID, title, message, kind string, relatedID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Kind:    kind,
	}
	if relatedID != uuid.Nil {
		n.RelatedID = &relatedID
	}
	s.notices = append(s.notices, n)
}

// Notifications returns the notifications recorded for the user.
func (s *Store) Notifications(userID uuid.UUID) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func containsStatus(statuses []models.TransactionStatus, s models.TransactionStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
