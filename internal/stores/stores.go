// Package stores defines the persistence interfaces the core services
// depend on. The postgres repositories implement them for production;
// memstore implements them in memory for tests and local development.
package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// AccountStore owns user records. The core mutates only tokens,
// reputation and complaint state; everything else belongs to the
// account CRUD layer.
type AccountStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, balance int) error
	UpdateReputation(ctx context.Context, id uuid.UUID, stars, successRate float64) error
	UpdateComplaintState(ctx context.Context, id uuid.UUID, count int, banned bool) error
}

// TransactionStore persists rental transactions. Transactions are never
// physically deleted; they are retained for history even after account
// deletion.
type TransactionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Create(ctx context.Context, tx *models.Transaction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
	UpdateConfirmationFlags(ctx context.Context, id uuid.UUID, flags models.ConfirmationFlags) error
	ListByUserAndStatus(ctx context.Context, userID uuid.UUID, statuses ...models.TransactionStatus) ([]models.Transaction, error)
	// CountByUser returns (total, completed) transaction counts where the
	// user participates as either party.
	CountByUser(ctx context.Context, userID uuid.UUID) (total, completed int, err error)
}

// PenaltyStore persists penalty obligations and receipts.
type PenaltyStore interface {
	Insert(ctx context.Context, p *models.Penalty) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error)
	// ListUnpaidByUser returns unpaid penalties ordered by creation time
	// ascending; settlement relies on this order.
	ListUnpaidByUser(ctx context.Context, userID uuid.UUID) ([]models.Penalty, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

// ReviewStore exposes the review history the reputation aggregator
// reads. Review creation belongs to the CRUD layer.
type ReviewStore interface {
	ListByReviewedUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error)
}

// ItemStore persists listed items.
type ItemStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// ComplaintStore persists complaints against users.
type ComplaintStore interface {
	Insert(ctx context.Context, c *models.Complaint) error
	MarkValid(ctx context.Context, id uuid.UUID) error
	ListByComplainedUser(ctx context.Context, userID uuid.UUID) ([]models.Complaint, error)
}

// NotificationStore persists notifications; the notification service
// layers the Redis recency mirror on top of it.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// MessageStore persists per-transaction chat messages.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	ListByTransaction(ctx context.Context, txID uuid.UUID) ([]models.Message, error)
}

// Notifier delivers user-facing notifications. Delivery is fire and
// forget: implementations log failures and never block core logic.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind string, relatedID uuid.UUID)
}
