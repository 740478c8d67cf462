// Package penalty manages outstanding penalty obligations: recording
// them when a settlement cannot be fully funded and paying them off
// later when the debtor's balance allows.
package penalty

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

// Queue records penalties and settles them strictly oldest-first.
type Queue struct {
	penalties stores.PenaltyStore
	txs       stores.TransactionStore
	accounts  stores.AccountStore
	notifier  stores.Notifier
	locks     *keylock.KeyedMutex
	logger    *slog.Logger
}

// NewQueue creates a penalty queue. The keyed mutex must be the same
// instance the ledger uses so balance writers serialize per user.
func NewQueue(penalties stores.PenaltyStore, txs stores.TransactionStore, accounts stores.AccountStore, notifier stores.Notifier, locks *keylock.KeyedMutex, logger *slog.Logger) *Queue {
	return &Queue{
		penalties: penalties,
		txs:       txs,
		accounts:  accounts,
		notifier:  notifier,
		locks:     locks,
		logger:    logger,
	}
}

// Enqueue records an unpaid penalty against the debtor. Amount must be
// positive; callers filter out zero and none-severity cases.
func (q *Queue) Enqueue(ctx context.Context, debtorID, transactionID uuid.UUID, amount int, reason string) (*models.Penalty, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("penalty amount must be positive, got %d", amount)
	}
	p := &models.Penalty{
		ID:            uuid.New(),
		UserID:        debtorID,
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
		IsPaid:        false,
		CreatedAt:     time.Now(),
	}
	if err := q.penalties.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record penalty: %w", err)
	}
	return p, nil
}

// RecordPaid records a penalty that was settled at creation time. This
// is a receipt, not a debt: return-damage assessments paid in full on
// the spot are kept this way for the audit trail.
func (q *Queue) RecordPaid(ctx context.Context, debtorID, transactionID uuid.UUID, amount int, reason string) (*models.Penalty, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("penalty amount must be positive, got %d", amount)
	}
	p := &models.Penalty{
		ID:            uuid.New(),
		UserID:        debtorID,
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
		IsPaid:        true,
		CreatedAt:     time.Now(),
	}
	if err := q.penalties.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record penalty receipt: %w", err)
	}
	return p, nil
}

// SettlePending pays the user's unpaid penalties oldest-first from the
// current balance. Each penalty is paid in full or not at all, and the
// pass halts at the first penalty it cannot cover, even when a smaller
// one later in the queue would be payable. The new balance is persisted
// once after the pass; owed owners are credited per paid penalty.
// Returns the ids of the penalties paid.
func (q *Queue) SettlePending(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	q.locks.Lock(userID.String())

	user, err := q.accounts.GetUser(ctx, userID)
	if err != nil {
		q.locks.Unlock(userID.String())
		return nil, err
	}
	pending, err := q.penalties.ListUnpaidByUser(ctx, userID)
	if err != nil {
		q.locks.Unlock(userID.String())
		return nil, err
	}

	available := user.Tokens
	var paid []models.Penalty
	for _, p := range pending {
		if available < p.Amount {
			break
		}
		available -= p.Amount
		if err := q.penalties.MarkPaid(ctx, p.ID); err != nil {
			q.locks.Unlock(userID.String())
			return nil, fmt.Errorf("failed to mark penalty %s paid: %w", p.ID, err)
		}
		paid = append(paid, p)
	}

	if len(paid) > 0 {
		if err := q.accounts.UpdateTokens(ctx, userID, available); err != nil {
			q.locks.Unlock(userID.String())
			return nil, fmt.Errorf("failed to persist balance after settlement: %w", err)
		}
	}
	q.locks.Unlock(userID.String())

	// Credit the creditors outside the debtor lock; crediting takes the
	// creditor's own lock and nesting the two could deadlock with a
	// concurrent settlement running in the opposite direction.
	ids := make([]uuid.UUID, 0, len(paid))
	for _, p := range paid {
		ids = append(ids, p.ID)
		if err := q.creditOwner(ctx, p); err != nil {
			q.logger.Error("failed to credit penalty creditor",
				"penalty_id", p.ID, "transaction_id", p.TransactionID, "error", err)
		}
	}
	return ids, nil
}

func (q *Queue) creditOwner(ctx context.Context, p models.Penalty) error {
	tx, err := q.txs.Get(ctx, p.TransactionID)
	if err != nil {
		return err
	}

	q.locks.Lock(tx.OwnerID.String())
	defer q.locks.Unlock(tx.OwnerID.String())

	owner, err := q.accounts.GetUser(ctx, tx.OwnerID)
	if err != nil {
		return err
	}
	if err := q.accounts.UpdateTokens(ctx, tx.OwnerID, owner.Tokens+p.Amount); err != nil {
		return err
	}
	q.notifier.Notify(ctx, tx.OwnerID,
		"Penalty Payment Received",
		fmt.Sprintf("Received %d tokens for an outstanding penalty.", p.Amount),
		"penalty_payment", p.TransactionID)
	return nil
}
