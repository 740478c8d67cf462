// Package rental implements the transaction state machine: the rental
// lifecycle from borrow request through approval, dual-confirmed
// delivery and return, and the token settlements those confirmations
// trigger.
//
// Status only moves forward: pending to approved or rejected, approved
// to delivered, delivered to completed. Rejected and completed are
// terminal. The returned status exists in the model but no transition
// produces it.
package rental

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/services/ledger"
	"github.com/terminal-bench/lendvault/internal/services/penalty"
	"github.com/terminal-bench/lendvault/internal/services/reputation"
	"github.com/terminal-bench/lendvault/internal/stores"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

// Service drives rental transactions through their lifecycle.
type Service struct {
	accounts   stores.AccountStore
	txs        stores.TransactionStore
	items      stores.ItemStore
	ledger     *ledger.Service
	penalties  *penalty.Queue
	reputation *reputation.Service
	notifier   stores.Notifier
	// txLocks serializes the set-flag/check-both/settle sequence per
	// transaction so a settlement fires exactly once even when both
	// parties confirm concurrently.
	txLocks *keylock.KeyedMutex
	logger  *slog.Logger
}

// NewService wires the state machine to its collaborators.
func NewService(
	accounts stores.AccountStore,
	txs stores.TransactionStore,
	items stores.ItemStore,
	ledg *ledger.Service,
	penalties *penalty.Queue,
	rep *reputation.Service,
	notifier stores.Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:   accounts,
		txs:        txs,
		items:      items,
		ledger:     ledg,
		penalties:  penalties,
		reputation: rep,
		notifier:   notifier,
		txLocks:    keylock.New(),
		logger:     logger,
	}
}

// RequestInput describes a borrow request.
type RequestInput struct {
	ItemID    uuid.UUID
	Days      int
	StartDate time.Time
	EndDate   time.Time
}

// Request creates a pending transaction for the item. The borrower's
// balance must cover the full rental price at request time; the check
// is not repeated at settlement, by which point the balance may have
// changed.
func (s *Service) Request(ctx context.Context, borrowerID uuid.UUID, in RequestInput) (*models.Transaction, error) {
	if in.Days <= 0 {
		return nil, fmt.Errorf("rental must be for at least one day")
	}

	item, err := s.items.GetItem(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == borrowerID {
		return nil, ErrOwnItem
	}

	total := item.TokenPerDay * in.Days

	borrower, err := s.accounts.GetUser(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if borrower.Tokens < total {
		return nil, ErrInsufficientTokens
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		ItemID:      item.ID,
		BorrowerID:  borrowerID,
		OwnerID:     item.OwnerID,
		Days:        in.Days,
		TotalTokens: total,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.notifier.Notify(ctx, item.OwnerID,
		"New Borrow Request",
		fmt.Sprintf("%s wants to borrow %s", borrower.Username, item.Title),
		"request", tx.ID)

	return tx, nil
}

// Approve moves a pending transaction to approved. Owner only, no
// ledger effect.
func (s *Service) Approve(ctx context.Context, ownerID, txID uuid.UUID) error {
	return s.decide(ctx, ownerID, txID, models.StatusApproved,
		"Request Approved", "Your borrow request has been approved", "approval")
}

// Reject moves a pending transaction to rejected, a terminal state.
// Owner only, no ledger effect.
func (s *Service) Reject(ctx context.Context, ownerID, txID uuid.UUID) error {
	return s.decide(ctx, ownerID, txID, models.StatusRejected,
		"Request Rejected", "Your borrow request has been rejected", "rejection")
}

func (s *Service) decide(ctx context.Context, ownerID, txID uuid.UUID, to models.TransactionStatus, title, message, kind string) error {
	s.txLocks.Lock(txID.String())
	defer s.txLocks.Unlock(txID.String())

	tx, err := s.txs.Get(ctx, txID)
	if err != nil {
		return err
	}
	if tx.OwnerID != ownerID {
		return ErrOwnerOnly
	}
	if tx.Status != models.StatusPending {
		return ErrInvalidState
	}

	if err := s.txs.UpdateStatus(ctx, txID, to); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	s.notifier.Notify(ctx, tx.BorrowerID, title, message, kind, txID)
	return nil
}

// ConfirmDelivery records the caller's delivery confirmation. Each
// party sets only its own flag and re-confirming is a no-op. Once both
// flags are set the delivery settlement runs exactly once and the
// transaction advances to delivered.
func (s *Service) ConfirmDelivery(ctx context.Context, callerID, txID uuid.UUID) error {
	s.txLocks.Lock(txID.String())
	defer s.txLocks.Unlock(txID.String())

	tx, err := s.txs.Get(ctx, txID)
	if err != nil {
		return err
	}
	if !tx.Participant(callerID) {
		return ErrNotParticipant
	}

	// Delivered or later means the settlement already ran; the repeat
	// call must not move tokens again. The guard is keyed on status, not
	// the flag pair: flags are persisted before the settlement, and a
	// settlement that failed leaves both flags set on a still-approved
	// transaction, which the next confirmation call must retry rather
	// than treat as done.
	if tx.Status == models.StatusDelivered || tx.Status == models.StatusCompleted {
		return nil
	}
	if tx.Status != models.StatusApproved {
		return ErrInvalidState
	}

	flags := tx.Flags()
	if callerID == tx.OwnerID {
		flags.OwnerConfirmedDelivery = true
	} else {
		flags.BorrowerConfirmedDelivery = true
	}
	if err := s.txs.UpdateConfirmationFlags(ctx, txID, flags); err != nil {
		return fmt.Errorf("failed to record confirmation: %w", err)
	}
	tx.OwnerConfirmedDelivery = flags.OwnerConfirmedDelivery
	tx.BorrowerConfirmedDelivery = flags.BorrowerConfirmedDelivery

	if !(flags.OwnerConfirmedDelivery && flags.BorrowerConfirmedDelivery) {
		return nil
	}

	if err := s.settleDelivery(ctx, tx); err != nil {
		return err
	}
	if err := s.txs.UpdateStatus(ctx, txID, models.StatusDelivered); err != nil {
		return fmt.Errorf("failed to advance to delivered: %w", err)
	}
	return nil
}

// ConfirmReturn records the caller's return confirmation on a delivered
// transaction. Only an owner call may carry a damage severity; a
// borrower call never applies damage. When both flags are set the
// return settlement runs, the transaction completes, and both parties'
// reputation is recomputed.
func (s *Service) ConfirmReturn(ctx context.Context, callerID, txID uuid.UUID, severity models.DamageSeverity) error {
	s.txLocks.Lock(txID.String())
	defer s.txLocks.Unlock(txID.String())

	tx, err := s.txs.Get(ctx, txID)
	if err != nil {
		return err
	}
	if !tx.Participant(callerID) {
		return ErrNotParticipant
	}

	// Status-keyed like the delivery guard: a return settlement that
	// failed after both flags were persisted is retried on the next call.
	if tx.Status == models.StatusCompleted {
		return nil
	}
	if tx.Status != models.StatusDelivered {
		return ErrInvalidState
	}

	flags := tx.Flags()
	if callerID == tx.OwnerID {
		flags.OwnerConfirmedReturn = true
	} else {
		flags.BorrowerConfirmedReturn = true
	}
	if err := s.txs.UpdateConfirmationFlags(ctx, txID, flags); err != nil {
		return fmt.Errorf("failed to record confirmation: %w", err)
	}

	if !(flags.OwnerConfirmedReturn && flags.BorrowerConfirmedReturn) {
		return nil
	}

	// Damage applies only when the owner's confirmation closes the gate;
	// a severity sent with an earlier owner call is not retained.
	if callerID == tx.OwnerID && severity != models.SeverityNone {
		if err := s.settleReturn(ctx, tx, severity); err != nil {
			return err
		}
	}

	if err := s.txs.UpdateStatus(ctx, txID, models.StatusCompleted); err != nil {
		return fmt.Errorf("failed to advance to completed: %w", err)
	}

	// Reputation refresh is best effort; completion already persisted.
	if err := s.reputation.Recompute(ctx, tx.BorrowerID); err != nil {
		s.logger.Error("failed to recompute borrower reputation", "user_id", tx.BorrowerID, "error", err)
	}
	if err := s.reputation.Recompute(ctx, tx.OwnerID); err != nil {
		s.logger.Error("failed to recompute owner reputation", "user_id", tx.OwnerID, "error", err)
	}
	return nil
}
