// Package ledger implements the token ledger: the only code allowed to
// mutate user balances. All operations are read-modify-write against the
// account store and are serialized per user with a keyed mutex so that
// concurrent settlements cannot interleave.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/stores"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

// Service moves tokens between user balances.
type Service struct {
	accounts stores.AccountStore
	locks    *keylock.KeyedMutex
}

// NewService creates a ledger over the given account store. The keyed
// mutex is shared with other components (penalty settlement) so that
// all balance writers contend on the same per-user locks.
func NewService(accounts stores.AccountStore, locks *keylock.KeyedMutex) *Service {
	return &Service{accounts: accounts, locks: locks}
}

// Balance returns the user's current token balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Tokens, nil
}

// Credit increases the user's balance by a non-negative amount.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	s.locks.Lock(userID.String())
	defer s.locks.Unlock(userID.String())

	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateTokens(ctx, userID, user.Tokens+amount)
}

// Debit decreases the user's balance. The caller must have verified
// balance >= amount; the ledger does not clamp, and a violated
// precondition is a caller bug.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	s.locks.Lock(userID.String())
	defer s.locks.Unlock(userID.String())

	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateTokens(ctx, userID, user.Tokens-amount)
}

// Transfer moves amount from debtor to creditor as one unit, holding
// both user locks for the duration. Used for full settlements where the
// debtor's balance is known to cover the amount.
func (s *Service) Transfer(ctx context.Context, debtorID, creditorID uuid.UUID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative, got %d", amount)
	}
	unlock := s.locks.LockOrdered(debtorID.String(), creditorID.String())
	defer unlock()

	debtor, err := s.accounts.GetUser(ctx, debtorID)
	if err != nil {
		return err
	}
	creditor, err := s.accounts.GetUser(ctx, creditorID)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateTokens(ctx, debtorID, debtor.Tokens-amount); err != nil {
		return err
	}
	if err := s.accounts.UpdateTokens(ctx, creditorID, creditor.Tokens+amount); err != nil {
		// Restore the debit so a failed credit does not destroy tokens.
		// Both locks are still held, so nothing can observe the interim
		// state.
		if restoreErr := s.accounts.UpdateTokens(ctx, debtorID, debtor.Tokens); restoreErr != nil {
			return fmt.Errorf("credit failed (%v) and debit restore failed: %w", err, restoreErr)
		}
		return err
	}
	return nil
}

// ZeroAndTransferAvailable empties the debtor's balance into the
// creditor and returns the amount actually transferred, so the caller
// can compute the shortfall. Used whenever an obligation exceeds the
// debtor's available funds.
func (s *Service) ZeroAndTransferAvailable(ctx context.Context, debtorID, creditorID uuid.UUID) (int, error) {
	unlock := s.locks.LockOrdered(debtorID.String(), creditorID.String())
	defer unlock()

	debtor, err := s.accounts.GetUser(ctx, debtorID)
	if err != nil {
		return 0, err
	}
	creditor, err := s.accounts.GetUser(ctx, creditorID)
	if err != nil {
		return 0, err
	}

	transferred := debtor.Tokens
	if err := s.accounts.UpdateTokens(ctx, debtorID, 0); err != nil {
		return 0, err
	}
	if err := s.accounts.UpdateTokens(ctx, creditorID, creditor.Tokens+transferred); err != nil {
		// Restore the drained balance so a failed credit does not
		// destroy tokens.
		if restoreErr := s.accounts.UpdateTokens(ctx, debtorID, transferred); restoreErr != nil {
			return 0, fmt.Errorf("credit failed (%v) and debit restore failed: %w", err, restoreErr)
		}
		return 0, err
	}
	return transferred, nil
}
