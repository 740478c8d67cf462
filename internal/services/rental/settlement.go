package rental

import (
	"context"
	"fmt"

	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/services/damage"
)

// settleDelivery moves the rental price from borrower to owner. With
// sufficient funds the full amount transfers; otherwise the borrower's
// entire balance transfers and the shortfall is enqueued as an unpaid
// penalty to be collected from future income.
func (s *Service) settleDelivery(ctx context.Context, tx *models.Transaction) error {
	borrower, err := s.accounts.GetUser(ctx, tx.BorrowerID)
	if err != nil {
		return err
	}

	if borrower.Tokens >= tx.TotalTokens {
		if err := s.ledger.Transfer(ctx, tx.BorrowerID, tx.OwnerID, tx.TotalTokens); err != nil {
			return fmt.Errorf("delivery settlement failed: %w", err)
		}
		s.notifier.Notify(ctx, tx.BorrowerID,
			"Delivery Confirmed",
			fmt.Sprintf("Item delivery confirmed. %d tokens deducted.", tx.TotalTokens),
			"delivery", tx.ID)
		s.notifier.Notify(ctx, tx.OwnerID,
			"Delivery Confirmed",
			fmt.Sprintf("Item delivery confirmed. %d tokens credited.", tx.TotalTokens),
			"delivery", tx.ID)
		return nil
	}

	transferred, err := s.ledger.ZeroAndTransferAvailable(ctx, tx.BorrowerID, tx.OwnerID)
	if err != nil {
		return fmt.Errorf("partial delivery settlement failed: %w", err)
	}
	shortfall := tx.TotalTokens - transferred
	if _, err := s.penalties.Enqueue(ctx, tx.BorrowerID, tx.ID, shortfall,
		"insufficient tokens at delivery confirmation"); err != nil {
		return err
	}

	s.notifier.Notify(ctx, tx.BorrowerID,
		"Insufficient Tokens - Penalty Created",
		fmt.Sprintf("Partial payment made. Penalty of %d tokens created.", shortfall),
		"penalty", tx.ID)
	s.notifier.Notify(ctx, tx.OwnerID,
		"Partial Payment Received",
		fmt.Sprintf("Received %d tokens. Remaining %d tokens pending.", transferred, shortfall),
		"partial_payment", tx.ID)
	return nil
}

// settleReturn collects the damage penalty assessed by the owner. Paid
// in full it is recorded as a receipt (a penalty created already paid);
// underfunded, the available balance transfers and the remainder is
// enqueued unpaid.
func (s *Service) settleReturn(ctx context.Context, tx *models.Transaction, severity models.DamageSeverity) error {
	item, err := s.items.GetItem(ctx, tx.ItemID)
	if err != nil {
		return err
	}

	amount := damage.Assess(severity, item.Value)
	if amount == 0 {
		return nil
	}

	borrower, err := s.accounts.GetUser(ctx, tx.BorrowerID)
	if err != nil {
		return err
	}

	if borrower.Tokens >= amount {
		if err := s.ledger.Transfer(ctx, tx.BorrowerID, tx.OwnerID, amount); err != nil {
			return fmt.Errorf("damage settlement failed: %w", err)
		}
		if _, err := s.penalties.RecordPaid(ctx, tx.BorrowerID, tx.ID, amount,
			fmt.Sprintf("damage severity: %s", severity)); err != nil {
			return err
		}
		return nil
	}

	transferred, err := s.ledger.ZeroAndTransferAvailable(ctx, tx.BorrowerID, tx.OwnerID)
	if err != nil {
		return fmt.Errorf("partial damage settlement failed: %w", err)
	}
	remaining := amount - transferred
	if _, err := s.penalties.Enqueue(ctx, tx.BorrowerID, tx.ID, remaining,
		fmt.Sprintf("damage severity: %s - insufficient tokens", severity)); err != nil {
		return err
	}

	s.notifier.Notify(ctx, tx.BorrowerID,
		"Damage Penalty - Insufficient Tokens",
		fmt.Sprintf("Damage penalty: %d tokens. Paid: %d, Pending: %d", amount, transferred, remaining),
		"penalty", tx.ID)
	return nil
}
