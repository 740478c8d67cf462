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

// TransactionRepository persists rental transactions. Rows are never
// deleted; history survives account deletion.
type TransactionRepository struct {
	db *sql.DB
}

var _ stores.TransactionStore = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `id, item_id, borrower_id, owner_id, days, total_tokens, start_date, end_date,
	status, owner_confirmed_delivery, borrower_confirmed_delivery,
	owner_confirmed_return, borrower_confirmed_return, created_at`

func scanTx(scan func(dest ...interface{}) error) (*models.Transaction, error) {
	var t models.Transaction
	err := scan(&t.ID, &t.ItemID, &t.BorrowerID, &t.OwnerID, &t.Days, &t.TotalTokens,
		&t.StartDate, &t.EndDate, &t.Status,
		&t.OwnerConfirmedDelivery, &t.BorrowerConfirmedDelivery,
		&t.OwnerConfirmedReturn, &t.BorrowerConfirmedReturn, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, stores.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

// Get retrieves a transaction by ID.
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
	return scanTx(row.Scan)
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, item_id, borrower_id, owner_id, days, total_tokens,
			start_date, end_date, status, owner_confirmed_delivery, borrower_confirmed_delivery,
			owner_confirmed_return, borrower_confirmed_return, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.ItemID, t.BorrowerID, t.OwnerID, t.Days, t.TotalTokens,
		t.StartDate, t.EndDate, t.Status,
		t.OwnerConfirmedDelivery, t.BorrowerConfirmedDelivery,
		t.OwnerConfirmedReturn, t.BorrowerConfirmedReturn, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// UpdateStatus advances the transaction status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res)
}

// UpdateConfirmationFlags persists the dual-confirmation state.
func (r *TransactionRepository) UpdateConfirmationFlags(ctx context.Context, id uuid.UUID, flags models.ConfirmationFlags) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET owner_confirmed_delivery = $1, borrower_confirmed_delivery = $2,
			owner_confirmed_return = $3, borrower_confirmed_return = $4
		 WHERE id = $5`,
		flags.OwnerConfirmedDelivery, flags.BorrowerConfirmedDelivery,
		flags.OwnerConfirmedReturn, flags.BorrowerConfirmedReturn, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update confirmation flags: %w", err)
	}
	return requireRow(res)
}

// ListByUserAndStatus returns the user's transactions (either side),
// optionally narrowed to the given statuses.
func (r *TransactionRepository) ListByUserAndStatus(ctx context.Context, userID uuid.UUID, statuses ...models.TransactionStatus) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE (borrower_id = $1 OR owner_id = $1)`
	args := []interface{}{userID}
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		args = append(args, pq.Array(ss))
		query += ` AND status = ANY($2)`
	}
	query += ` ORDER BY created_at DESC`
	return r.queryTxs(ctx, query, args...)
}

// ListPendingForOwner returns pending requests awaiting the owner's
// decision.
func (r *TransactionRepository) ListPendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	return r.queryTxs(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE owner_id = $1 AND status = $2 ORDER BY created_at DESC`,
		ownerID, models.StatusPending)
}

// ListByBorrower returns all transactions where the user borrows.
func (r *TransactionRepository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]models.Transaction, error) {
	return r.queryTxs(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE borrower_id = $1 ORDER BY created_at DESC`,
		borrowerID)
}

// ListByOwner returns all transactions where the user lends.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	return r.queryTxs(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
}

// CountByUser returns total and completed transaction counts for the
// user as either party.
func (r *TransactionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, int, error) {
	var total, completed int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
		 FROM transactions WHERE borrower_id = $1 OR owner_id = $1`,
		userID, models.StatusCompleted,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, completed, nil
}

// HasActiveForItem reports whether the item has a transaction in a
// non-terminal pre-return state, which blocks item deletion.
func (r *TransactionRepository) HasActiveForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE item_id = $1 AND status = ANY($2))`,
		itemID, pq.Array(activeStatuses()),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active transactions: %w", err)
	}
	return exists, nil
}

// HasActiveForUser reports whether the user participates in any active
// transaction, which blocks account deletion.
func (r *TransactionRepository) HasActiveForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions
			WHERE (borrower_id = $1 OR owner_id = $1) AND status = ANY($2))`,
		userID, pq.Array(activeStatuses()),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active transactions: %w", err)
	}
	return exists, nil
}

func activeStatuses() []string {
	return []string{
		string(models.StatusPending),
		string(models.StatusApproved),
		string(models.StatusDelivered),
	}
}

func (r *TransactionRepository) queryTxs(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTx(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
