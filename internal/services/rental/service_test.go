package rental

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/services/ledger"
	"github.com/terminal-bench/lendvault/internal/services/penalty"
	"github.com/terminal-bench/lendvault/internal/services/reputation"
	"github.com/terminal-bench/lendvault/internal/stores/memstore"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

type fixture struct {
	svc      *Service
	store    *memstore.Store
	owner    *models.User
	borrower *models.User
	item     *models.Item
}

func newFixture(t *testing.T, borrowerTokens, itemValue, tokenPerDay int) *fixture {
	t.Helper()
	store := memstore.New()
	owner := &models.User{ID: uuid.New(), Username: "owner", Tokens: models.StartingTokens}
	borrower := &models.User{ID: uuid.New(), Username: "borrower", Tokens: borrowerTokens}
	store.PutUser(owner)
	store.PutUser(borrower)

	item := &models.Item{
		ID:          uuid.New(),
		Title:       "power drill",
		Value:       itemValue,
		TokenPerDay: tokenPerDay,
		OwnerID:     owner.ID,
		IsAvailable: true,
	}
	store.PutItem(item)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := keylock.New()
	ledg := ledger.NewService(store, locks)
	queue := penalty.NewQueue(store, store, store, store, locks, logger)
	rep := reputation.NewService(store, store, store)
	svc := NewService(store, store, store, ledg, queue, rep, store, logger)

	return &fixture{svc: svc, store: store, owner: owner, borrower: borrower, item: item}
}

func (f *fixture) request(t *testing.T, days int) *models.Transaction {
	t.Helper()
	tx, err := f.svc.Request(context.Background(), f.borrower.ID, RequestInput{
		ItemID:    f.item.ID,
		Days:      days,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, days),
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) tokens(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.Tokens
}

func (f *fixture) status(t *testing.T, txID uuid.UUID) models.TransactionStatus {
	t.Helper()
	tx, err := f.store.Get(context.Background(), txID)
	require.NoError(t, err)
	return tx.Status
}

var errStoreDown = errors.New("store unavailable")

// flakyAccounts fails the nth UpdateTokens call, simulating a transient
// store outage in the middle of a settlement.
type flakyAccounts struct {
	*memstore.Store
	calls  int
	failOn int
}

func (f *flakyAccounts) UpdateTokens(ctx context.Context, id uuid.UUID, balance int) error {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return errStoreDown
	}
	return f.Store.UpdateTokens(ctx, id, balance)
}

func newFlakyFixture(t *testing.T, borrowerTokens, itemValue, tokenPerDay int) (*fixture, *flakyAccounts) {
	t.Helper()
	store := memstore.New()
	owner := &models.User{ID: uuid.New(), Username: "owner", Tokens: models.StartingTokens}
	borrower := &models.User{ID: uuid.New(), Username: "borrower", Tokens: borrowerTokens}
	store.PutUser(owner)
	store.PutUser(borrower)

	item := &models.Item{
		ID:          uuid.New(),
		Title:       "power drill",
		Value:       itemValue,
		TokenPerDay: tokenPerDay,
		OwnerID:     owner.ID,
		IsAvailable: true,
	}
	store.PutItem(item)

	flaky := &flakyAccounts{Store: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := keylock.New()
	ledg := ledger.NewService(flaky, locks)
	queue := penalty.NewQueue(store, store, flaky, store, locks, logger)
	rep := reputation.NewService(flaky, store, store)
	svc := NewService(flaky, store, store, ledg, queue, rep, store, logger)

	return &fixture{svc: svc, store: store, owner: owner, borrower: borrower, item: item}, flaky
}

func TestRequestCreatesPendingTransaction(t *testing.T) {
	f := newFixture(t, 100, 900, 10)

	tx := f.request(t, 3)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, 30, tx.TotalTokens)

	// Request reserves nothing; tokens move at delivery.
	assert.Equal(t, 100, f.tokens(t, f.borrower.ID))

	notices := f.store.Notifications(f.owner.ID)
	require.Len(t, notices, 1)
	assert.Equal(t, "request", notices[0].Kind)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.borrower.ID, RequestInput{ItemID: f.item.ID, Days: 0})
	assert.Error(t, err)

	_, err = f.svc.Request(ctx, f.owner.ID, RequestInput{ItemID: f.item.ID, Days: 3})
	assert.ErrorIs(t, err, ErrOwnItem)

	// 11 days at 10/day exceeds the borrower's 100 tokens.
	_, err = f.svc.Request(ctx, f.borrower.ID, RequestInput{ItemID: f.item.ID, Days: 11})
	assert.ErrorIs(t, err, ErrInsufficientTokens)

	_, err = f.svc.Request(ctx, f.borrower.ID, RequestInput{ItemID: uuid.New(), Days: 3})
	assert.Error(t, err)
}

func TestApproveIsOwnerOnly(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()

	err := f.svc.Approve(ctx, f.borrower.ID, tx.ID)
	assert.ErrorIs(t, err, ErrOwnerOnly)

	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	assert.Equal(t, models.StatusApproved, f.status(t, tx.ID))

	// Approved is no longer pending; deciding again is a conflict.
	err = f.svc.Approve(ctx, f.owner.ID, tx.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, f.owner.ID, tx.ID))
	assert.Equal(t, models.StatusRejected, f.status(t, tx.ID))

	err := f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDeliveryRequiresBothConfirmations(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	assert.Equal(t, models.StatusApproved, f.status(t, tx.ID))
	assert.Equal(t, 100, f.tokens(t, f.borrower.ID))

	// Same party confirming again changes nothing.
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	assert.Equal(t, models.StatusApproved, f.status(t, tx.ID))

	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))
	assert.Equal(t, models.StatusDelivered, f.status(t, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30, f.tokens(t, f.owner.ID))
}

func TestDeliverySettlesExactlyOnce(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	// Repeat confirmations after settlement are no-ops.
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30, f.tokens(t, f.owner.ID))
}

func TestConcurrentDeliveryConfirmations(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID)
	}()
	go func() {
		defer wg.Done()
		_ = f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID)
	}()
	wg.Wait()

	assert.Equal(t, models.StatusDelivered, f.status(t, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30, f.tokens(t, f.owner.ID))
}

func TestDeliveryShortfallCreatesPenalty(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))

	// Balance drops below the rental price between approval and delivery.
	require.NoError(t, f.store.UpdateTokens(ctx, f.borrower.ID, 12))

	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	assert.Equal(t, models.StatusDelivered, f.status(t, tx.ID))
	assert.Equal(t, 0, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+12, f.tokens(t, f.owner.ID))

	unpaid, err := f.store.ListUnpaidByUser(ctx, f.borrower.ID)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, 18, unpaid[0].Amount)
}

// A settlement that fails after both confirmation flags are persisted
// must be retried by the next confirmation call, not swallowed as
// already done.
func TestDeliverySettlementRetriedAfterStoreFailure(t *testing.T) {
	f, flaky := newFlakyFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))

	flaky.failOn = flaky.calls + 1
	err := f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID)
	require.ErrorIs(t, err, errStoreDown)

	// Flags are persisted but the settlement did not run; the
	// transaction must still be retryable.
	got, getErr := f.store.Get(ctx, tx.ID)
	require.NoError(t, getErr)
	assert.True(t, got.OwnerConfirmedDelivery)
	assert.True(t, got.BorrowerConfirmedDelivery)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, 100, f.tokens(t, f.borrower.ID))

	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))
	assert.Equal(t, models.StatusDelivered, f.status(t, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30, f.tokens(t, f.owner.ID))

	// And the retry settled exactly once.
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))
}

func TestReturnSettlementRetriedAfterStoreFailure(t *testing.T) {
	f, flaky := newFlakyFixture(t, 1000, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeverityNone))

	flaky.failOn = flaky.calls + 1
	err := f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityMedium)
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, models.StatusDelivered, f.status(t, tx.ID))

	require.NoError(t, f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityMedium))
	assert.Equal(t, models.StatusCompleted, f.status(t, tx.ID))
	assert.Equal(t, 1000-30-300, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30+300, f.tokens(t, f.owner.ID))

	// One receipt, no double charge.
	all, listErr := f.store.ListByUser(ctx, f.borrower.ID)
	require.NoError(t, listErr)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsPaid)
}

func TestReturnWithoutDamageCompletes(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeverityNone))
	require.NoError(t, f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityNone))

	assert.Equal(t, models.StatusCompleted, f.status(t, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))

	// Completion refreshes both parties' success rates.
	borrower, _ := f.store.GetUser(ctx, f.borrower.ID)
	assert.InDelta(t, 100, borrower.SuccessRate, 1e-9)
}

func TestReturnDamagePaidInFull(t *testing.T) {
	// Item value 900; medium damage assesses 900/3 = 300.
	f := newFixture(t, 1000, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeverityNone))
	require.NoError(t, f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityMedium))

	assert.Equal(t, models.StatusCompleted, f.status(t, tx.ID))
	assert.Equal(t, 1000-30-300, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30+300, f.tokens(t, f.owner.ID))

	// Full payment leaves a receipt, not a debt.
	all, err := f.store.ListByUser(ctx, f.borrower.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsPaid)
	unpaid, err := f.store.ListUnpaidByUser(ctx, f.borrower.ID)
	require.NoError(t, err)
	assert.Empty(t, unpaid)
}

func TestReturnDamageShortfall(t *testing.T) {
	// After paying 30 at delivery the borrower holds 70, far short of
	// the 300 medium-damage assessment.
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeverityNone))
	require.NoError(t, f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityMedium))

	assert.Equal(t, models.StatusCompleted, f.status(t, tx.ID))
	assert.Equal(t, 0, f.tokens(t, f.borrower.ID))
	assert.Equal(t, models.StartingTokens+30+70, f.tokens(t, f.owner.ID))

	unpaid, err := f.store.ListUnpaidByUser(ctx, f.borrower.ID)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, 230, unpaid[0].Amount)
}

// Damage is honored only when the owner's confirmation closes the
// gate; a severity sent by the borrower, or by the owner confirming
// first, never charges anything.
func TestDamageIgnoredUnlessOwnerClosesGate(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.borrower.ID, tx.ID))
	require.NoError(t, f.svc.ConfirmDelivery(ctx, f.owner.ID, tx.ID))

	require.NoError(t, f.svc.ConfirmReturn(ctx, f.owner.ID, tx.ID, models.SeverityHigh))
	require.NoError(t, f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeveritySevere))

	assert.Equal(t, models.StatusCompleted, f.status(t, tx.ID))
	assert.Equal(t, 70, f.tokens(t, f.borrower.ID))

	unpaid, err := f.store.ListUnpaidByUser(ctx, f.borrower.ID)
	require.NoError(t, err)
	assert.Empty(t, unpaid)
}

func TestReturnRequiresDeliveredState(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()

	err := f.svc.ConfirmReturn(ctx, f.borrower.ID, tx.ID, models.SeverityNone)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOutsiderCannotConfirm(t *testing.T) {
	f := newFixture(t, 100, 900, 10)
	tx := f.request(t, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, f.owner.ID, tx.ID))

	stranger := uuid.New()
	err := f.svc.ConfirmDelivery(ctx, stranger, tx.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
	err = f.svc.ConfirmReturn(ctx, stranger, tx.ID, models.SeverityNone)
	assert.ErrorIs(t, err, ErrNotParticipant)
}
