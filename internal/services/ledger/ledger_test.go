package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores/memstore"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

func newLedger(users ...*models.User) (*Service, *memstore.Store) {
	store := memstore.New()
	for _, u := range users {
		store.PutUser(u)
	}
	return NewService(store, keylock.New()), store
}

func user(tokens int) *models.User {
	return &models.User{ID: uuid.New(), Tokens: tokens}
}

func TestCreditAndDebit(t *testing.T) {
	u := user(100)
	svc, _ := newLedger(u)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, u.ID, 50))
	balance, err := svc.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, balance)

	require.NoError(t, svc.Debit(ctx, u.ID, 30))
	balance, err = svc.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, balance)
}

func TestNegativeAmountsRejected(t *testing.T) {
	u := user(100)
	svc, _ := newLedger(u)
	ctx := context.Background()

	assert.Error(t, svc.Credit(ctx, u.ID, -1))
	assert.Error(t, svc.Debit(ctx, u.ID, -1))
	assert.Error(t, svc.Transfer(ctx, u.ID, uuid.New(), -1))
}

func TestTransfer(t *testing.T) {
	a, b := user(100), user(20)
	svc, _ := newLedger(a, b)
	ctx := context.Background()

	require.NoError(t, svc.Transfer(ctx, a.ID, b.ID, 60))

	balA, _ := svc.Balance(ctx, a.ID)
	balB, _ := svc.Balance(ctx, b.ID)
	assert.Equal(t, 40, balA)
	assert.Equal(t, 80, balB)
}

func TestZeroAndTransferAvailable(t *testing.T) {
	a, b := user(35), user(0)
	svc, _ := newLedger(a, b)
	ctx := context.Background()

	transferred, err := svc.ZeroAndTransferAvailable(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, transferred)

	balA, _ := svc.Balance(ctx, a.ID)
	balB, _ := svc.Balance(ctx, b.ID)
	assert.Equal(t, 0, balA)
	assert.Equal(t, 35, balB)
}

func TestZeroAndTransferAvailableEmptyBalance(t *testing.T) {
	a, b := user(0), user(10)
	svc, _ := newLedger(a, b)

	transferred, err := svc.ZeroAndTransferAvailable(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, transferred)

	balB, _ := svc.Balance(context.Background(), b.ID)
	assert.Equal(t, 10, balB)
}

func TestUnknownUser(t *testing.T) {
	svc, _ := newLedger()
	_, err := svc.Balance(context.Background(), uuid.New())
	assert.Error(t, err)
}

var errStoreDown = errors.New("store unavailable")

// flakyAccounts fails the nth UpdateTokens call and passes everything
// else through to the wrapped store.
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

func TestTransferRestoresDebitWhenCreditFails(t *testing.T) {
	a, b := user(100), user(20)
	store := memstore.New()
	store.PutUser(a)
	store.PutUser(b)
	flaky := &flakyAccounts{Store: store, failOn: 2}
	svc := NewService(flaky, keylock.New())
	ctx := context.Background()

	err := svc.Transfer(ctx, a.ID, b.ID, 60)
	require.ErrorIs(t, err, errStoreDown)

	// The failed credit must not leave the debit behind.
	balA, _ := svc.Balance(ctx, a.ID)
	balB, _ := svc.Balance(ctx, b.ID)
	assert.Equal(t, 100, balA)
	assert.Equal(t, 20, balB)
}

func TestZeroAndTransferRestoresBalanceWhenCreditFails(t *testing.T) {
	a, b := user(35), user(5)
	store := memstore.New()
	store.PutUser(a)
	store.PutUser(b)
	flaky := &flakyAccounts{Store: store, failOn: 2}
	svc := NewService(flaky, keylock.New())
	ctx := context.Background()

	_, err := svc.ZeroAndTransferAvailable(ctx, a.ID, b.ID)
	require.ErrorIs(t, err, errStoreDown)

	balA, _ := svc.Balance(ctx, a.ID)
	balB, _ := svc.Balance(ctx, b.ID)
	assert.Equal(t, 35, balA)
	assert.Equal(t, 5, balB)
}

func TestConcurrentCreditsDoNotLoseUpdates(t *testing.T) {
	u := user(0)
	svc, _ := newLedger(u)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = svc.Credit(ctx, u.ID, 1)
		}()
	}
	wg.Wait()

	balance, err := svc.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, balance)
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	a, b := user(1000), user(1000)
	svc, _ := newLedger(a, b)
	ctx := context.Background()

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(2 * rounds)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			_ = svc.Transfer(ctx, a.ID, b.ID, 1)
		}()
		go func() {
			defer wg.Done()
			_ = svc.Transfer(ctx, b.ID, a.ID, 1)
		}()
	}
	wg.Wait()

	balA, _ := svc.Balance(ctx, a.ID)
	balB, _ := svc.Balance(ctx, b.ID)
	assert.Equal(t, 2000, balA+balB)
}
