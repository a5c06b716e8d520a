package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	"github.com/cargovera/cargovera/internal/testutil"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (ledgerdomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func TestCreditThenDebit(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	credit, err := svc.Credit(ctx, user.ID, money.FromMinorUnits(1000), ledgerdomain.TypeDeposit, "initial deposit")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credit.AmountCents)
	assert.Equal(t, int64(1000), credit.NewBalanceCents)

	debit, err := svc.Debit(ctx, user.ID, money.FromMinorUnits(800), ledgerdomain.TypeUsage, "label purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(-800), debit.AmountCents)
	assert.Equal(t, int64(200), debit.NewBalanceCents)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(200), stored.BalanceCents)

	// Balance must equal the sum of signed amounts.
	var sum int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).
		Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&sum).Error)
	assert.Equal(t, stored.BalanceCents, sum)
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 1000, 100)

	_, err := svc.Debit(context.Background(), user.ID, money.FromMinorUnits(1200), ledgerdomain.TypeUsage, "too big")
	var insufficient ledgerdomain.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(1000), insufficient.Available.MinorUnits())
	assert.Equal(t, int64(1200), insufficient.Required.MinorUnits())

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1000), stored.BalanceCents)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count, "failed debit must not insert a transaction")
}

func TestCreditUnknownUser(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Credit(context.Background(), uuid.New(), money.FromMinorUnits(100), ledgerdomain.TypeDeposit, "")
	assert.ErrorIs(t, err, ledgerdomain.ErrUserNotFound)
}

func TestInvalidAmountAndType(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 1000, 100)
	ctx := context.Background()

	_, err := svc.Credit(ctx, user.ID, money.FromMinorUnits(0), ledgerdomain.TypeDeposit, "")
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	_, err = svc.Debit(ctx, user.ID, money.FromMinorUnits(-50), ledgerdomain.TypeUsage, "")
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	_, err = svc.Credit(ctx, user.ID, money.FromMinorUnits(100), ledgerdomain.TransactionType("bogus"), "")
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidType)
}

func TestRunningBalanceSnapshots(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	amounts := []int64{500, 300, 1200}
	running := int64(0)
	for _, cents := range amounts {
		trans, err := svc.Credit(ctx, user.ID, money.FromMinorUnits(cents), ledgerdomain.TypeDeposit, "")
		require.NoError(t, err)
		running += cents
		assert.Equal(t, running, trans.NewBalanceCents)
	}

	_, err := svc.Debit(ctx, user.ID, money.FromMinorUnits(700), ledgerdomain.TypeUsage, "")
	require.NoError(t, err)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, running-700, stored.BalanceCents)
}

func TestListTransactionsFilters(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	_, err := svc.Credit(ctx, user.ID, money.FromMinorUnits(1000), ledgerdomain.TypeDeposit, "")
	require.NoError(t, err)
	_, err = svc.Debit(ctx, user.ID, money.FromMinorUnits(300), ledgerdomain.TypeUsage, "")
	require.NoError(t, err)
	_, err = svc.Credit(ctx, user.ID, money.FromMinorUnits(300), ledgerdomain.TypeRefund, "")
	require.NoError(t, err)

	all, err := svc.ListTransactions(ctx, ledgerdomain.ListTransactionsRequest{UserID: user.ID})
	require.NoError(t, err)
	assert.Len(t, all.Transactions, 3)
	assert.Equal(t, int64(3), all.Pagination.TotalItems)

	usage, err := svc.ListTransactions(ctx, ledgerdomain.ListTransactionsRequest{
		UserID: user.ID,
		Type:   ledgerdomain.TypeUsage,
	})
	require.NoError(t, err)
	require.Len(t, usage.Transactions, 1)
	assert.Equal(t, int64(-300), usage.Transactions[0].AmountCents)
}
