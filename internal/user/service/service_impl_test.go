package service

import (
	"context"
	"testing"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	ledgerservice "github.com/cargovera/cargovera/internal/ledger/service"
	"github.com/cargovera/cargovera/internal/money"
	"github.com/cargovera/cargovera/internal/testutil"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (userdomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, Clock: clk})
	svc := NewService(Params{DB: db, Log: log, Clock: clk, Ledger: ledger})
	return svc, db
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, userdomain.MinMultiplier, user.Multiplier)
	assert.Zero(t, user.BalanceCents)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.Create(ctx, "Other", "ada@example.com")
	assert.ErrorIs(t, err, userdomain.ErrEmailExists)
}

func TestUpdateMultiplierBounds(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	require.NoError(t, svc.UpdateMultiplier(ctx, user.ID, 150))

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Multiplier(150), got.Multiplier)

	assert.ErrorIs(t, svc.UpdateMultiplier(ctx, user.ID, 99), userdomain.ErrMultiplierOutOfRange)
	assert.ErrorIs(t, svc.UpdateMultiplier(ctx, user.ID, 200), userdomain.ErrMultiplierOutOfRange)
}

func TestAdjust(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 500, 100)
	ctx := context.Background()

	require.NoError(t, svc.Adjust(ctx, user.ID, money.FromMinorUnits(250), "goodwill"))
	require.NoError(t, svc.Adjust(ctx, user.ID, money.FromMinorUnits(-100), "correction"))

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(650), got.BalanceCents)

	var transactions []*ledgerdomain.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("new_balance_cents").Find(&transactions).Error)
	require.Len(t, transactions, 2)
	for _, trans := range transactions {
		assert.Equal(t, ledgerdomain.TypeAdjustment, trans.Type)
	}

	assert.ErrorIs(t, svc.Adjust(ctx, user.ID, money.FromMinorUnits(0), ""), userdomain.ErrZeroAdjustment)
}
