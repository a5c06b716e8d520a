package service

import (
	"context"
	"testing"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	ledgerservice "github.com/cargovera/cargovera/internal/ledger/service"
	"github.com/cargovera/cargovera/internal/money"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	"github.com/cargovera/cargovera/internal/payment/gateway"
	"github.com/cargovera/cargovera/internal/testutil"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	userservice "github.com/cargovera/cargovera/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (paydomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, Clock: clk})
	users := userservice.NewService(userservice.Params{DB: db, Log: log, Clock: clk, Ledger: ledger})

	svc := NewService(Params{
		DB:      db,
		Log:     log,
		Clock:   clk,
		Gateway: gateway.NewStub(),
		Users:   users,
		Ledger:  ledger,
	})
	return svc, db
}

func balance(t *testing.T, db *gorm.DB, user *userdomain.User) int64 {
	t.Helper()
	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	return stored.BalanceCents
}

func TestDepositWebhookCreditsOnce(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	payment, err := svc.CreateDeposit(ctx, user.ID, money.FromMinorUnits(2500))
	require.NoError(t, err)
	assert.Equal(t, paydomain.StatusInitiated, payment.Status)
	assert.NotEmpty(t, payment.IntentID)
	assert.Zero(t, balance(t, db, user), "balance moves on the webhook, not the intent")

	event := paydomain.WebhookEvent{
		IntentID:    payment.IntentID,
		Status:      paydomain.EventSucceeded,
		AmountCents: 2500,
		UserID:      user.ID,
	}
	require.NoError(t, svc.HandleWebhook(ctx, event))
	assert.Equal(t, int64(2500), balance(t, db, user))

	var stored paydomain.Payment
	require.NoError(t, db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, paydomain.StatusSuccess, stored.Status)

	var trans ledgerdomain.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&trans).Error)
	assert.Equal(t, ledgerdomain.TypeDeposit, trans.Type)
	assert.Equal(t, int64(2500), trans.AmountCents)
}

func TestWebhookRedeliveryIsNoOp(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	payment, err := svc.CreateDeposit(ctx, user.ID, money.FromMinorUnits(2500))
	require.NoError(t, err)

	event := paydomain.WebhookEvent{
		IntentID:    payment.IntentID,
		Status:      paydomain.EventSucceeded,
		AmountCents: 2500,
		UserID:      user.ID,
	}
	require.NoError(t, svc.HandleWebhook(ctx, event))
	require.NoError(t, svc.HandleWebhook(ctx, event))
	require.NoError(t, svc.HandleWebhook(ctx, event))

	assert.Equal(t, int64(2500), balance(t, db, user), "redelivery must not credit twice")

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebhookFailureMarksPayment(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	payment, err := svc.CreateDeposit(ctx, user.ID, money.FromMinorUnits(1000))
	require.NoError(t, err)

	require.NoError(t, svc.HandleWebhook(ctx, paydomain.WebhookEvent{
		IntentID: payment.IntentID,
		Status:   paydomain.EventFailed,
	}))

	var stored paydomain.Payment
	require.NoError(t, db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, paydomain.StatusFailure, stored.Status)
	assert.Zero(t, balance(t, db, user))

	// A success event after a recorded failure is still a no-op.
	require.NoError(t, svc.HandleWebhook(ctx, paydomain.WebhookEvent{
		IntentID: payment.IntentID,
		Status:   paydomain.EventSucceeded,
	}))
	assert.Zero(t, balance(t, db, user))
}

func TestWebhookUnknownIntent(t *testing.T) {
	svc, _ := newService(t)

	err := svc.HandleWebhook(context.Background(), paydomain.WebhookEvent{
		IntentID: "pi_missing",
		Status:   paydomain.EventSucceeded,
	})
	assert.ErrorIs(t, err, paydomain.ErrNotFound)
}

func TestCreateDepositValidation(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 0, 100)
	ctx := context.Background()

	_, err := svc.CreateDeposit(ctx, user.ID, money.FromMinorUnits(0))
	assert.ErrorIs(t, err, paydomain.ErrInvalidAmount)

	_, err = svc.CreateDeposit(ctx, user.ID, money.FromMinorUnits(-100))
	assert.ErrorIs(t, err, paydomain.ErrInvalidAmount)
}
