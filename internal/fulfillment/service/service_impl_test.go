package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	invservice "github.com/cargovera/cargovera/internal/inventory/service"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerservice "github.com/cargovera/cargovera/internal/ledger/service"
	"github.com/cargovera/cargovera/internal/notify"
	"github.com/cargovera/cargovera/internal/testutil"
	userservice "github.com/cargovera/cargovera/internal/user/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (fulfilldomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	inventories := invservice.NewService(invservice.Params{DB: db, Log: log, Clock: clk})
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, Clock: clk})
	users := userservice.NewService(userservice.Params{DB: db, Log: log, Clock: clk, Ledger: ledger})

	dispatcher := notify.NewDispatcher(log)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	svc := NewService(Params{
		DB:          db,
		Log:         log,
		Clock:       clk,
		Inventories: inventories,
		Users:       users,
		Notifier:    notify.NoOp{},
		Dispatcher:  dispatcher,
	})
	return svc, db
}

func seedLabel(t *testing.T, db *gorm.DB, userID uuid.UUID, labelURL string) *labeldomain.Label {
	t.Helper()
	now := time.Now().UTC()
	label := &labeldomain.Label{
		ID:                uuid.New(),
		UserID:            userID,
		TrackingNumber:    uuid.NewString(),
		LabelURL:          labelURL,
		Carrier:           "fedex",
		ServiceType:       "FEDEX_GROUND",
		CostEstimateCents: 800,
		Status:            labeldomain.StatusNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, db.Create(label).Error)
	return label
}

func inventoryState(t *testing.T, db *gorm.DB, id uuid.UUID) invdomain.Inventory {
	t.Helper()
	var inv invdomain.Inventory
	require.NoError(t, db.First(&inv, "id = ?", id).Error)
	return inv
}

func TestCreateReservesAllItems(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	invA := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	invB := testutil.SeedInventory(t, db, owner.ID, holder.ID, 5, 0)

	request, err := svc.Create(context.Background(), fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items: []fulfilldomain.ItemInput{
			{InventoryID: invA.ID, Quantity: 4},
			{InventoryID: invB.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, fulfilldomain.StatusPending, request.Status)
	assert.Equal(t, holder.ID, request.HolderID)
	assert.Len(t, request.Items, 2)

	assert.Equal(t, int64(4), inventoryState(t, db, invA.ID).ReservedQty)
	assert.Equal(t, int64(2), inventoryState(t, db, invB.ID).ReservedQty)
}

func TestCreateRollsBackOnShortage(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	invA := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	invB := testutil.SeedInventory(t, db, owner.ID, holder.ID, 1, 0)

	_, err := svc.Create(context.Background(), fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items: []fulfilldomain.ItemInput{
			{InventoryID: invA.ID, Quantity: 4},
			{InventoryID: invB.ID, Quantity: 2},
		},
	})
	var notEnough invdomain.NotEnoughQuantityError
	require.True(t, errors.As(err, &notEnough))

	assert.Zero(t, inventoryState(t, db, invA.ID).ReservedQty, "partial reservation must roll back")
	assert.Zero(t, inventoryState(t, db, invB.ID).ReservedQty)

	var count int64
	require.NoError(t, db.Model(&fulfilldomain.FulfillmentRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRejectsMixedParties(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holderA := testutil.SeedUser(t, db, 0, 100)
	holderB := testutil.SeedUser(t, db, 0, 100)
	invA := testutil.SeedInventory(t, db, owner.ID, holderA.ID, 10, 0)
	invB := testutil.SeedInventory(t, db, owner.ID, holderB.ID, 10, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items: []fulfilldomain.ItemInput{
			{InventoryID: invA.ID, Quantity: 1},
			{InventoryID: invB.ID, Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, fulfilldomain.ErrMixedHolders)

	_, err = svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: holderA.ID,
		Items:   []fulfilldomain.ItemInput{{InventoryID: invA.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, fulfilldomain.ErrMixedOwners)

	_, err = svc.Create(ctx, fulfilldomain.CreateRequest{OwnerID: owner.ID})
	assert.ErrorIs(t, err, fulfilldomain.ErrEmptyItems)
}

func TestDeleteReleasesReservations(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	inv := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	ctx := context.Background()

	request, err := svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items:   []fulfilldomain.ItemInput{{InventoryID: inv.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, request.ID, holder.ID), fulfilldomain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, request.ID, owner.ID))
	assert.Zero(t, inventoryState(t, db, inv.ID).ReservedQty)

	_, err = svc.Get(ctx, request.ID)
	assert.ErrorIs(t, err, fulfilldomain.ErrNotFound)
}

func TestFulfillConsumesAndShipsLabels(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	inv := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	label := seedLabel(t, db, owner.ID, "labels/ORD-1/1.pdf")
	ctx := context.Background()

	request, err := svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items: []fulfilldomain.ItemInput{
			{InventoryID: inv.ID, Quantity: 4, LabelURLs: []string{label.LabelURL}},
		},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Fulfill(ctx, request.ID, owner.ID), fulfilldomain.ErrForbidden)

	require.NoError(t, svc.Fulfill(ctx, request.ID, holder.ID))

	state := inventoryState(t, db, inv.ID)
	assert.Equal(t, int64(6), state.AvailableQty)
	assert.Equal(t, int64(0), state.ReservedQty)

	var storedLabel labeldomain.Label
	require.NoError(t, db.First(&storedLabel, "id = ?", label.ID).Error)
	assert.Equal(t, labeldomain.StatusShipped, storedLabel.Status)

	got, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfilldomain.StatusFulfilled, got.Status)
	require.Len(t, got.Items, 1)
	assert.NotNil(t, got.Items[0].FulfilledAt)

	assert.ErrorIs(t, svc.Fulfill(ctx, request.ID, holder.ID), fulfilldomain.ErrNotPending)
}

func TestFulfillIsAtomicOnMissingLabel(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	invA := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	invB := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	ctx := context.Background()

	request, err := svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items: []fulfilldomain.ItemInput{
			{InventoryID: invA.ID, Quantity: 4},
			{InventoryID: invB.ID, Quantity: 2, LabelURLs: []string{"labels/missing/1.pdf"}},
		},
	})
	require.NoError(t, err)

	err = svc.Fulfill(ctx, request.ID, holder.ID)
	assert.ErrorIs(t, err, labeldomain.ErrNotFound)

	stateA := inventoryState(t, db, invA.ID)
	stateB := inventoryState(t, db, invB.ID)
	assert.Equal(t, int64(10), stateA.AvailableQty, "no inventory may be consumed when any label is missing")
	assert.Equal(t, int64(4), stateA.ReservedQty)
	assert.Equal(t, int64(10), stateB.AvailableQty)
	assert.Equal(t, int64(2), stateB.ReservedQty)

	got, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfilldomain.StatusPending, got.Status)
}

func TestListDefaultsToPending(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.SeedUser(t, db, 0, 100)
	holder := testutil.SeedUser(t, db, 0, 100)
	inv := testutil.SeedInventory(t, db, owner.ID, holder.ID, 10, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, fulfilldomain.CreateRequest{
		OwnerID: owner.ID,
		Items:   []fulfilldomain.ItemInput{{InventoryID: inv.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	asOwner, err := svc.List(ctx, fulfilldomain.ListRequest{UserID: owner.ID, Side: fulfilldomain.SideOwner})
	require.NoError(t, err)
	assert.Len(t, asOwner.Requests, 1)

	asHolder, err := svc.List(ctx, fulfilldomain.ListRequest{UserID: holder.ID, Side: fulfilldomain.SideHolder})
	require.NoError(t, err)
	assert.Len(t, asHolder.Requests, 1)

	fulfilled, err := svc.List(ctx, fulfilldomain.ListRequest{
		UserID: owner.ID,
		Side:   fulfilldomain.SideOwner,
		Status: fulfilldomain.StatusFulfilled,
	})
	require.NoError(t, err)
	assert.Empty(t, fulfilled.Requests)
}
