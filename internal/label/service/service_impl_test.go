package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/clock"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	ledgerservice "github.com/cargovera/cargovera/internal/ledger/service"
	"github.com/cargovera/cargovera/internal/money"
	"github.com/cargovera/cargovera/internal/storage"
	"github.com/cargovera/cargovera/internal/testutil"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	userservice "github.com/cargovera/cargovera/internal/user/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeGateway quotes canned rates and records buy/cancel calls.
type fakeGateway struct {
	code      carrier.Code
	rates     []carrier.Rate
	ratesErr  error
	pieces    []carrier.PurchasedLabel
	buyErr    error
	cancelErr error
	buyCalls  int
	cancelled []string
	validated int
}

func (g *fakeGateway) Code() carrier.Code { return g.code }

func (g *fakeGateway) GetRates(_ context.Context, _ carrier.RateRequest) ([]carrier.Rate, error) {
	if g.ratesErr != nil {
		return nil, g.ratesErr
	}
	return g.rates, nil
}

func (g *fakeGateway) BuyLabel(_ context.Context, _ carrier.BuyRequest) ([]carrier.PurchasedLabel, error) {
	g.buyCalls++
	if g.buyErr != nil {
		return nil, g.buyErr
	}
	return g.pieces, nil
}

func (g *fakeGateway) CancelLabel(_ context.Context, trackingNumber string) error {
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, trackingNumber)
	return nil
}

func (g *fakeGateway) ValidateShipment(_ context.Context, _ carrier.RateRequest) error {
	g.validated++
	return nil
}

func newService(t *testing.T, gateways ...carrier.Gateway) (labeldomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	registry := carrier.NewRegistry()
	for _, gw := range gateways {
		registry.Register(gw)
	}

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, Clock: clk})
	users := userservice.NewService(userservice.Params{DB: db, Log: log, Clock: clk, Ledger: ledger})

	svc := NewService(Params{
		DB:       db,
		Log:      log,
		Clock:    clk,
		Registry: registry,
		Users:    users,
		Ledger:   ledger,
		Store:    storage.NewMemory(),
	})
	return svc, db
}

func buyRequest(userID uuid.UUID, code carrier.Code, serviceType string) labeldomain.BuyLabelRequest {
	return labeldomain.BuyLabelRequest{
		UserID:      userID,
		Carrier:     code,
		ServiceType: serviceType,
		Shipper:     carrier.Address{Name: "Warehouse", City: "Oakland", State: "CA", PostalCode: "94607", Country: "US"},
		Recipient:   carrier.Address{Name: "Buyer", City: "Denver", State: "CO", PostalCode: "80202", Country: "US"},
		Packages:    []carrier.Package{{WeightLbs: 2}},
	}
}

func TestBuyLabelDebitsEstimate(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{{
			TrackingNumber: "794000000001",
			BaseRate:       money.FromMinorUnits(800),
			Document:       []byte("label-bytes"),
			Format:         "pdf",
		}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)

	labels, err := svc.BuyLabel(context.Background(), buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "794000000001", labels[0].TrackingNumber)
	assert.Equal(t, int64(800), labels[0].CostEstimateCents)
	assert.Equal(t, labeldomain.StatusNew, labels[0].Status)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(200), stored.BalanceCents)

	var trans ledgerdomain.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&trans).Error)
	assert.Equal(t, int64(-800), trans.AmountCents)
	assert.Equal(t, int64(200), trans.NewBalanceCents)
	assert.Equal(t, ledgerdomain.TypeUsage, trans.Type)
}

func TestBuyLabelAppliesMultiplier(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{{
			TrackingNumber: "794000000002",
			BaseRate:       money.FromMinorUnits(800),
		}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 2000, 125)

	labels, err := svc.BuyLabel(context.Background(), buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, int64(1000), labels[0].CostEstimateCents, "800 cents at 1.25 charges 1000")
	require.NotNil(t, labels[0].CostActualCents)
	assert.Equal(t, int64(800), *labels[0].CostActualCents)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1000), stored.BalanceCents)
}

func TestBuyLabelInsufficientBalance(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(1200), Currency: "USD"}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)

	_, err := svc.BuyLabel(context.Background(), buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	var insufficient ledgerdomain.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(1000), insufficient.Available.MinorUnits())
	assert.Equal(t, int64(1200), insufficient.Required.MinorUnits())

	assert.Zero(t, gw.buyCalls, "carrier must not be charged when the balance check fails")

	var count int64
	require.NoError(t, db.Model(&labeldomain.Label{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBuyLabelUnknownServiceType(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 5000, 100)

	_, err := svc.BuyLabel(context.Background(), buyRequest(user.ID, carrier.CodeFedEx, "PRIORITY_OVERNIGHT"))
	var notAvailable labeldomain.RateNotAvailableError
	require.True(t, errors.As(err, &notAvailable))
	assert.Equal(t, "PRIORITY_OVERNIGHT", notAvailable.ServiceType)
	assert.Zero(t, gw.buyCalls)
}

func TestBuyLabelMultiPieceDebitsPerPiece(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(900), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{
			{TrackingNumber: "794000000003", BaseRate: money.FromMinorUnits(500)},
			{TrackingNumber: "794000000004", BaseRate: money.FromMinorUnits(400)},
		},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 2000, 100)

	req := buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND")
	req.OrderNumber = "ORD-77"
	req.Packages = append(req.Packages, carrier.Package{WeightLbs: 3})

	labels, err := svc.BuyLabel(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "labels/ORD-77/1.pdf", labels[0].LabelURL)
	assert.Equal(t, "labels/ORD-77/2.pdf", labels[1].LabelURL)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1100), stored.BalanceCents)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCancelLabelRefundsOnce(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{{
			TrackingNumber: "794000000005",
			BaseRate:       money.FromMinorUnits(800),
		}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)
	ctx := context.Background()

	_, err := svc.BuyLabel(ctx, buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	require.NoError(t, err)

	cancelled, err := svc.CancelLabel(ctx, user.ID, carrier.CodeFedEx, "794000000005")
	require.NoError(t, err)
	assert.Equal(t, labeldomain.StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{"794000000005"}, gw.cancelled)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1000), stored.BalanceCents, "refund restores the full estimate")

	_, err = svc.CancelLabel(ctx, user.ID, carrier.CodeFedEx, "794000000005")
	assert.ErrorIs(t, err, labeldomain.ErrAlreadyCancelled)

	var refunds int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).
		Where("user_id = ? AND trans_type = ?", user.ID, ledgerdomain.TypeRefund).
		Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)
}

func TestCancelLabelCarrierFailureLeavesStateUntouched(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{{
			TrackingNumber: "794000000006",
			BaseRate:       money.FromMinorUnits(800),
		}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)
	ctx := context.Background()

	_, err := svc.BuyLabel(ctx, buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	require.NoError(t, err)

	gw.cancelErr = &carrier.ServerError{Carrier: carrier.CodeFedEx, StatusCode: 503, Message: "unavailable"}
	_, err = svc.CancelLabel(ctx, user.ID, carrier.CodeFedEx, "794000000006")
	var serverErr *carrier.ServerError
	require.True(t, errors.As(err, &serverErr))

	var label labeldomain.Label
	require.NoError(t, db.First(&label, "tracking_number = ?", "794000000006").Error)
	assert.Equal(t, labeldomain.StatusNew, label.Status)

	var stored userdomain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(200), stored.BalanceCents, "no refund on carrier failure")
}

func TestCancelLabelUnknownTracking(t *testing.T) {
	gw := &fakeGateway{code: carrier.CodeFedEx}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)

	_, err := svc.CancelLabel(context.Background(), user.ID, carrier.CodeFedEx, "nope")
	assert.ErrorIs(t, err, labeldomain.ErrNotFound)
	assert.Empty(t, gw.cancelled, "carrier cancel must not fire for an unknown label")
}

func TestGetRatesAppliesMultiplierAndSorts(t *testing.T) {
	fedex := &fakeGateway{
		code: carrier.CodeFedEx,
		rates: []carrier.Rate{
			{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"},
			{ServiceType: "PRIORITY_OVERNIGHT", TotalCharge: money.FromMinorUnits(2400), Currency: "USD"},
		},
	}
	usps := &fakeGateway{
		code: carrier.CodeUSPS,
		rates: []carrier.Rate{
			{ServiceType: "PRIORITY_MAIL", TotalCharge: money.FromMinorUnits(650), Currency: "USD"},
		},
	}
	svc, db := newService(t, fedex, usps)
	user := testutil.SeedUser(t, db, 0, 150)

	quoted, err := svc.GetRates(context.Background(), user.ID, carrier.RateRequest{
		Packages: []carrier.Package{{WeightLbs: 2}},
	})
	require.NoError(t, err)
	require.Len(t, quoted, 3)

	assert.Equal(t, carrier.CodeUSPS, quoted[0].Carrier)
	assert.Equal(t, int64(975), quoted[0].TotalChargeCents, "650 cents at 1.50")
	assert.Equal(t, int64(1200), quoted[1].TotalChargeCents)
	assert.Equal(t, int64(3600), quoted[2].TotalChargeCents)
}

func TestGetRatesSkipsFailingCarrier(t *testing.T) {
	healthy := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
	}
	broken := &fakeGateway{
		code:     carrier.CodeUSPS,
		ratesErr: &carrier.ServerError{Carrier: carrier.CodeUSPS, StatusCode: 500, Message: "boom"},
	}
	single := &fakeGateway{
		code:     carrier.CodeUPS,
		ratesErr: carrier.ErrMultiPackageUnsupported,
	}
	svc, db := newService(t, healthy, broken, single)
	user := testutil.SeedUser(t, db, 0, 100)

	quoted, err := svc.GetRates(context.Background(), user.ID, carrier.RateRequest{
		Packages: []carrier.Package{{WeightLbs: 2}, {WeightLbs: 3}},
	})
	require.NoError(t, err)
	require.Len(t, quoted, 1)
	assert.Equal(t, carrier.CodeFedEx, quoted[0].Carrier)
}

func TestBuyLabelUnknownCarrier(t *testing.T) {
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, 1000, 100)

	_, err := svc.BuyLabel(context.Background(), buyRequest(user.ID, carrier.CodeOther, "ANY"))
	assert.ErrorIs(t, err, carrier.ErrUnknownCarrier)
}

func TestListDefaultsToNew(t *testing.T) {
	gw := &fakeGateway{
		code:  carrier.CodeFedEx,
		rates: []carrier.Rate{{ServiceType: "FEDEX_GROUND", TotalCharge: money.FromMinorUnits(800), Currency: "USD"}},
		pieces: []carrier.PurchasedLabel{{
			TrackingNumber: "794000000007",
			BaseRate:       money.FromMinorUnits(800),
		}},
	}
	svc, db := newService(t, gw)
	user := testutil.SeedUser(t, db, 1000, 100)
	ctx := context.Background()

	_, err := svc.BuyLabel(ctx, buyRequest(user.ID, carrier.CodeFedEx, "FEDEX_GROUND"))
	require.NoError(t, err)

	fresh, err := svc.List(ctx, labeldomain.ListLabelsRequest{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, fresh.Labels, 1)

	_, err = svc.CancelLabel(ctx, user.ID, carrier.CodeFedEx, "794000000007")
	require.NoError(t, err)

	fresh, err = svc.List(ctx, labeldomain.ListLabelsRequest{UserID: user.ID})
	require.NoError(t, err)
	assert.Empty(t, fresh.Labels)

	cancelled, err := svc.List(ctx, labeldomain.ListLabelsRequest{UserID: user.ID, Status: labeldomain.StatusCancelled})
	require.NoError(t, err)
	assert.Len(t, cancelled.Labels, 1)
}
