package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/clock"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	"github.com/cargovera/cargovera/internal/storage"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Registry   *carrier.Registry
	Users      userdomain.Service
	Ledger     ledgerdomain.Service
	Store      storage.Store
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	registry   *carrier.Registry
	users      userdomain.Service
	ledger     ledgerdomain.Service
	store      storage.Store
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) labeldomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("label.service"),
		clock:      p.Clock,
		registry:   p.Registry,
		users:      p.Users,
		ledger:     p.Ledger,
		store:      p.Store,
		obsMetrics: p.ObsMetrics,
	}
}

// GetRates fans out to every registered carrier concurrently. A carrier that
// cannot quote the shipment is skipped, not fatal.
func (s *Service) GetRates(ctx context.Context, userID uuid.UUID, req carrier.RateRequest) ([]labeldomain.QuotedRate, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	gateways := s.registry.All()
	results := make([][]labeldomain.QuotedRate, len(gateways))

	var wg sync.WaitGroup
	for i, gw := range gateways {
		wg.Add(1)
		go func(i int, gw carrier.Gateway) {
			defer wg.Done()

			rates, err := gw.GetRates(ctx, req)
			if err != nil {
				if errors.Is(err, carrier.ErrMultiPackageUnsupported) {
					s.log.Debug("carrier skipped for multi-package shipment",
						zap.String("carrier", string(gw.Code())))
				} else {
					s.log.Warn("carrier rate lookup failed",
						zap.String("carrier", string(gw.Code())), zap.Error(err))
				}
				return
			}
			results[i] = s.quote(gw.Code(), rates, user.Multiplier)
		}(i, gw)
	}
	wg.Wait()

	var quoted []labeldomain.QuotedRate
	for _, rs := range results {
		quoted = append(quoted, rs...)
	}
	sort.Slice(quoted, func(i, j int) bool {
		if quoted[i].TotalChargeCents != quoted[j].TotalChargeCents {
			return quoted[i].TotalChargeCents < quoted[j].TotalChargeCents
		}
		if quoted[i].Carrier != quoted[j].Carrier {
			return quoted[i].Carrier < quoted[j].Carrier
		}
		return quoted[i].ServiceType < quoted[j].ServiceType
	})
	return quoted, nil
}

func (s *Service) quote(code carrier.Code, rates []carrier.Rate, multiplier money.Multiplier) []labeldomain.QuotedRate {
	out := make([]labeldomain.QuotedRate, 0, len(rates))
	for _, r := range rates {
		charged, err := r.TotalCharge.MulMultiplier(multiplier)
		if err != nil {
			s.log.Warn("dropping unpriceable rate",
				zap.String("carrier", string(code)),
				zap.String("service_type", r.ServiceType),
				zap.Error(err))
			continue
		}
		out = append(out, labeldomain.QuotedRate{
			Carrier:          code,
			ServiceType:      r.ServiceType,
			TotalCharge:      charged,
			TotalChargeCents: charged.MinorUnits(),
			Currency:         r.Currency,
			DeliveryEstimate: r.DeliveryEstimate,
		})
	}
	return out
}

func (s *Service) BuyLabel(ctx context.Context, req labeldomain.BuyLabelRequest) ([]*labeldomain.Label, error) {
	gw, err := s.registry.Get(req.Carrier)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	rateReq := carrier.RateRequest{
		Shipper:   req.Shipper,
		Recipient: req.Recipient,
		Packages:  req.Packages,
		ShipDate:  req.ShipDate,
	}
	rates, err := gw.GetRates(ctx, rateReq)
	if err != nil {
		return nil, err
	}

	var current *carrier.Rate
	for i := range rates {
		if rates[i].ServiceType == req.ServiceType {
			current = &rates[i]
			break
		}
	}
	if current == nil {
		return nil, labeldomain.RateNotAvailableError{ServiceType: req.ServiceType}
	}

	estimate, err := current.TotalCharge.MulMultiplier(user.Multiplier)
	if err != nil {
		return nil, err
	}

	// Balance pre-check happens before any carrier mutation so a label is
	// never purchased for a user who cannot pay. The authoritative check is
	// the locked debit below.
	if user.Balance().Cmp(estimate) < 0 {
		return nil, ledgerdomain.InsufficientBalanceError{
			Available: user.Balance(),
			Required:  estimate,
		}
	}

	pieces, err := gw.BuyLabel(ctx, carrier.BuyRequest{
		Shipper:     req.Shipper,
		Recipient:   req.Recipient,
		ServiceType: req.ServiceType,
		Packages:    req.Packages,
		ShipDate:    req.ShipDate,
		Options:     req.Options,
	})
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, &carrier.ServerError{Carrier: req.Carrier, Message: "carrier returned no label pieces"}
	}

	keys, err := s.storeDocuments(ctx, req, pieces)
	if err != nil {
		return nil, err
	}

	var labels []*labeldomain.Label
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		for i, piece := range pieces {
			cost, err := piece.BaseRate.MulMultiplier(user.Multiplier)
			if err != nil {
				return err
			}

			if _, err := s.ledger.DebitTx(ctx, tx, req.UserID, cost, ledgerdomain.TypeUsage,
				fmt.Sprintf("label %s", piece.TrackingNumber)); err != nil {
				return err
			}

			label := &labeldomain.Label{
				ID:                uuid.New(),
				UserID:            req.UserID,
				OrderNumber:       req.OrderNumber,
				TrackingNumber:    piece.TrackingNumber,
				LabelURL:          keys[i],
				Carrier:           req.Carrier,
				ServiceType:       req.ServiceType,
				CostEstimateCents: cost.MinorUnits(),
				Status:            labeldomain.StatusNew,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if actual := piece.BaseRate.MinorUnits(); actual > 0 {
				label.CostActualCents = &actual
			}
			if err := tx.Create(label).Error; err != nil {
				return fmt.Errorf("insert label: %w", err)
			}
			labels = append(labels, label)
		}

		if req.OrderNumber != "" {
			if err := tx.Exec(
				`UPDATE orders SET status = ?, updated_at = ? WHERE order_number = ? AND user_id = ?`,
				labeldomain.OrderStatusShipped, now, req.OrderNumber, req.UserID,
			).Error; err != nil {
				return fmt.Errorf("mark order shipped: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordLabel(string(req.Carrier), "purchased")
	s.log.Info("labels purchased",
		zap.String("user_id", req.UserID.String()),
		zap.String("carrier", string(req.Carrier)),
		zap.Int("pieces", len(labels)),
	)
	return labels, nil
}

func (s *Service) storeDocuments(ctx context.Context, req labeldomain.BuyLabelRequest, pieces []carrier.PurchasedLabel) ([]string, error) {
	base := req.OrderNumber
	if base == "" {
		base = pieces[0].TrackingNumber
	}

	keys := make([]string, len(pieces))
	for i, piece := range pieces {
		format := piece.Format
		if format == "" {
			format = "pdf"
		}
		keys[i] = fmt.Sprintf("labels/%s/%d.%s", base, i+1, format)
		if len(piece.Document) == 0 {
			continue
		}
		if err := s.store.Put(ctx, keys[i], piece.Document); err != nil {
			return nil, fmt.Errorf("store label document: %w", err)
		}
	}
	return keys, nil
}

func (s *Service) CancelLabel(ctx context.Context, userID uuid.UUID, carrierCode carrier.Code, trackingNumber string) (*labeldomain.Label, error) {
	gw, err := s.registry.Get(carrierCode)
	if err != nil {
		return nil, err
	}

	var exists labeldomain.Label
	err = s.db.WithContext(ctx).
		Where("tracking_number = ? AND user_id = ?", trackingNumber, userID).
		First(&exists).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, labeldomain.ErrNotFound
		}
		return nil, err
	}

	// Carrier cancel first; a carrier failure leaves local state untouched.
	if err := gw.CancelLabel(ctx, trackingNumber); err != nil {
		return nil, err
	}

	var cancelled *labeldomain.Label
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userRow struct{ ID uuid.UUID }
		if err := tx.Raw(`SELECT id FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&userRow).Error; err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if userRow.ID == uuid.Nil {
			return ledgerdomain.ErrUserNotFound
		}

		var label labeldomain.Label
		if err := tx.Raw(
			`SELECT * FROM labels WHERE tracking_number = ? AND user_id = ? FOR UPDATE`,
			trackingNumber, userID,
		).Scan(&label).Error; err != nil {
			return fmt.Errorf("lock label: %w", err)
		}
		if label.ID == uuid.Nil {
			return labeldomain.ErrNotFound
		}
		if label.Status == labeldomain.StatusCancelled {
			return labeldomain.ErrAlreadyCancelled
		}

		now := s.clock.Now()
		if err := tx.Exec(
			`UPDATE labels SET status = ?, updated_at = ? WHERE id = ?`,
			labeldomain.StatusCancelled, now, label.ID,
		).Error; err != nil {
			return fmt.Errorf("cancel label: %w", err)
		}

		if _, err := s.ledger.CreditTx(ctx, tx, userID, label.CostEstimate(), ledgerdomain.TypeRefund,
			fmt.Sprintf("refund label %s", trackingNumber)); err != nil {
			return err
		}

		label.Status = labeldomain.StatusCancelled
		label.UpdatedAt = now
		cancelled = &label
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordLabel(string(carrierCode), "cancelled")
	return cancelled, nil
}

func (s *Service) ValidateShipment(ctx context.Context, carrierCode carrier.Code, req carrier.RateRequest) error {
	gw, err := s.registry.Get(carrierCode)
	if err != nil {
		return err
	}
	return gw.ValidateShipment(ctx, req)
}

func (s *Service) List(ctx context.Context, req labeldomain.ListLabelsRequest) (labeldomain.ListLabelsResponse, error) {
	page := req.Page.Normalize()

	status := req.Status
	if status == "" {
		status = labeldomain.StatusNew
	}

	stmt := s.db.WithContext(ctx).
		Model(&labeldomain.Label{}).
		Where("user_id = ? AND status = ?", req.UserID, status)
	if req.Carrier != "" {
		stmt = stmt.Where("carrier = ?", req.Carrier)
	}
	if req.DateFrom != nil {
		stmt = stmt.Where("created_at >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		stmt = stmt.Where("created_at <= ?", *req.DateTo)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return labeldomain.ListLabelsResponse{}, err
	}

	var labels []*labeldomain.Label
	if err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&labels).Error; err != nil {
		return labeldomain.ListLabelsResponse{}, err
	}

	return labeldomain.ListLabelsResponse{
		Labels:     labels,
		Pagination: pagination.BuildInfo(page, total),
	}, nil
}
