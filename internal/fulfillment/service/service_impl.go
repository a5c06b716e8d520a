package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	"github.com/cargovera/cargovera/internal/notify"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Inventories invdomain.Service
	Users       userdomain.Service
	Notifier    notify.Provider
	Dispatcher  *notify.Dispatcher
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	inventories invdomain.Service
	users       userdomain.Service
	notifier    notify.Provider
	dispatcher  *notify.Dispatcher
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) fulfilldomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("fulfillment.service"),
		clock:       p.Clock,
		inventories: p.Inventories,
		users:       p.Users,
		notifier:    p.Notifier,
		dispatcher:  p.Dispatcher,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req fulfilldomain.CreateRequest) (*fulfilldomain.FulfillmentRequest, error) {
	if len(req.Items) == 0 {
		return nil, fulfilldomain.ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, invdomain.ErrInvalidQuantity
		}
	}

	// Inventories are locked in ascending id order to keep the global lock
	// order deadlock-free.
	items := make([]fulfilldomain.ItemInput, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].InventoryID.String() < items[j].InventoryID.String()
	})

	var request *fulfilldomain.FulfillmentRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holderID uuid.UUID
		for _, item := range items {
			inv, err := s.inventories.ReserveTx(ctx, tx, item.InventoryID, item.Quantity)
			if err != nil {
				return err
			}
			if inv.OwnerID != req.OwnerID {
				return fulfilldomain.ErrMixedOwners
			}
			if holderID == uuid.Nil {
				holderID = inv.HolderID
			} else if inv.HolderID != holderID {
				return fulfilldomain.ErrMixedHolders
			}
		}

		now := s.clock.Now()
		request = &fulfilldomain.FulfillmentRequest{
			ID:        uuid.New(),
			OwnerID:   req.OwnerID,
			HolderID:  holderID,
			Status:    fulfilldomain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, item := range items {
			urls, err := fulfilldomain.EncodeLabelURLs(item.LabelURLs)
			if err != nil {
				return fmt.Errorf("encode label urls: %w", err)
			}
			request.Items = append(request.Items, fulfilldomain.FulfillmentItem{
				ID:          uuid.New(),
				RequestID:   request.ID,
				InventoryID: item.InventoryID,
				Quantity:    item.Quantity,
				LabelURLs:   urls,
				Note:        item.Note,
				CreatedAt:   now,
			})
		}
		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("create fulfillment request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordFulfillment("created")
	s.notifyHolder(request)
	return request, nil
}

// notifyHolder hands the holder email to the async dispatcher. Notification
// failure never surfaces to the creating request.
func (s *Service) notifyHolder(request *fulfilldomain.FulfillmentRequest) {
	requestID := request.ID
	ownerID := request.OwnerID
	holderID := request.HolderID
	itemCount := len(request.Items)

	s.dispatcher.Enqueue("fulfillment_created", func(ctx context.Context) error {
		holder, err := s.users.Get(ctx, holderID)
		if err != nil {
			return err
		}
		owner, err := s.users.Get(ctx, ownerID)
		if err != nil {
			return err
		}
		return s.notifier.SendFulfillmentCreated(ctx, notify.FulfillmentCreated{
			HolderName:  holder.Name,
			HolderEmail: holder.Email,
			OwnerName:   owner.Name,
			RequestID:   requestID.String(),
			ItemCount:   itemCount,
		})
	})
}

func (s *Service) Delete(ctx context.Context, requestID, callerID uuid.UUID) error {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if request.OwnerID != callerID {
		return fulfilldomain.ErrForbidden
	}
	if request.Status != fulfilldomain.StatusPending {
		return fulfilldomain.ErrNotPending
	}

	items := sortedItems(request.Items)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := s.inventories.ReleaseTx(ctx, tx, item.InventoryID, item.Quantity); err != nil {
				return err
			}
		}

		status, err := s.lockStatus(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if status != fulfilldomain.StatusPending {
			return fulfilldomain.ErrNotPending
		}

		if err := tx.Exec(`DELETE FROM fulfillment_items WHERE request_id = ?`, requestID).Error; err != nil {
			return fmt.Errorf("delete fulfillment items: %w", err)
		}
		if err := tx.Exec(`DELETE FROM fulfillment_requests WHERE id = ?`, requestID).Error; err != nil {
			return fmt.Errorf("delete fulfillment request: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.obsMetrics.RecordFulfillment("deleted")
	return nil
}

func (s *Service) Fulfill(ctx context.Context, requestID, callerID uuid.UUID) error {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if request.HolderID != callerID {
		return fulfilldomain.ErrForbidden
	}
	if request.Status != fulfilldomain.StatusPending {
		return fulfilldomain.ErrNotPending
	}

	items := sortedItems(request.Items)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := s.inventories.ConsumeTx(ctx, tx, item.InventoryID, item.Quantity, callerID, requestID); err != nil {
				return err
			}
		}

		status, err := s.lockStatus(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if status != fulfilldomain.StatusPending {
			return fulfilldomain.ErrNotPending
		}

		now := s.clock.Now()
		for _, item := range items {
			urls, err := item.LabelURLList()
			if err != nil {
				return fmt.Errorf("decode label urls: %w", err)
			}
			for _, url := range urls {
				if err := s.markLabelShipped(ctx, tx, url, now); err != nil {
					return err
				}
			}
			if err := tx.Exec(
				`UPDATE fulfillment_items SET fulfilled_at = ? WHERE id = ?`,
				now, item.ID,
			).Error; err != nil {
				return fmt.Errorf("mark item fulfilled: %w", err)
			}
		}

		if err := tx.Exec(
			`UPDATE fulfillment_requests SET status = ?, updated_at = ? WHERE id = ?`,
			fulfilldomain.StatusFulfilled, now, requestID,
		).Error; err != nil {
			return fmt.Errorf("mark request fulfilled: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.obsMetrics.RecordFulfillment("fulfilled")
	s.log.Info("fulfillment completed",
		zap.String("request_id", requestID.String()),
		zap.Int("items", len(items)),
	)
	return nil
}

func (s *Service) markLabelShipped(ctx context.Context, tx *gorm.DB, labelURL string, now time.Time) error {
	var label struct {
		ID     uuid.UUID
		Status labeldomain.Status
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT id, status FROM labels WHERE label_url = ? FOR UPDATE`, labelURL,
	).Scan(&label).Error
	if err != nil {
		return fmt.Errorf("lock label: %w", err)
	}
	if label.ID == uuid.Nil {
		return labeldomain.ErrNotFound
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE labels SET status = ?, updated_at = ? WHERE id = ?`,
		labeldomain.StatusShipped, now, label.ID,
	).Error; err != nil {
		return fmt.Errorf("mark label shipped: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*fulfilldomain.FulfillmentRequest, error) {
	var request fulfilldomain.FulfillmentRequest
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", requestID).
		First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fulfilldomain.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (s *Service) List(ctx context.Context, req fulfilldomain.ListRequest) (fulfilldomain.ListResponse, error) {
	page := req.Page.Normalize()

	column := "owner_id"
	if req.Side == fulfilldomain.SideHolder {
		column = "holder_id"
	}
	status := req.Status
	if status == "" {
		status = fulfilldomain.StatusPending
	}

	stmt := s.db.WithContext(ctx).
		Model(&fulfilldomain.FulfillmentRequest{}).
		Where(column+" = ? AND status = ?", req.UserID, status)
	if req.DateFrom != nil {
		stmt = stmt.Where("created_at >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		stmt = stmt.Where("created_at <= ?", *req.DateTo)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return fulfilldomain.ListResponse{}, err
	}

	var requests []*fulfilldomain.FulfillmentRequest
	if err := stmt.
		Preload("Items").
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&requests).Error; err != nil {
		return fulfilldomain.ListResponse{}, err
	}

	return fulfilldomain.ListResponse{
		Requests:   requests,
		Pagination: pagination.BuildInfo(page, total),
	}, nil
}

// lockStatus re-reads the request status under an exclusive lock, after
// inventory locks are already held, keeping the global lock order.
func (s *Service) lockStatus(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (fulfilldomain.Status, error) {
	var row struct {
		ID     uuid.UUID
		Status fulfilldomain.Status
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT id, status FROM fulfillment_requests WHERE id = ? FOR UPDATE`, requestID,
	).Scan(&row).Error
	if err != nil {
		return "", fmt.Errorf("lock fulfillment request: %w", err)
	}
	if row.ID == uuid.Nil {
		return "", fulfilldomain.ErrNotFound
	}
	return row.Status, nil
}

func sortedItems(items []fulfilldomain.FulfillmentItem) []fulfilldomain.FulfillmentItem {
	out := make([]fulfilldomain.FulfillmentItem, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		return out[i].InventoryID.String() < out[j].InventoryID.String()
	})
	return out
}
