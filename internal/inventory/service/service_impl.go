package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/cargovera/cargovera/pkg/postal"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) invdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		clock: p.Clock,
	}
}

func (s *Service) Add(ctx context.Context, req invdomain.AddRequest) (*invdomain.Inventory, error) {
	if req.Quantity <= 0 {
		return nil, invdomain.ErrInvalidQuantity
	}
	if !postal.IsValidZIPCode(req.Location) {
		return nil, invdomain.ErrInvalidLocation
	}
	if req.ActorID != req.OwnerID && req.ActorID != req.HolderID {
		return nil, invdomain.ErrForbidden
	}

	var result *invdomain.Inventory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		var existing invdomain.Inventory
		err := tx.Raw(
			`SELECT * FROM inventories
			 WHERE product_id = ? AND owner_id = ? AND holder_id = ? AND status <> ?
			 FOR UPDATE`,
			req.ProductID, req.OwnerID, req.HolderID, invdomain.StatusSoftDeleted,
		).Scan(&existing).Error
		if err != nil {
			return fmt.Errorf("lock inventory tuple: %w", err)
		}

		if existing.ID != uuid.Nil {
			if err := tx.Exec(
				`UPDATE inventories
				 SET available_qty = available_qty + ?, status = ?, updated_at = ?
				 WHERE id = ?`,
				req.Quantity, invdomain.StatusActive, now, existing.ID,
			).Error; err != nil {
				return fmt.Errorf("increment inventory: %w", err)
			}
			existing.AvailableQty += req.Quantity
			existing.Status = invdomain.StatusActive
			existing.UpdatedAt = now
			result = &existing
		} else {
			inv := &invdomain.Inventory{
				ID:           uuid.New(),
				ProductID:    req.ProductID,
				OwnerID:      req.OwnerID,
				HolderID:     req.HolderID,
				AvailableQty: req.Quantity,
				Status:       invdomain.StatusActive,
				Location:     req.Location,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Create(inv).Error; err != nil {
				return fmt.Errorf("create inventory: %w", err)
			}
			result = inv
		}

		return s.insertAudit(tx, result.ID, result.ProductID, req.ActorID,
			invdomain.TypeCredit, req.Quantity, invdomain.SourceCreation, result.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*invdomain.Inventory, error) {
	var inv invdomain.Inventory
	err := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, invdomain.StatusSoftDeleted).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, invdomain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) SoftDelete(ctx context.Context, id, actorID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.OwnerID != actorID {
			return invdomain.ErrForbidden
		}
		if inv.Status == invdomain.StatusSoftDeleted {
			return invdomain.ErrAlreadyDeleted
		}
		if inv.ReservedQty > 0 {
			return invdomain.ErrReservedExists
		}

		now := s.clock.Now()
		if err := tx.Exec(
			`UPDATE inventories SET status = ?, updated_at = ? WHERE id = ?`,
			invdomain.StatusSoftDeleted, now, id,
		).Error; err != nil {
			return fmt.Errorf("soft delete inventory: %w", err)
		}

		return s.insertAudit(tx, inv.ID, inv.ProductID, actorID,
			invdomain.TypeDebit, inv.AvailableQty, invdomain.SourceDeletion, inv.ID, now)
	})
}

func (s *Service) ReserveTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64) (*invdomain.Inventory, error) {
	if qty <= 0 {
		return nil, invdomain.ErrInvalidQuantity
	}

	inv, err := s.lock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != invdomain.StatusActive {
		return nil, invdomain.ErrNotActive
	}
	free := inv.AvailableQty - inv.ReservedQty
	if free < qty {
		return nil, invdomain.NotEnoughQuantityError{InventoryID: id, Requested: qty, Available: free}
	}

	// Guarded update: the WHERE clause re-checks headroom so quantity can
	// never oversell even if the row lock above was not honored.
	res := tx.WithContext(ctx).Exec(
		`UPDATE inventories
		 SET reserved_qty = reserved_qty + ?, updated_at = ?
		 WHERE id = ? AND status = ? AND available_qty - reserved_qty >= ?`,
		qty, s.clock.Now(), id, invdomain.StatusActive, qty,
	)
	if res.Error != nil {
		return nil, fmt.Errorf("reserve inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, invdomain.NotEnoughQuantityError{InventoryID: id, Requested: qty, Available: free}
	}

	inv.ReservedQty += qty
	return inv, nil
}

func (s *Service) ReleaseTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64) error {
	if qty <= 0 {
		return invdomain.ErrInvalidQuantity
	}

	inv, err := s.lock(ctx, tx, id)
	if err != nil {
		return err
	}

	released := qty
	if released > inv.ReservedQty {
		s.log.Warn("release exceeds reserved quantity, flooring at zero",
			zap.String("inventory_id", id.String()),
			zap.Int64("requested", qty),
			zap.Int64("reserved", inv.ReservedQty),
		)
		released = inv.ReservedQty
	}
	if released == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE inventories SET reserved_qty = reserved_qty - ?, updated_at = ? WHERE id = ?`,
		released, s.clock.Now(), id,
	).Error; err != nil {
		return fmt.Errorf("release inventory: %w", err)
	}
	return nil
}

func (s *Service) ConsumeTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64, actorID, sourceRefID uuid.UUID) error {
	if qty <= 0 {
		return invdomain.ErrInvalidQuantity
	}

	inv, err := s.lock(ctx, tx, id)
	if err != nil {
		return err
	}
	if inv.ReservedQty < qty || inv.AvailableQty < qty {
		available := inv.ReservedQty
		if inv.AvailableQty < available {
			available = inv.AvailableQty
		}
		return invdomain.NotEnoughQuantityError{InventoryID: id, Requested: qty, Available: available}
	}

	now := s.clock.Now()
	newAvailable := inv.AvailableQty - qty
	status := inv.Status
	if newAvailable == 0 {
		status = invdomain.StatusInactive
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE inventories
		 SET available_qty = available_qty - ?, reserved_qty = reserved_qty - ?, status = ?, updated_at = ?
		 WHERE id = ? AND available_qty >= ? AND reserved_qty >= ?`,
		qty, qty, status, now, id, qty, qty,
	)
	if res.Error != nil {
		return fmt.Errorf("consume inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return invdomain.NotEnoughQuantityError{InventoryID: id, Requested: qty, Available: inv.AvailableQty}
	}

	return s.insertAudit(tx, inv.ID, inv.ProductID, actorID,
		invdomain.TypeDebit, qty, invdomain.SourceOutbound, sourceRefID, now)
}

func (s *Service) ListByOwner(ctx context.Context, req invdomain.ListRequest) (invdomain.ListResponse, error) {
	return s.list(ctx, "owner_id", req)
}

func (s *Service) ListByHolder(ctx context.Context, req invdomain.ListRequest) (invdomain.ListResponse, error) {
	return s.list(ctx, "holder_id", req)
}

func (s *Service) list(ctx context.Context, column string, req invdomain.ListRequest) (invdomain.ListResponse, error) {
	page := req.Page.Normalize()

	stmt := s.db.WithContext(ctx).
		Model(&invdomain.Inventory{}).
		Where(column+" = ? AND status = ?", req.UserID, invdomain.StatusActive)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return invdomain.ListResponse{}, err
	}

	var inventories []*invdomain.Inventory
	if err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&inventories).Error; err != nil {
		return invdomain.ListResponse{}, err
	}

	return invdomain.ListResponse{
		Inventories: inventories,
		Pagination:  pagination.BuildInfo(page, total),
	}, nil
}

func (s *Service) ListTransactions(ctx context.Context, inventoryID uuid.UUID, page pagination.Page) (invdomain.ListTransactionsResponse, error) {
	page = page.Normalize()

	stmt := s.db.WithContext(ctx).
		Model(&invdomain.InventoryTransaction{}).
		Where("inventory_id = ?", inventoryID)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return invdomain.ListTransactionsResponse{}, err
	}

	var transactions []*invdomain.InventoryTransaction
	if err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&transactions).Error; err != nil {
		return invdomain.ListTransactionsResponse{}, err
	}

	return invdomain.ListTransactionsResponse{
		Transactions: transactions,
		Pagination:   pagination.BuildInfo(page, total),
	}, nil
}

// lock reads the inventory row under an exclusive lock. Soft-deleted rows are
// still returned so SoftDelete can distinguish a repeat delete from NotFound.
func (s *Service) lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*invdomain.Inventory, error) {
	var inv invdomain.Inventory
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM inventories WHERE id = ? FOR UPDATE`, id,
	).Scan(&inv).Error
	if err != nil {
		return nil, fmt.Errorf("lock inventory: %w", err)
	}
	if inv.ID == uuid.Nil {
		return nil, invdomain.ErrNotFound
	}
	return &inv, nil
}

func (s *Service) insertAudit(tx *gorm.DB, inventoryID, productID, actorID uuid.UUID, transType invdomain.TransactionType, qty int64, source invdomain.Source, sourceRefID uuid.UUID, now time.Time) error {
	err := tx.Exec(
		`INSERT INTO inventory_transactions (id, inventory_id, product_id, created_by, trans_type, quantity, source, source_ref_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New(), inventoryID, productID, actorID, string(transType), qty, string(source), sourceRefID, now,
	).Error
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}
