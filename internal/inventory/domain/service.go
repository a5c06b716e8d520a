package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("inventory_not_found")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidLocation = errors.New("invalid_location")
	ErrForbidden       = errors.New("inventory_forbidden")
	ErrNotActive       = errors.New("inventory_not_active")
	ErrAlreadyDeleted  = errors.New("inventory_already_deleted")
	ErrReservedExists  = errors.New("inventory_has_reservations")
)

// NotEnoughQuantityError reports a reserve or consume exceeding what the
// inventory can cover.
type NotEnoughQuantityError struct {
	InventoryID uuid.UUID
	Requested   int64
	Available   int64
}

func (e NotEnoughQuantityError) Error() string {
	return fmt.Sprintf("not enough quantity on inventory %s: %d requested, %d available",
		e.InventoryID, e.Requested, e.Available)
}

type AddRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	HolderID  uuid.UUID `json:"holder_id"`
	Quantity  int64     `json:"quantity"`
	Location  string    `json:"location"`
	ActorID   uuid.UUID `json:"-"`
}

type ListRequest struct {
	UserID uuid.UUID
	Page   pagination.Page
}

type ListResponse struct {
	Inventories []*Inventory    `json:"inventories"`
	Pagination  pagination.Info `json:"pagination"`
}

type ListTransactionsResponse struct {
	Transactions []*InventoryTransaction `json:"transactions"`
	Pagination   pagination.Info         `json:"pagination"`
}

// Service owns available/reserved quantity per (product, owner, holder)
// tuple. The Tx methods run inside a caller-owned transaction and lock the
// inventory row before any quantity decision; callers touching several
// inventories must invoke them in ascending inventory id order.
type Service interface {
	Add(ctx context.Context, req AddRequest) (*Inventory, error)
	Get(ctx context.Context, id uuid.UUID) (*Inventory, error)
	SoftDelete(ctx context.Context, id, actorID uuid.UUID) error

	// ReserveTx places a soft hold; it returns the locked row so callers can
	// validate ownership in the same critical section.
	ReserveTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64) (*Inventory, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64) error
	ConsumeTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int64, actorID, sourceRefID uuid.UUID) error

	ListByOwner(ctx context.Context, req ListRequest) (ListResponse, error)
	ListByHolder(ctx context.Context, req ListRequest) (ListResponse, error)
	ListTransactions(ctx context.Context, inventoryID uuid.UUID, page pagination.Page) (ListTransactionsResponse, error)
}
