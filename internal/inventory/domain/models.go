package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an inventory row.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusSoftDeleted Status = "soft_deleted"
)

// Inventory tracks stock shared between an owner and a holder. At most one
// non-deleted row exists per (product, owner, holder) tuple; reserved_qty
// never exceeds available_qty.
type Inventory struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:idx_inventory_tuple"`
	OwnerID      uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index:idx_inventory_tuple"`
	HolderID     uuid.UUID `json:"holder_id" gorm:"type:uuid;not null;index:idx_inventory_tuple"`
	AvailableQty int64     `json:"available_qty" gorm:"not null;default:0"`
	ReservedQty  int64     `json:"reserved_qty" gorm:"not null;default:0"`
	Status       Status    `json:"status" gorm:"type:text;not null;default:active"`
	Location     string    `json:"location" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`
}

func (Inventory) TableName() string { return "inventories" }

// TransactionType classifies an inventory audit row.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// Source names the event that produced an inventory transaction.
type Source string

const (
	SourceCreation   Source = "creation"
	SourceOutbound   Source = "outbound"
	SourceTransfer   Source = "transfer"
	SourceAdjustment Source = "adjustment"
	SourceDeletion   Source = "deletion"
)

// InventoryTransaction is an immutable audit row, one per quantity-affecting
// event.
type InventoryTransaction struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	InventoryID uuid.UUID       `json:"inventory_id" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `json:"product_id" gorm:"type:uuid;not null"`
	CreatedBy   uuid.UUID       `json:"created_by" gorm:"type:uuid;not null"`
	Type        TransactionType `json:"type" gorm:"type:text;not null;column:trans_type"`
	Quantity    int64           `json:"quantity" gorm:"not null"`
	Source      Source          `json:"source" gorm:"type:text;not null"`
	SourceRefID uuid.UUID       `json:"source_ref_id" gorm:"type:uuid"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;index"`
}

func (InventoryTransaction) TableName() string { return "inventory_transactions" }
