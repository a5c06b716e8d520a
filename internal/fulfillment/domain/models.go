package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the fulfillment request lifecycle state. Pending requests are
// deleted, not transitioned, when the owner withdraws them.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// FulfillmentRequest asks a holder to ship reserved inventory on the owner's
// behalf. All items reference inventories sharing the request's owner and
// holder.
type FulfillmentRequest struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID         `json:"owner_id" gorm:"type:uuid;not null;index"`
	HolderID  uuid.UUID         `json:"holder_id" gorm:"type:uuid;not null;index"`
	Status    Status            `json:"status" gorm:"type:text;not null;default:pending;index"`
	Items     []FulfillmentItem `json:"items" gorm:"foreignKey:RequestID"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;index"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null"`
}

func (FulfillmentRequest) TableName() string { return "fulfillment_requests" }

// FulfillmentItem reserves quantity on one inventory. LabelURLs holds the
// storage keys of labels to mark shipped on fulfillment.
type FulfillmentItem struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	RequestID   uuid.UUID      `json:"request_id" gorm:"type:uuid;not null;index"`
	InventoryID uuid.UUID      `json:"inventory_id" gorm:"type:uuid;not null;index"`
	Quantity    int64          `json:"quantity" gorm:"not null"`
	LabelURLs   datatypes.JSON `json:"label_urls"`
	Note        string         `json:"note" gorm:"type:text"`
	FulfilledAt *time.Time     `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
}

func (FulfillmentItem) TableName() string { return "fulfillment_items" }

// LabelURLList decodes the stored JSON array, tolerating a null column.
func (i *FulfillmentItem) LabelURLList() ([]string, error) {
	if len(i.LabelURLs) == 0 {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal(i.LabelURLs, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

func EncodeLabelURLs(urls []string) (datatypes.JSON, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
