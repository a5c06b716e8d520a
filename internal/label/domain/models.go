package domain

import (
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/money"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a purchased label.
type Status string

const (
	StatusNew       Status = "new"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// Label is one purchased shipping label piece. LabelURL is the storage key of
// the persisted document, not a carrier URL. CostEstimateCents is the
// multiplier-applied price that was debited; CostActualCents is the
// carrier-confirmed price when available.
type Label struct {
	ID                uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderNumber       string       `json:"order_number" gorm:"type:text;index"`
	TrackingNumber    string       `json:"tracking_number" gorm:"type:text;not null;uniqueIndex"`
	LabelURL          string       `json:"label_url" gorm:"type:text;not null"`
	Carrier           carrier.Code `json:"carrier" gorm:"type:text;not null;index"`
	ServiceType       string       `json:"service_type" gorm:"type:text;not null"`
	CostEstimateCents int64        `json:"cost_estimate_cents" gorm:"not null"`
	CostActualCents   *int64       `json:"cost_actual_cents,omitempty"`
	Status            Status       `json:"status" gorm:"type:text;not null;default:new;index"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;index"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (Label) TableName() string { return "labels" }

func (l *Label) CostEstimate() money.Money {
	return money.FromMinorUnits(l.CostEstimateCents)
}

// OrderStatus tracks the minimal order lifecycle touched by label purchase.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusShipped OrderStatus = "shipped"
)

// Order is the minimal order row marked shipped when its label is bought.
type Order struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderNumber string      `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	Status      OrderStatus `json:"status" gorm:"type:text;not null;default:pending"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }
