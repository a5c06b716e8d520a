package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cargovera/cargovera/internal/money"
	"github.com/google/uuid"
)

// Status transitions initiated → success|failure exactly once.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
)

// Payment tracks one deposit intent against the external payment gateway.
type Payment struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	IntentID    string    `json:"intent_id" gorm:"type:text;not null;uniqueIndex"`
	AmountCents int64     `json:"amount_cents" gorm:"not null"`
	Status      Status    `json:"status" gorm:"type:text;not null;default:initiated"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) Amount() money.Money {
	return money.FromMinorUnits(p.AmountCents)
}

var (
	ErrNotFound      = errors.New("payment_not_found")
	ErrInvalidAmount = errors.New("invalid_deposit_amount")
)

// WebhookEvent is the asynchronous confirmation delivered by the payment
// gateway. Delivery may repeat; handling must be idempotent.
type WebhookEvent struct {
	IntentID    string    `json:"intent_id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	UserID      uuid.UUID `json:"user_id"`
}

const (
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

// Gateway creates deposit intents with the external payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, userID uuid.UUID, amount money.Money) (intentID string, err error)
}

type Service interface {
	CreateDeposit(ctx context.Context, userID uuid.UUID, amount money.Money) (*Payment, error)
	HandleWebhook(ctx context.Context, event WebhookEvent) error
}
