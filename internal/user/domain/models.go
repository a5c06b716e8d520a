package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cargovera/cargovera/internal/money"
	"github.com/google/uuid"
)

// User carries the prepaid balance and the per-user rate multiplier. Balance
// is mutated only inside a locked ledger transaction.
type User struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string           `json:"name" gorm:"type:text;not null"`
	Email        string           `json:"email" gorm:"type:text;not null;uniqueIndex"`
	BalanceCents int64            `json:"balance_cents" gorm:"not null;default:0"`
	Multiplier   money.Multiplier `json:"multiplier" gorm:"not null;default:100"`
	Active       bool             `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time        `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Balance exposes the stored minor units as Money at the read boundary.
func (u *User) Balance() money.Money {
	return money.FromMinorUnits(u.BalanceCents)
}

// Multiplier bounds: rates are marked up between 1.00x and 1.99x.
const (
	MinMultiplier money.Multiplier = 100
	MaxMultiplier money.Multiplier = 199
)

var (
	ErrNotFound             = errors.New("user_not_found")
	ErrEmailExists          = errors.New("email_already_registered")
	ErrMultiplierOutOfRange = errors.New("multiplier_out_of_range")
	ErrZeroAdjustment       = errors.New("zero_adjustment")
)

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, name, email string) (*User, error)
	UpdateMultiplier(ctx context.Context, userID uuid.UUID, multiplier money.Multiplier) error
	// Adjust applies a signed admin balance correction through the ledger.
	Adjust(ctx context.Context, userID uuid.UUID, amount money.Money, note string) error
}
