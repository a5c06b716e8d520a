package domain

import (
	"time"

	"github.com/cargovera/cargovera/internal/money"
	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeUsage      TransactionType = "usage"
	TypeRefund     TransactionType = "refund"
	TypeAdjustment TransactionType = "adjustment"
)

// Transaction is an immutable ledger entry. AmountCents is signed; the
// NewBalanceCents snapshot must always equal the previous snapshot plus the
// amount, ordered by creation time per user.
type Transaction struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	AmountCents     int64           `json:"amount_cents" gorm:"not null"`
	NewBalanceCents int64           `json:"new_balance_cents" gorm:"not null"`
	Type            TransactionType `json:"type" gorm:"type:text;not null;column:trans_type;index"`
	Note            string          `json:"note" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;index"`
}

func (Transaction) TableName() string { return "transactions" }

// Amount exposes the signed delta as Money at the read boundary.
func (t *Transaction) Amount() money.Money {
	return money.FromMinorUnits(t.AmountCents)
}

// NewBalance exposes the post-transaction balance snapshot.
func (t *Transaction) NewBalance() money.Money {
	return money.FromMinorUnits(t.NewBalanceCents)
}
