package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cargovera/cargovera/internal/money"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user_not_found")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidType   = errors.New("invalid_transaction_type")
)

// InsufficientBalanceError is the domain-legal outcome of a debit exceeding
// the available balance; it carries both sides so callers can react.
type InsufficientBalanceError struct {
	Available money.Money
	Required  money.Money
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %s available, %s required", e.Available, e.Required)
}

type ListTransactionsRequest struct {
	UserID   uuid.UUID
	Type     TransactionType
	DateFrom *time.Time
	DateTo   *time.Time
	Page     pagination.Page
}

type ListTransactionsResponse struct {
	Transactions []*Transaction  `json:"transactions"`
	Pagination   pagination.Info `json:"pagination"`
}

// Service applies signed balance deltas to a user row while producing a
// matching immutable Transaction, under an exclusive row lock. The Tx
// variants join an already-open gorm transaction so workflows can commit a
// balance change atomically with their own rows.
type Service interface {
	Credit(ctx context.Context, userID uuid.UUID, amount money.Money, transType TransactionType, note string) (*Transaction, error)
	Debit(ctx context.Context, userID uuid.UUID, amount money.Money, transType TransactionType, note string) (*Transaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount money.Money, transType TransactionType, note string) (*Transaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount money.Money, transType TransactionType, note string) (*Transaction, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
}
