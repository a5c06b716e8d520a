package service

import (
	"context"
	"fmt"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount money.Money, transType ledgerdomain.TransactionType, note string) (*ledgerdomain.Transaction, error) {
	var trans *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trans, err = s.CreditTx(ctx, tx, userID, amount, transType, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount money.Money, transType ledgerdomain.TransactionType, note string) (*ledgerdomain.Transaction, error) {
	var trans *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trans, err = s.DebitTx(ctx, tx, userID, amount, transType, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

// CreditTx adds amount to the user's balance inside the caller's transaction.
// The user row is locked before the balance is read.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount money.Money, transType ledgerdomain.TransactionType, note string) (*ledgerdomain.Transaction, error) {
	if amount.MinorUnits() <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if err := validateType(transType); err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, userID, amount.MinorUnits(), transType, note)
}

// DebitTx subtracts amount from the user's balance inside the caller's
// transaction. The insufficient-balance check happens while the row lock is
// held, so no other mutator can interleave between check and update.
func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount money.Money, transType ledgerdomain.TransactionType, note string) (*ledgerdomain.Transaction, error) {
	if amount.MinorUnits() <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if err := validateType(transType); err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, userID, -amount.MinorUnits(), transType, note)
}

type userBalanceRow struct {
	ID           uuid.UUID
	BalanceCents int64
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltaCents int64, transType ledgerdomain.TransactionType, note string) (*ledgerdomain.Transaction, error) {
	var row userBalanceRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, balance_cents
		 FROM users
		 WHERE id = ?
		 FOR UPDATE`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if row.ID == uuid.Nil {
		return nil, ledgerdomain.ErrUserNotFound
	}

	newBalance := row.BalanceCents + deltaCents
	if newBalance < 0 {
		return nil, ledgerdomain.InsufficientBalanceError{
			Available: money.FromMinorUnits(row.BalanceCents),
			Required:  money.FromMinorUnits(-deltaCents),
		}
	}

	now := s.clock.Now()
	if err := tx.WithContext(ctx).Exec(
		`UPDATE users SET balance_cents = ?, updated_at = ? WHERE id = ?`,
		newBalance,
		now,
		userID,
	).Error; err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	trans := &ledgerdomain.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		AmountCents:     deltaCents,
		NewBalanceCents: newBalance,
		Type:            transType,
		Note:            note,
		CreatedAt:       now,
	}
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO transactions (id, user_id, amount_cents, new_balance_cents, trans_type, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trans.ID,
		trans.UserID,
		trans.AmountCents,
		trans.NewBalanceCents,
		string(trans.Type),
		trans.Note,
		trans.CreatedAt,
	).Error; err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	s.obsMetrics.RecordTransaction(string(transType))
	s.log.Debug("ledger transaction applied",
		zap.String("user_id", userID.String()),
		zap.String("type", string(transType)),
		zap.Int64("amount_cents", deltaCents),
		zap.Int64("new_balance_cents", newBalance),
	)
	return trans, nil
}

func (s *Service) ListTransactions(ctx context.Context, req ledgerdomain.ListTransactionsRequest) (ledgerdomain.ListTransactionsResponse, error) {
	page := req.Page.Normalize()

	stmt := s.db.WithContext(ctx).
		Model(&ledgerdomain.Transaction{}).
		Where("user_id = ?", req.UserID)
	if req.Type != "" {
		stmt = stmt.Where("trans_type = ?", req.Type)
	}
	if req.DateFrom != nil {
		stmt = stmt.Where("created_at >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		stmt = stmt.Where("created_at <= ?", *req.DateTo)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return ledgerdomain.ListTransactionsResponse{}, err
	}

	var transactions []*ledgerdomain.Transaction
	if err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&transactions).Error; err != nil {
		return ledgerdomain.ListTransactionsResponse{}, err
	}

	return ledgerdomain.ListTransactionsResponse{
		Transactions: transactions,
		Pagination:   pagination.BuildInfo(page, total),
	}, nil
}

func validateType(transType ledgerdomain.TransactionType) error {
	switch transType {
	case ledgerdomain.TypeDeposit, ledgerdomain.TypeUsage, ledgerdomain.TypeRefund, ledgerdomain.TypeAdjustment:
		return nil
	default:
		return ledgerdomain.ErrInvalidType
	}
}
