package service

import (
	"context"
	"fmt"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/cargovera/cargovera/pkg/db"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Ledger ledgerdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	ledger ledgerdomain.Service
}

func NewService(p Params) userdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("user.service"),
		clock:  p.Clock,
		ledger: p.Ledger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*userdomain.User, error) {
	var user userdomain.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, userdomain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) Create(ctx context.Context, name, email string) (*userdomain.User, error) {
	now := s.clock.Now()
	user := &userdomain.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Multiplier: userdomain.MinMultiplier,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, userdomain.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateMultiplier sets the admin-controlled rate markup, bounded to
// [1.00, 1.99].
func (s *Service) UpdateMultiplier(ctx context.Context, userID uuid.UUID, multiplier money.Multiplier) error {
	if multiplier < userdomain.MinMultiplier || multiplier > userdomain.MaxMultiplier {
		return userdomain.ErrMultiplierOutOfRange
	}

	res := s.db.WithContext(ctx).Exec(
		`UPDATE users SET multiplier = ?, updated_at = ? WHERE id = ?`,
		multiplier, s.clock.Now(), userID,
	)
	if res.Error != nil {
		return fmt.Errorf("update multiplier: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return userdomain.ErrNotFound
	}

	s.log.Info("multiplier updated",
		zap.String("user_id", userID.String()),
		zap.String("multiplier", multiplier.String()),
	)
	return nil
}

// Adjust applies a signed admin balance correction through the ledger.
func (s *Service) Adjust(ctx context.Context, userID uuid.UUID, amount money.Money, note string) error {
	if amount.IsZero() {
		return userdomain.ErrZeroAdjustment
	}

	var err error
	if amount.IsNegative() {
		_, err = s.ledger.Debit(ctx, userID, amount.Neg(), ledgerdomain.TypeAdjustment, note)
	} else {
		_, err = s.ledger.Credit(ctx, userID, amount, ledgerdomain.TypeAdjustment, note)
	}
	if err != nil {
		return err
	}

	s.log.Info("balance adjusted",
		zap.String("user_id", userID.String()),
		zap.Int64("amount_cents", amount.MinorUnits()),
	)
	return nil
}
