package service

import (
	"context"
	"fmt"

	"github.com/cargovera/cargovera/internal/clock"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Gateway paydomain.Gateway
	Users   userdomain.Service
	Ledger  ledgerdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	gateway paydomain.Gateway
	users   userdomain.Service
	ledger  ledgerdomain.Service
}

func NewService(p Params) paydomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		clock:   p.Clock,
		gateway: p.Gateway,
		users:   p.Users,
		ledger:  p.Ledger,
	}
}

func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, amount money.Money) (*paydomain.Payment, error) {
	if amount.MinorUnits() <= 0 {
		return nil, paydomain.ErrInvalidAmount
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	intentID, err := s.gateway.CreateIntent(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := &paydomain.Payment{
		ID:          uuid.New(),
		UserID:      userID,
		IntentID:    intentID,
		AmountCents: amount.MinorUnits(),
		Status:      paydomain.StatusInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// HandleWebhook settles a deposit intent. The payment row is locked and the
// status checked under the lock, so redelivered events are a no-op and the
// balance is never credited twice.
func (s *Service) HandleWebhook(ctx context.Context, event paydomain.WebhookEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment paydomain.Payment
		err := tx.Raw(
			`SELECT * FROM payments WHERE intent_id = ? FOR UPDATE`, event.IntentID,
		).Scan(&payment).Error
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if payment.ID == uuid.Nil {
			return paydomain.ErrNotFound
		}
		if payment.Status != paydomain.StatusInitiated {
			s.log.Info("webhook redelivery ignored",
				zap.String("intent_id", event.IntentID),
				zap.String("status", string(payment.Status)),
			)
			return nil
		}

		now := s.clock.Now()
		switch event.Status {
		case paydomain.EventSucceeded:
			if _, err := s.ledger.CreditTx(ctx, tx, payment.UserID, payment.Amount(), ledgerdomain.TypeDeposit,
				fmt.Sprintf("deposit %s", payment.IntentID)); err != nil {
				return err
			}
			if err := tx.Exec(
				`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
				paydomain.StatusSuccess, now, payment.ID,
			).Error; err != nil {
				return fmt.Errorf("mark payment success: %w", err)
			}
		default:
			if err := tx.Exec(
				`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
				paydomain.StatusFailure, now, payment.ID,
			).Error; err != nil {
				return fmt.Errorf("mark payment failure: %w", err)
			}
		}
		return nil
	})
}
