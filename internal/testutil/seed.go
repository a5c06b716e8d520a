package testutil

import (
	"fmt"
	"testing"
	"time"

	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	"github.com/cargovera/cargovera/internal/money"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedUser inserts a user with the given balance and multiplier.
func SeedUser(t *testing.T, db *gorm.DB, balanceCents int64, multiplier money.Multiplier) *userdomain.User {
	t.Helper()

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		BalanceCents: balanceCents,
		Multiplier:   multiplier,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedInventory inserts an active inventory row for the tuple.
func SeedInventory(t *testing.T, db *gorm.DB, ownerID, holderID uuid.UUID, available, reserved int64) *invdomain.Inventory {
	t.Helper()

	now := time.Now().UTC()
	inv := &invdomain.Inventory{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		OwnerID:      ownerID,
		HolderID:     holderID,
		AvailableQty: available,
		ReservedQty:  reserved,
		Status:       invdomain.StatusActive,
		Location:     "94103",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return inv
}
