package migration

import (
	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"gorm.io/gorm"
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&userdomain.User{},
		&ledgerdomain.Transaction{},
		&invdomain.Inventory{},
		&invdomain.InventoryTransaction{},
		&fulfilldomain.FulfillmentRequest{},
		&fulfilldomain.FulfillmentItem{},
		&labeldomain.Label{},
		&labeldomain.Order{},
		&paydomain.Payment{},
	)
}
