// Package testutil provides the shared sqlite-backed test database.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenTestDB opens an isolated in-memory sqlite database with every table
// migrated. sqlite has no SELECT ... FOR UPDATE, so the locking clause is
// stripped by a callback and serialization comes from the single connection.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.Callback().Query().Before("gorm:query").Register("test:strip_for_update", stripForUpdate); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	if err := conn.Callback().Row().Before("gorm:row").Register("test:strip_for_update_row", stripForUpdate); err != nil {
		t.Fatalf("register row callback: %v", err)
	}

	if err := conn.AutoMigrate(
		&userdomain.User{},
		&ledgerdomain.Transaction{},
		&invdomain.Inventory{},
		&invdomain.InventoryTransaction{},
		&fulfilldomain.FulfillmentRequest{},
		&fulfilldomain.FulfillmentItem{},
		&labeldomain.Label{},
		&labeldomain.Order{},
		&paydomain.Payment{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}

func stripForUpdate(db *gorm.DB) {
	sql := db.Statement.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		return
	}
	db.Statement.SQL.Reset()
	db.Statement.SQL.WriteString(strings.ReplaceAll(sql, "FOR UPDATE", ""))
}
