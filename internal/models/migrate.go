package models

import (
	"fmt"

	"gorm.io/gorm"
)

// returnOrderIndex enforces one return per order
const returnOrderIndex = "idx_returns_order"

// Migrate creates or updates the schema for orders and returns
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Order{},
		&OrderItem{},
		&OrderTimeline{},
		&Return{},
		&ReturnItem{},
		&ReturnTimeline{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return VerifyReturnIndex(db)
}

// VerifyReturnIndex checks that the one-return-per-order unique index exists.
// Creating a return relies on it to reject a concurrent duplicate.
func VerifyReturnIndex(db *gorm.DB) error {
	if !db.Migrator().HasIndex(&Return{}, returnOrderIndex) {
		return fmt.Errorf("unique index %s on returns.order_id is missing", returnOrderIndex)
	}
	return nil
}
