package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the partial indexes gorm tags cannot express
func MigrateConstraints(db *gorm.DB) error {
	// Live venue catalog lookups
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pricing_tiers_venue_live
		ON pricing_tiers (venue_id)
		WHERE is_venue_tier = true AND deleted_at IS NULL;
	`).Error
	if err != nil {
		return err
	}

	// Live event catalog lookups
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pricing_tiers_event_live
		ON pricing_tiers (event_id)
		WHERE deleted_at IS NULL;
	`).Error
	if err != nil {
		return err
	}

	// Sweeper scan of pending holds by expiry
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_holds_pending_expiry
		ON holds (expires_at)
		WHERE state = 'pending';
	`).Error
	if err != nil {
		return err
	}

	return nil
}
