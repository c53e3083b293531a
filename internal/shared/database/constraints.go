package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds indexes the reservation engine relies on beyond
// what AutoMigrate derives from struct tags.
func MigrateConstraints(db *gorm.DB) error {
	// Release and expiry paths look bundles up by booth.
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservation_booths_booth_id
		ON reservation_booths (booth_id);
	`).Error
	if err != nil {
		return err
	}

	// Startup reconciliation scans pending rows by deadline.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_status_expires
		ON reservations (status, expires_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
