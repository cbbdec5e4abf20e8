package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models.
// The (event_id, email) unique index backs the duplicate-guest check.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Event{},
		&EventSettings{},
		&RSVP{},
	)
}
