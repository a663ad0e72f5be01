package database

import (
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/payments"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/venues"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&venues.Venue{},
		&events.Event{},
		&pricing.PricingTier{},
		&seats.Seat{},
		&holds.Hold{},
		&holds.HoldSeat{},
		&payments.Payment{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
