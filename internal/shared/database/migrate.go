package database

import (
	"expofloor/internal/booths"
	"expofloor/internal/reservations"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&booths.Booth{},
		&reservations.Reservation{},
		&reservations.ReservationBooth{},
	)
}
