package reservations

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is one exhibitor's hold on a bundle of booths. A bundle
// shares one record, one expiry deadline, and one status; its booths live
// in reservation_booths child rows.
type Reservation struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	ExhibitorID string     `gorm:"type:varchar(64);index;not null" json:"exhibitor_id"`
	Status      Status     `gorm:"type:varchar(20);check:status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'EXPIRED');default:'PENDING'" json:"status"`
	TotalPrice  float64    `gorm:"not null" json:"total_price"`
	ReservedAt  time.Time  `gorm:"not null" json:"reserved_at"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Booths []ReservationBooth `json:"booths,omitempty" gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE;"`
}

// ReservationBooth is one booth's membership in a bundle, with the price
// it was held at.
type ReservationBooth struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReservationID uuid.UUID `gorm:"type:uuid;index;not null" json:"reservation_id"`
	BoothID       uuid.UUID `gorm:"type:uuid;index;not null" json:"booth_id"`
	Price         float64   `gorm:"not null" json:"price"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName sets the table name for Reservation
func (Reservation) TableName() string {
	return "reservations"
}

// TableName sets the table name for ReservationBooth
func (ReservationBooth) TableName() string {
	return "reservation_booths"
}

// BoothIDs returns the bundle's booth IDs in child-row order.
func (r *Reservation) BoothIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Booths))
	for i, rb := range r.Booths {
		ids[i] = rb.BoothID
	}
	return ids
}
