package booths

import (
	"time"

	"github.com/google/uuid"
)

// Booth defines a sellable unit of floor space at an event. Booths are
// created once at floor-plan setup and never deleted; retiring one means
// marking it UNAVAILABLE.
type Booth struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_event_booth_number" json:"event_id"`
	Number    string    `gorm:"not null;uniqueIndex:idx_event_booth_number" json:"number"`
	SizeClass string    `gorm:"type:varchar(20);not null" json:"size_class"`
	Price     float64   `gorm:"not null;check:price >= 0" json:"price"`

	// Floor-plan rectangle. Opaque to the state machine, carried for clients.
	X int `gorm:"not null" json:"x"`
	Y int `gorm:"not null" json:"y"`
	W int `gorm:"not null" json:"w"`
	H int `gorm:"not null" json:"h"`

	Status    Status    `gorm:"type:varchar(20);check:status IN ('AVAILABLE', 'RESERVED', 'BOOKED', 'UNAVAILABLE');default:'AVAILABLE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Booth
func (Booth) TableName() string {
	return "booths"
}

// StatusView is the per-booth element of a resync snapshot.
type StatusView struct {
	BoothID uuid.UUID `json:"booth_id"`
	Status  Status    `json:"status"`
}
