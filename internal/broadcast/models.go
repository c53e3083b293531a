package broadcast

import (
	"time"

	"expofloor/internal/booths"

	"github.com/google/uuid"
)

// StatusUpdate is one booth status delta pushed to live floor-plan
// viewers. ReservationID is set only while the status ties the booth to a
// reservation.
type StatusUpdate struct {
	BoothID       uuid.UUID     `json:"booth_id"`
	Status        booths.Status `json:"status"`
	ReservationID *uuid.UUID    `json:"reservation_id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Snapshot is the full-state payload a new subscriber receives before any
// deltas, so it can converge regardless of what it missed.
type Snapshot struct {
	EventID uuid.UUID           `json:"event_id"`
	Booths  []booths.StatusView `json:"booths"`
	AsOf    time.Time           `json:"as_of"`
}
