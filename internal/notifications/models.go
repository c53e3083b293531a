package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReservationEventType identifies a reservation lifecycle transition.
type ReservationEventType string

const (
	EventReservationCreated   ReservationEventType = "RESERVATION_CREATED"
	EventReservationConfirmed ReservationEventType = "RESERVATION_CONFIRMED"
	EventReservationCancelled ReservationEventType = "RESERVATION_CANCELLED"
	EventReservationExpired   ReservationEventType = "RESERVATION_EXPIRED"
	EventPaymentFailed        ReservationEventType = "PAYMENT_FAILED"
)

// ReservationEvent is the audit record published for every reservation
// lifecycle transition. Downstream consumers (billing, CRM, email) key off
// Type; the payload carries everything needed to render a message without
// a read back into the API.
type ReservationEvent struct {
	ID            uuid.UUID            `json:"id"`
	Type          ReservationEventType `json:"type"`
	ReservationID uuid.UUID            `json:"reservation_id"`
	EventID       uuid.UUID            `json:"event_id"`
	ExhibitorID   string               `json:"exhibitor_id"`
	BoothIDs      []uuid.UUID          `json:"booth_ids"`
	TotalPrice    float64              `json:"total_price,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewReservationEvent builds an event with a fresh ID and timestamp.
func NewReservationEvent(eventType ReservationEventType, reservationID, eventID uuid.UUID, exhibitorID string, boothIDs []uuid.UUID) *ReservationEvent {
	return &ReservationEvent{
		ID:            uuid.New(),
		Type:          eventType,
		ReservationID: reservationID,
		EventID:       eventID,
		ExhibitorID:   exhibitorID,
		BoothIDs:      boothIDs,
		OccurredAt:    time.Now().UTC(),
	}
}

// WithTotalPrice attaches the bundle price to the event.
func (e *ReservationEvent) WithTotalPrice(price float64) *ReservationEvent {
	e.TotalPrice = price
	return e
}

// WithReason attaches a release or failure reason to the event.
func (e *ReservationEvent) WithReason(reason string) *ReservationEvent {
	e.Reason = reason
	return e
}

// ToJSON serializes the event for the wire.
func (e *ReservationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes all events of one reservation to the same partition
// so consumers see its lifecycle in order.
func (e *ReservationEvent) PartitionKey() string {
	return e.ReservationID.String()
}
