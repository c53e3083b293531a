package reservations

import "time"

// ReservationBoothInfo represents one booth within a reservation response
type ReservationBoothInfo struct {
	BoothID string  `json:"booth_id"`
	Price   float64 `json:"price"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID          string                 `json:"id"`
	EventID     string                 `json:"event_id"`
	ExhibitorID string                 `json:"exhibitor_id"`
	Status      string                 `json:"status"`
	TotalPrice  float64                `json:"total_price"`
	Booths      []ReservationBoothInfo `json:"booths"`
	ReservedAt  time.Time              `json:"reserved_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
	ConfirmedAt *time.Time             `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time             `json:"released_at,omitempty"`
}

// ReservationListResponse represents a paged reservation listing
type ReservationListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Total        int64                 `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// ToResponse converts a Reservation to its API representation
func (r *Reservation) ToResponse() *ReservationResponse {
	resp := &ReservationResponse{
		ID:          r.ID.String(),
		EventID:     r.EventID.String(),
		ExhibitorID: r.ExhibitorID,
		Status:      r.Status.String(),
		TotalPrice:  r.TotalPrice,
		Booths:      make([]ReservationBoothInfo, len(r.Booths)),
		ReservedAt:  r.ReservedAt,
		ExpiresAt:   r.ExpiresAt,
		ConfirmedAt: r.ConfirmedAt,
		ReleasedAt:  r.ReleasedAt,
	}
	for i, rb := range r.Booths {
		resp.Booths[i] = ReservationBoothInfo{
			BoothID: rb.BoothID.String(),
			Price:   rb.Price,
		}
	}
	return resp
}
