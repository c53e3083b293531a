package booths

import "time"

// BoothResponse is the floor-plan representation of one booth.
type BoothResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Number    string    `json:"number"`
	SizeClass string    `json:"size_class"`
	Price     float64   `json:"price"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	W         int       `json:"w"`
	H         int       `json:"h"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts a Booth to its API shape.
func (b *Booth) ToResponse() BoothResponse {
	return BoothResponse{
		ID:        b.ID.String(),
		EventID:   b.EventID.String(),
		Number:    b.Number,
		SizeClass: b.SizeClass,
		Price:     b.Price,
		X:         b.X,
		Y:         b.Y,
		W:         b.W,
		H:         b.H,
		Status:    b.Status,
		UpdatedAt: b.UpdatedAt,
	}
}

// FloorPlanResponse is the full booth list for one event.
type FloorPlanResponse struct {
	EventID string          `json:"event_id"`
	Booths  []BoothResponse `json:"booths"`
}
