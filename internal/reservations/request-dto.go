package reservations

// ReserveBundleRequest represents a bundle reservation request
type ReserveBundleRequest struct {
	EventID       string   `json:"event_id" binding:"required,uuid"`
	BoothIDs      []string `json:"booth_ids" binding:"required,min=1,dive,uuid"`
	PaymentMethod string   `json:"payment_method" binding:"required"`
}

// PaymentCallbackRequest represents a payment provider webhook payload
type PaymentCallbackRequest struct {
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	Succeeded     bool   `json:"succeeded"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}
