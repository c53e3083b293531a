package booths

// CreateBoothRequest is the floor-plan setup ingestion payload. Bounds
// checks ride on gin's validator bindings.
type CreateBoothRequest struct {
	Number    string  `json:"number" binding:"required,min=1,max=20"`
	SizeClass string  `json:"size_class" binding:"required,oneof=small medium large island"`
	Price     float64 `json:"price" binding:"required,gte=0"`
	X         int     `json:"x" binding:"gte=0"`
	Y         int     `json:"y" binding:"gte=0"`
	W         int     `json:"w" binding:"required,gt=0"`
	H         int     `json:"h" binding:"required,gt=0"`
}
