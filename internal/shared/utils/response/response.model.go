package response

// StandardApiResponse is the envelope every expofloor endpoint replies
// with, success and error alike.
type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // mirrors the HTTP status
	Message    string      `json:"message"`          // short outcome description
	Data       interface{} `json:"data,omitempty"`   // floor plans, reservations, etc.
	Errors     interface{} `json:"errors,omitempty"` // binding or domain error details
}
