package booths

// Status is the booth state machine's closed set of states.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusReserved    Status = "RESERVED"
	StatusBooked      Status = "BOOKED"
	StatusUnavailable Status = "UNAVAILABLE"
)

// IsValid checks if the booth status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusBooked, StatusUnavailable:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine permits s -> next.
// available -> reserved (tryReserve), reserved -> booked (confirm),
// reserved -> available (release), available <-> unavailable (admin only).
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusAvailable:
		return next == StatusReserved || next == StatusUnavailable
	case StatusReserved:
		return next == StatusBooked || next == StatusAvailable
	case StatusUnavailable:
		return next == StatusAvailable
	}
	// BOOKED is terminal for the sale.
	return false
}

// IsSellable reports whether a reserve attempt may target this status.
func (s Status) IsSellable() bool {
	return s == StatusAvailable
}
