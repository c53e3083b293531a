package booths

import "errors"

// Domain error taxonomy for the booth inventory engine. Handlers map these
// onto HTTP statuses; everything else is a 500.
var (
	// ErrBoothConflict means the booth was no longer available at the moment
	// of the compare-and-swap. Not retried automatically.
	ErrBoothConflict = errors.New("booth no longer available")

	// ErrHoldExpired means the hold lapsed between the confirm attempt and
	// payment completion. Distinct from ErrBoothConflict: the caller owes a
	// compensating refund.
	ErrHoldExpired = errors.New("reservation hold has expired")

	// ErrNotFound covers unknown booths and unknown or terminal reservations.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers bundle-size and unknown-event rejections.
	ErrValidation = errors.New("validation failed")

	// ErrPaymentFailed is propagated from the payment collaborator.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrActiveReservation rejects admin overrides while a hold or booking
	// references the booth.
	ErrActiveReservation = errors.New("booth has an active reservation")
)
