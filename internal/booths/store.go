package booths

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"expofloor/internal/shared/clock"
	"expofloor/pkg/logger"

	"github.com/google/uuid"
)

// ReleaseReason records why a hold was released.
type ReleaseReason string

const (
	ReleaseExpired   ReleaseReason = "expired"
	ReleaseCancelled ReleaseReason = "cancelled"
)

// StateStore is the sole authority for booth status. Every mutation of a
// booth goes through one of its operations; each booth carries its own
// mutex so a compare-and-swap is never interleaved with another attempt
// on the same booth. Snapshot reads take only the registry read-lock and
// tolerate brief staleness (the broadcast+resync contract covers them).
//
// Durable state is written through before in-memory state changes, with
// bounded retry; an operation whose write exhausts its retries fails and
// leaves memory at its pre-attempt state.
type StateStore struct {
	mu      sync.RWMutex
	booths  map[uuid.UUID]*boothEntry
	byEvent map[uuid.UUID][]uuid.UUID
	active  map[uuid.UUID]*activeReservation

	repo    Repository
	clk     clock.Clock
	log     *logger.Logger
	retries int
	backoff time.Duration
}

type boothEntry struct {
	mu            sync.Mutex
	booth         Booth
	reservationID uuid.UUID // uuid.Nil when no active reservation
}

// activeReservation tracks a pending or confirmed hold. Its mutex
// serializes confirm against release so a payment callback and the expiry
// sweep cannot mutate the same bundle concurrently. Lock order is
// reservation -> booth; the registry lock is never held across either.
type activeReservation struct {
	mu        sync.Mutex
	id        uuid.UUID
	eventID   uuid.UUID
	boothIDs  []uuid.UUID
	expiresAt time.Time
	confirmed bool
	released  bool
}

// StoreOption configures a StateStore.
type StoreOption func(*StateStore)

// WithPersistRetry sets the bounded retry policy for write-through failures.
func WithPersistRetry(attempts int, backoff time.Duration) StoreOption {
	return func(s *StateStore) {
		if attempts > 0 {
			s.retries = attempts
		}
		s.backoff = backoff
	}
}

func NewStateStore(repo Repository, clk clock.Clock, log *logger.Logger, opts ...StoreOption) *StateStore {
	s := &StateStore{
		booths:  make(map[uuid.UUID]*boothEntry),
		byEvent: make(map[uuid.UUID][]uuid.UUID),
		active:  make(map[uuid.UUID]*activeReservation),
		repo:    repo,
		clk:     clk,
		log:     log,
		retries: 3,
		backoff: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the in-memory registry from the repository. Booths left
// RESERVED by a previous process have lost their in-memory hold, so their
// status is reset to AVAILABLE; their reservation rows are reconciled by
// the reservations service at startup.
func (s *StateStore) Load(ctx context.Context) error {
	rows, err := s.repo.ListBooths(ctx)
	if err != nil {
		return fmt.Errorf("load booths: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range rows {
		if b.Status == StatusReserved {
			b.Status = StatusAvailable
			if err := s.repo.UpdateBoothStatus(ctx, b.ID, StatusAvailable); err != nil {
				return fmt.Errorf("reset stale hold on booth %s: %w", b.ID, err)
			}
		}
		s.booths[b.ID] = &boothEntry{booth: b}
		s.byEvent[b.EventID] = append(s.byEvent[b.EventID], b.ID)
	}
	return nil
}

// Register adds a newly created booth (floor-plan setup) to the registry.
func (s *StateStore) Register(booth Booth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.booths[booth.ID]; exists {
		return
	}
	s.booths[booth.ID] = &boothEntry{booth: booth}
	s.byEvent[booth.EventID] = append(s.byEvent[booth.EventID], booth.ID)
}

// TryReserve performs the atomic AVAILABLE -> RESERVED compare-and-swap
// for one booth on behalf of reservation resID. Exactly one of any number
// of concurrent attempts on the same booth succeeds; the rest get
// ErrBoothConflict.
func (s *StateStore) TryReserve(ctx context.Context, boothID, resID uuid.UUID, expiresAt time.Time) error {
	entry, ok := s.entry(boothID)
	if !ok {
		return fmt.Errorf("booth %s: %w", boothID, ErrNotFound)
	}

	entry.mu.Lock()
	if !entry.booth.Status.IsSellable() {
		status := entry.booth.Status
		entry.mu.Unlock()
		return fmt.Errorf("booth %s is %s: %w", entry.booth.Number, status, ErrBoothConflict)
	}

	if err := s.persistStatus(ctx, boothID, StatusReserved); err != nil {
		entry.mu.Unlock()
		return err
	}
	entry.booth.Status = StatusReserved
	entry.reservationID = resID
	eventID := entry.booth.EventID
	entry.mu.Unlock()

	s.mu.Lock()
	res, ok := s.active[resID]
	if !ok {
		res = &activeReservation{id: resID, eventID: eventID, expiresAt: expiresAt}
		s.active[resID] = res
	}
	res.boothIDs = append(res.boothIDs, boothID)
	s.mu.Unlock()

	return nil
}

// ConfirmReservation moves every booth of a still-pending, unexpired
// reservation to BOOKED. Past its expiry it fails with ErrHoldExpired no
// matter how it races the expiry sweep; confirming an already-confirmed
// reservation repeats its booth list without effect.
func (s *StateStore) ConfirmReservation(ctx context.Context, resID uuid.UUID) ([]uuid.UUID, error) {
	res, ok := s.reservation(resID)
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", resID, ErrNotFound)
	}

	res.mu.Lock()
	defer res.mu.Unlock()

	if res.released {
		return nil, fmt.Errorf("reservation %s: %w", resID, ErrNotFound)
	}
	if res.confirmed {
		return sorted(res.boothIDs), nil
	}
	if s.clk.Now().After(res.expiresAt) {
		return nil, fmt.Errorf("reservation %s: %w", resID, ErrHoldExpired)
	}

	boothIDs := sorted(res.boothIDs)
	var done []uuid.UUID
	for _, boothID := range boothIDs {
		if err := s.transition(ctx, boothID, resID, StatusBooked); err != nil {
			// Unwind the booths booked so far back to RESERVED so the
			// bundle stays at its pre-attempt state.
			for _, undo := range done {
				if uerr := s.forceStatus(ctx, undo, resID, StatusReserved); uerr != nil {
					s.log.ErrorWithContext(ctx, "confirm unwind failed", uerr,
						map[string]interface{}{"booth_id": undo, "reservation_id": resID})
				}
			}
			return nil, err
		}
		done = append(done, boothID)
	}

	res.confirmed = true
	return boothIDs, nil
}

// ReleaseReservation returns a reservation's booths to AVAILABLE and
// retires the hold. Releasing an unknown or already-terminal reservation
// is a no-op, not an error, which is what makes a fired-but-cancelled
// expiry race harmless.
func (s *StateStore) ReleaseReservation(ctx context.Context, resID uuid.UUID, reason ReleaseReason) ([]uuid.UUID, error) {
	res, ok := s.reservation(resID)
	if !ok {
		return nil, nil
	}

	res.mu.Lock()
	defer res.mu.Unlock()

	if res.released {
		return nil, nil
	}
	if res.confirmed {
		// BOOKED is terminal for the sale; neither expiry nor cancel touches it.
		return nil, nil
	}

	boothIDs := sorted(res.boothIDs)
	for _, boothID := range boothIDs {
		if err := s.forceStatus(ctx, boothID, resID, StatusAvailable); err != nil {
			return nil, err
		}
	}

	res.released = true
	s.mu.Lock()
	delete(s.active, resID)
	s.mu.Unlock()

	s.log.LogReservationReleased(ctx, resID.String(), string(reason))
	return boothIDs, nil
}

// MarkUnavailable is the administrative override taking a booth off sale.
// Rejected while any active reservation references the booth.
func (s *StateStore) MarkUnavailable(ctx context.Context, boothID uuid.UUID) error {
	return s.adminOverride(ctx, boothID, StatusUnavailable)
}

// MarkAvailable returns an UNAVAILABLE booth to sale.
func (s *StateStore) MarkAvailable(ctx context.Context, boothID uuid.UUID) error {
	return s.adminOverride(ctx, boothID, StatusAvailable)
}

func (s *StateStore) adminOverride(ctx context.Context, boothID uuid.UUID, target Status) error {
	entry, ok := s.entry(boothID)
	if !ok {
		return fmt.Errorf("booth %s: %w", boothID, ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.reservationID != uuid.Nil {
		return fmt.Errorf("booth %s: %w", entry.booth.Number, ErrActiveReservation)
	}
	if entry.booth.Status == target {
		return nil
	}
	if !entry.booth.Status.CanTransitionTo(target) {
		return fmt.Errorf("booth %s is %s: %w", entry.booth.Number, entry.booth.Status, ErrBoothConflict)
	}

	if err := s.persistStatus(ctx, boothID, target); err != nil {
		return err
	}
	entry.booth.Status = target
	return nil
}

// Booth returns a copy of a booth's current state.
func (s *StateStore) Booth(boothID uuid.UUID) (Booth, bool) {
	entry, ok := s.entry(boothID)
	if !ok {
		return Booth{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.booth, true
}

// EventBooths returns copies of every booth of an event, ordered by number.
func (s *StateStore) EventBooths(eventID uuid.UUID) []Booth {
	s.mu.RLock()
	ids := append([]uuid.UUID(nil), s.byEvent[eventID]...)
	s.mu.RUnlock()

	result := make([]Booth, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.Booth(id); ok {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result
}

// Snapshot is the resync payload for one event: every booth's identity and
// status. Reads are lock-free per booth beyond a brief entry lock; a
// snapshot concurrent with mutations may be momentarily stale, which the
// delta stream corrects.
func (s *StateStore) Snapshot(eventID uuid.UUID) []StatusView {
	booths := s.EventBooths(eventID)
	views := make([]StatusView, len(booths))
	for i, b := range booths {
		views[i] = StatusView{BoothID: b.ID, Status: b.Status}
	}
	return views
}

// KnownEvent reports whether any booth belongs to eventID.
func (s *StateStore) KnownEvent(eventID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEvent[eventID]) > 0
}

// transition applies old-state-checked transitions on behalf of resID.
func (s *StateStore) transition(ctx context.Context, boothID, resID uuid.UUID, target Status) error {
	entry, ok := s.entry(boothID)
	if !ok {
		return fmt.Errorf("booth %s: %w", boothID, ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.reservationID != resID {
		return fmt.Errorf("booth %s not held by reservation %s: %w", entry.booth.Number, resID, ErrNotFound)
	}
	if !entry.booth.Status.CanTransitionTo(target) {
		return fmt.Errorf("booth %s is %s: %w", entry.booth.Number, entry.booth.Status, ErrBoothConflict)
	}

	if err := s.persistStatus(ctx, boothID, target); err != nil {
		return err
	}
	entry.booth.Status = target
	return nil
}

// forceStatus resets a booth held by resID to target and clears the hold
// when the target is AVAILABLE. Used by release and by confirm unwind.
func (s *StateStore) forceStatus(ctx context.Context, boothID, resID uuid.UUID, target Status) error {
	entry, ok := s.entry(boothID)
	if !ok {
		return fmt.Errorf("booth %s: %w", boothID, ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.reservationID != resID {
		// Already released and possibly re-reserved by someone else.
		return nil
	}
	if entry.booth.Status == target {
		if target == StatusAvailable {
			entry.reservationID = uuid.Nil
		}
		return nil
	}

	if err := s.persistStatus(ctx, boothID, target); err != nil {
		return err
	}
	entry.booth.Status = target
	if target == StatusAvailable {
		entry.reservationID = uuid.Nil
	}
	return nil
}

// persistStatus writes the booth row through with bounded retry and
// exponential backoff. Memory is only mutated after this succeeds.
func (s *StateStore) persistStatus(ctx context.Context, boothID uuid.UUID, status Status) error {
	var err error
	backoff := s.backoff
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
		if err = s.repo.UpdateBoothStatus(ctx, boothID, status); err == nil {
			return nil
		}
	}
	return fmt.Errorf("persist booth %s status %s: %w", boothID, status, err)
}

func (s *StateStore) entry(boothID uuid.UUID) (*boothEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.booths[boothID]
	return entry, ok
}

func (s *StateStore) reservation(resID uuid.UUID) (*activeReservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.active[resID]
	return res, ok
}

func sorted(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
