package reservations

import (
	"container/heap"
	"sync"
	"time"

	"expofloor/internal/shared/clock"
	"expofloor/pkg/logger"

	"github.com/google/uuid"
)

// expiryEntry is one heap slot. Entries are never removed from the heap
// on cancel; the live map is the source of truth and stale slots are
// skipped at pop time.
type expiryEntry struct {
	reservationID uuid.UUID
	expiresAt     time.Time
}

type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// ExpireFunc is invoked once per fired deadline, off the scheduler lock.
type ExpireFunc func(reservationID uuid.UUID)

// HoldExpiryScheduler fires a callback when a reservation's hold deadline
// passes. One goroutine sweeps a min-heap ordered by deadline; Cancel is
// O(1) via tombstoning, so a cancelled entry sitting in the heap is
// skipped when it surfaces. A deadline that fires while its Cancel is in
// flight is harmless because the release it triggers is idempotent.
type HoldExpiryScheduler struct {
	mu   sync.Mutex
	heap expiryHeap
	live map[uuid.UUID]time.Time

	clk      clock.Clock
	log      *logger.Logger
	onExpire ExpireFunc

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func NewHoldExpiryScheduler(clk clock.Clock, log *logger.Logger, onExpire ExpireFunc) *HoldExpiryScheduler {
	return &HoldExpiryScheduler{
		live:     make(map[uuid.UUID]time.Time),
		clk:      clk,
		log:      log,
		onExpire: onExpire,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the sweeper goroutine.
func (s *HoldExpiryScheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the sweeper and waits for it to exit. Pending deadlines are
// abandoned; startup reconciliation reschedules them on the next boot.
func (s *HoldExpiryScheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Schedule arms a deadline for a reservation. Scheduling the same
// reservation again replaces its deadline.
func (s *HoldExpiryScheduler) Schedule(reservationID uuid.UUID, expiresAt time.Time) {
	s.mu.Lock()
	s.live[reservationID] = expiresAt
	heap.Push(&s.heap, expiryEntry{reservationID: reservationID, expiresAt: expiresAt})
	s.mu.Unlock()
	s.poke()
}

// Cancel disarms a reservation's deadline. Returns true when a live entry
// was disarmed, false when it had already fired or was never scheduled.
// After Cancel returns true, the callback will never run for this entry.
func (s *HoldExpiryScheduler) Cancel(reservationID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[reservationID]; !ok {
		return false
	}
	delete(s.live, reservationID)
	return true
}

// Pending reports how many deadlines are armed.
func (s *HoldExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *HoldExpiryScheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *HoldExpiryScheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		due, next := s.collectDue()
		for _, reservationID := range due {
			s.onExpire(reservationID)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if next.IsZero() {
			timer.Reset(time.Hour)
		} else {
			d := next.Sub(s.clk.Now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
		}

		select {
		case <-timer.C:
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

// collectDue pops every deadline at or before now, skipping tombstoned
// slots, and returns the next live deadline (zero when the heap is idle).
func (s *HoldExpiryScheduler) collectDue() (due []uuid.UUID, next time.Time) {
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.heap.Len() > 0 {
		top := s.heap[0]
		liveAt, ok := s.live[top.reservationID]
		if !ok || !liveAt.Equal(top.expiresAt) {
			// Cancelled or superseded by a reschedule.
			heap.Pop(&s.heap)
			continue
		}
		if top.expiresAt.After(now) {
			next = top.expiresAt
			break
		}
		heap.Pop(&s.heap)
		delete(s.live, top.reservationID)
		due = append(due, top.reservationID)
	}
	return due, next
}
