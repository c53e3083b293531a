package broadcast

import (
	"testing"
	"time"

	"expofloor/internal/booths"
	"expofloor/pkg/logger"

	"github.com/google/uuid"
)

func update(boothID uuid.UUID, status booths.Status) StatusUpdate {
	return StatusUpdate{BoothID: boothID, Status: status, Timestamp: time.Now()}
}

func TestHub(t *testing.T) {
	log := logger.New()

	t.Run("subscriber receives published updates", func(t *testing.T) {
		hub := NewHub(log)
		eventID := uuid.New()

		ch, cancel := hub.Subscribe(eventID)
		defer cancel()

		boothID := uuid.New()
		hub.Publish(eventID, update(boothID, booths.StatusReserved))

		select {
		case got := <-ch:
			if got.BoothID != boothID || got.Status != booths.StatusReserved {
				t.Fatalf("got %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("update never arrived")
		}
	})

	t.Run("rooms are event scoped", func(t *testing.T) {
		hub := NewHub(log)
		eventA := uuid.New()
		eventB := uuid.New()

		chA, cancelA := hub.Subscribe(eventA)
		defer cancelA()
		chB, cancelB := hub.Subscribe(eventB)
		defer cancelB()

		hub.Publish(eventA, update(uuid.New(), booths.StatusBooked))

		select {
		case <-chA:
		case <-time.After(time.Second):
			t.Fatal("room A update never arrived")
		}
		select {
		case got := <-chB:
			t.Fatalf("room B received foreign update %+v", got)
		default:
		}
	})

	t.Run("publish to an empty room is a no-op", func(t *testing.T) {
		hub := NewHub(log)
		hub.Publish(uuid.New(), update(uuid.New(), booths.StatusAvailable))
	})

	t.Run("lagging subscriber drops instead of blocking", func(t *testing.T) {
		hub := NewHub(log)
		eventID := uuid.New()

		_, cancel := hub.Subscribe(eventID)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < subscriberBuffer*2; i++ {
				hub.Publish(eventID, update(uuid.New(), booths.StatusReserved))
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publish blocked on a lagging subscriber")
		}
		if hub.Dropped() == 0 {
			t.Fatal("drops were not counted")
		}
	})

	t.Run("last unsubscribe tears the room down", func(t *testing.T) {
		hub := NewHub(log)
		eventID := uuid.New()

		ch, cancel := hub.Subscribe(eventID)
		if hub.Subscribers(eventID) != 1 {
			t.Fatal("subscriber not registered")
		}

		cancel()
		cancel() // idempotent
		if hub.Subscribers(eventID) != 0 {
			t.Fatal("room not torn down")
		}

		// Channel is closed for the consumer.
		if _, open := <-ch; open {
			t.Fatal("channel still open after cancel")
		}

		// Publishing after teardown must not panic.
		hub.Publish(eventID, update(uuid.New(), booths.StatusAvailable))
	})
}
