package broadcast

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expofloor/internal/booths"
	"expofloor/internal/shared/clock"
	"expofloor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubBoothRepo struct {
	rows []booths.Booth
}

func (s *stubBoothRepo) ListBooths(ctx context.Context) ([]booths.Booth, error) {
	return s.rows, nil
}

func (s *stubBoothRepo) GetBoothByID(ctx context.Context, id uuid.UUID) (*booths.Booth, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			b := s.rows[i]
			return &b, nil
		}
	}
	return nil, booths.ErrNotFound
}

func (s *stubBoothRepo) CreateBooth(ctx context.Context, booth *booths.Booth) error {
	s.rows = append(s.rows, *booth)
	return nil
}

func (s *stubBoothRepo) UpdateBoothStatus(ctx context.Context, id uuid.UUID, status booths.Status) error {
	return nil
}

// sseEvent is one event/data pair read off the stream.
type sseEvent struct {
	name string
	data string
}

// readSSE parses event blocks from the response body and pushes them on a
// channel until the body closes.
func readSSE(t *testing.T, body *bufio.Scanner) <-chan sseEvent {
	t.Helper()
	out := make(chan sseEvent, 8)
	go func() {
		defer close(out)
		var ev sseEvent
		for body.Scan() {
			line := body.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				if ev.name != "" {
					out <- ev
					ev = sseEvent{}
				}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, open := <-events:
		if !open {
			t.Fatal("stream closed before expected event")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
	}
	return sseEvent{}
}

func newStreamServer(t *testing.T, seeded []booths.Booth) (*httptest.Server, *booths.StateStore, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &stubBoothRepo{rows: seeded}
	store := booths.NewStateStore(repo, clock.NewSystem(), logger.New())
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load store: %v", err)
	}

	log := logger.New()
	hub := NewHub(log)
	engine := gin.New()
	SetupBroadcastRoutes(engine.Group("/api/v1"), NewController(hub, store, clock.NewSystem()))

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, store, hub
}

func TestStreamFloorPlan(t *testing.T) {
	eventID := uuid.New()
	boothA := booths.Booth{ID: uuid.New(), EventID: eventID, Number: "A-01", SizeClass: "small", Price: 500, Status: booths.StatusAvailable}
	boothB := booths.Booth{ID: uuid.New(), EventID: eventID, Number: "A-02", SizeClass: "large", Price: 2500, Status: booths.StatusBooked}

	t.Run("late subscriber converges via snapshot then deltas", func(t *testing.T) {
		srv, store, hub := newStreamServer(t, []booths.Booth{boothA, boothB})

		resp, err := http.Get(srv.URL + "/api/v1/events/" + eventID.String() + "/stream")
		if err != nil {
			t.Fatalf("open stream: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
			t.Fatalf("content type = %q", got)
		}

		events := readSSE(t, bufio.NewScanner(resp.Body))

		snap := nextEvent(t, events)
		if snap.name != "snapshot" {
			t.Fatalf("first event = %q, want snapshot", snap.name)
		}
		for _, b := range []booths.Booth{boothA, boothB} {
			if !strings.Contains(snap.data, b.ID.String()) {
				t.Fatalf("snapshot missing booth %s: %s", b.Number, snap.data)
			}
		}
		if !strings.Contains(snap.data, string(booths.StatusBooked)) {
			t.Fatalf("snapshot does not reflect booked booth: %s", snap.data)
		}

		resID := uuid.New()
		if err := store.TryReserve(context.Background(), boothA.ID, resID, time.Now().Add(time.Minute)); err != nil {
			t.Fatalf("reserve booth: %v", err)
		}
		hub.Publish(eventID, StatusUpdate{
			BoothID:       boothA.ID,
			Status:        booths.StatusReserved,
			ReservationID: &resID,
			Timestamp:     time.Now().UTC(),
		})

		update := nextEvent(t, events)
		if update.name != "update" {
			t.Fatalf("second event = %q, want update", update.name)
		}
		if !strings.Contains(update.data, boothA.ID.String()) || !strings.Contains(update.data, string(booths.StatusReserved)) {
			t.Fatalf("update payload = %s", update.data)
		}
	})

	t.Run("unknown event rejected", func(t *testing.T) {
		srv, _, _ := newStreamServer(t, []booths.Booth{boothA})

		resp, err := http.Get(srv.URL + "/api/v1/events/" + uuid.NewString() + "/stream")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("malformed event id rejected", func(t *testing.T) {
		srv, _, _ := newStreamServer(t, []booths.Booth{boothA})

		resp, err := http.Get(srv.URL + "/api/v1/events/not-a-uuid/stream")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}
