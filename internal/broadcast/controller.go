package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"

	"expofloor/internal/booths"
	"expofloor/internal/shared/clock"
	"expofloor/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	hub   *Hub
	store *booths.StateStore
	clk   clock.Clock
}

func NewController(hub *Hub, store *booths.StateStore, clk clock.Clock) *Controller {
	return &Controller{hub: hub, store: store, clk: clk}
}

// StreamFloorPlan handles GET /events/:eventId/stream as an SSE stream.
// The subscription is opened before the snapshot is taken, so any delta
// racing the snapshot is either already inside it or queued behind it;
// the client converges either way.
func (c *Controller) StreamFloorPlan(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid event ID", nil, nil)
		return
	}
	if !c.store.KnownEvent(eventID) {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "event has no floor plan", nil, nil)
		return
	}

	flusher, ok := ctx.Writer.(http.Flusher)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "streaming unsupported", nil, nil)
		return
	}

	updates, cancel := c.hub.Subscribe(eventID)
	defer cancel()

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")
	ctx.Writer.WriteHeader(http.StatusOK)

	snapshot := Snapshot{
		EventID: eventID,
		Booths:  c.store.Snapshot(eventID),
		AsOf:    c.clk.Now(),
	}
	if err := writeSSE(ctx.Writer, "snapshot", snapshot); err != nil {
		return
	}
	flusher.Flush()

	clientGone := ctx.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case update, open := <-updates:
			if !open {
				return
			}
			if err := writeSSE(ctx.Writer, "update", update); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
