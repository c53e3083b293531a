package booths

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"expofloor/internal/shared/utils/response"
	"expofloor/pkg/cache"
	"expofloor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	store       *StateStore
	repo        Repository
	cache       cache.Service
	snapshotTTL time.Duration
}

func NewController(store *StateStore, repo Repository, cacheService cache.Service, snapshotTTL time.Duration) *Controller {
	return &Controller{
		store:       store,
		repo:        repo,
		cache:       cacheService,
		snapshotTTL: snapshotTTL,
	}
}

// GetFloorPlan handles GET /events/:eventId/booths
func (c *Controller) GetFloorPlan(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid event ID", nil, nil)
		return
	}

	if !c.store.KnownEvent(eventID) {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "event has no floor plan", nil, nil)
		return
	}

	resp := c.floorPlan(ctx, eventID)
	response.RespondJSON(ctx, "success", http.StatusOK, "floor plan retrieved", resp, nil)
}

// GetBooth handles GET /booths/:id
func (c *Controller) GetBooth(ctx *gin.Context) {
	boothID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid booth ID", nil, nil)
		return
	}

	booth, ok := c.store.Booth(boothID)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "booth not found", nil, nil)
		return
	}

	resp := booth.ToResponse()
	response.RespondJSON(ctx, "success", http.StatusOK, "booth retrieved", resp, nil)
}

// CreateBooth handles POST /admin/events/:eventId/booths. This is the
// ingestion point for external floor-plan setup; the state machine owns
// the booth from here on.
func (c *Controller) CreateBooth(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid event ID", nil, nil)
		return
	}

	var req CreateBoothRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid request body", nil, err.Error())
		return
	}

	booth := Booth{
		ID:        uuid.New(),
		EventID:   eventID,
		Number:    req.Number,
		SizeClass: req.SizeClass,
		Price:     req.Price,
		X:         req.X,
		Y:         req.Y,
		W:         req.W,
		H:         req.H,
		Status:    StatusAvailable,
	}

	if err := c.repo.CreateBooth(ctx.Request.Context(), &booth); err != nil {
		logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "create booth failed", err,
			map[string]interface{}{"event_id": eventID})
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "failed to create booth", nil, nil)
		return
	}
	c.store.Register(booth)
	c.invalidateFloorPlan(ctx.Request.Context(), eventID)

	resp := booth.ToResponse()
	response.RespondJSON(ctx, "success", http.StatusCreated, "booth created", resp, nil)
}

// MarkUnavailable handles PATCH /admin/booths/:id/unavailable
func (c *Controller) MarkUnavailable(ctx *gin.Context) {
	c.adminOverride(ctx, c.store.MarkUnavailable, "booth taken off sale")
}

// MarkAvailable handles PATCH /admin/booths/:id/available
func (c *Controller) MarkAvailable(ctx *gin.Context) {
	c.adminOverride(ctx, c.store.MarkAvailable, "booth returned to sale")
}

func (c *Controller) adminOverride(ctx *gin.Context, op func(context.Context, uuid.UUID) error, message string) {
	boothID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid booth ID", nil, nil)
		return
	}

	if err := op(ctx.Request.Context(), boothID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "booth not found", nil, nil)
		case errors.Is(err, ErrActiveReservation), errors.Is(err, ErrBoothConflict):
			response.RespondJSON(ctx, "error", http.StatusConflict, err.Error(), nil, nil)
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "override failed", nil, nil)
		}
		return
	}

	booth, _ := c.store.Booth(boothID)
	c.invalidateFloorPlan(ctx.Request.Context(), booth.EventID)
	resp := booth.ToResponse()
	response.RespondJSON(ctx, "success", http.StatusOK, message, resp, nil)
}

func (c *Controller) floorPlan(ctx *gin.Context, eventID uuid.UUID) FloorPlanResponse {
	build := func() FloorPlanResponse {
		booths := c.store.EventBooths(eventID)
		resp := FloorPlanResponse{EventID: eventID.String(), Booths: make([]BoothResponse, len(booths))}
		for i, b := range booths {
			resp.Booths[i] = b.ToResponse()
		}
		return resp
	}

	if c.cache == nil {
		return build()
	}

	var cached FloorPlanResponse
	key := floorPlanCacheKey(eventID)
	err := c.cache.GetOrSet(ctx.Request.Context(), key, c.snapshotTTL,
		func() (interface{}, error) { return build(), nil }, &cached)
	if err != nil {
		return build()
	}
	return cached
}

func (c *Controller) invalidateFloorPlan(ctx context.Context, eventID uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, floorPlanCacheKey(eventID)); err != nil {
		logger.GetDefault().Debug(fmt.Sprintf("floor plan cache invalidation failed: %v", err))
	}
}

func floorPlanCacheKey(eventID uuid.UUID) string {
	return "expofloor:floorplan:" + eventID.String()
}
