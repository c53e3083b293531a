package reservations

import (
	"errors"
	"net/http"
	"strconv"

	"expofloor/internal/booths"
	"expofloor/internal/shared/middleware"
	"expofloor/internal/shared/utils/response"
	"expofloor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	coordinator *Coordinator
}

func NewController(coordinator *Coordinator) *Controller {
	return &Controller{coordinator: coordinator}
}

// ReserveBundle handles POST /reservations
func (c *Controller) ReserveBundle(ctx *gin.Context) {
	exhibitorID := middleware.ExhibitorID(ctx)
	if exhibitorID == "" {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "exhibitor identity required", nil, nil)
		return
	}

	var req ReserveBundleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid request body", nil, err.Error())
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid event ID", nil, nil)
		return
	}
	boothIDs := make([]uuid.UUID, len(req.BoothIDs))
	for i, raw := range req.BoothIDs {
		boothIDs[i], err = uuid.Parse(raw)
		if err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid booth ID", nil, nil)
			return
		}
	}

	idempotencyKey := ctx.GetHeader("Idempotency-Key")

	resp, err := c.coordinator.ReserveBundle(ctx.Request.Context(), exhibitorID, eventID, boothIDs, req.PaymentMethod, idempotencyKey)
	if err != nil {
		status, message := mapDomainError(err)
		response.RespondJSON(ctx, "error", status, message, nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "booths reserved", resp, nil)
}

// GetReservation handles GET /reservations/:id
func (c *Controller) GetReservation(ctx *gin.Context) {
	reservationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid reservation ID", nil, nil)
		return
	}

	reservation, err := c.coordinator.GetReservation(ctx.Request.Context(), reservationID)
	if err != nil {
		status, message := mapDomainError(err)
		response.RespondJSON(ctx, "error", status, message, nil, nil)
		return
	}

	// Exhibitors see only their own reservations; admins see all.
	exhibitorID := middleware.ExhibitorID(ctx)
	role, _ := ctx.Get("exhibitor_role")
	if role != middleware.RoleAdmin && reservation.ExhibitorID != exhibitorID {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "reservation not found", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "reservation retrieved", reservation.ToResponse(), nil)
}

// ListMyReservations handles GET /reservations
func (c *Controller) ListMyReservations(ctx *gin.Context) {
	exhibitorID := middleware.ExhibitorID(ctx)
	if exhibitorID == "" {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "exhibitor identity required", nil, nil)
		return
	}

	limit := parsePositive(ctx.DefaultQuery("limit", "20"), 20)
	if limit > 100 {
		limit = 100
	}
	offset := parsePositive(ctx.DefaultQuery("offset", "0"), 0)

	reservations, total, err := c.coordinator.ListExhibitorReservations(ctx.Request.Context(), exhibitorID, limit, offset)
	if err != nil {
		logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "list reservations failed", err,
			map[string]interface{}{"exhibitor_id": exhibitorID})
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "failed to list reservations", nil, nil)
		return
	}

	resp := ReservationListResponse{
		Reservations: make([]ReservationResponse, len(reservations)),
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}
	for i := range reservations {
		resp.Reservations[i] = *reservations[i].ToResponse()
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "reservations retrieved", resp, nil)
}

// CancelReservation handles POST /reservations/:id/cancel
func (c *Controller) CancelReservation(ctx *gin.Context) {
	reservationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid reservation ID", nil, nil)
		return
	}

	exhibitorID := middleware.ExhibitorID(ctx)
	role, _ := ctx.Get("exhibitor_role")
	isAdmin := role == middleware.RoleAdmin

	if err := c.coordinator.CancelReservation(ctx.Request.Context(), reservationID, exhibitorID, isAdmin); err != nil {
		status, message := mapDomainError(err)
		response.RespondJSON(ctx, "error", status, message, nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "reservation cancelled", nil, nil)
}

// PaymentCallback handles POST /payments/callback (provider webhook)
func (c *Controller) PaymentCallback(ctx *gin.Context) {
	var req PaymentCallbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid callback body", nil, err.Error())
		return
	}

	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "invalid reservation ID", nil, nil)
		return
	}

	outcome := PaymentOutcome{
		Succeeded:     req.Succeeded,
		TransactionID: req.TransactionID,
		Reason:        req.Reason,
	}
	if err := c.coordinator.OnPaymentResult(ctx.Request.Context(), reservationID, outcome); err != nil {
		status, message := mapDomainError(err)
		response.RespondJSON(ctx, "error", status, message, nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "payment settled", nil, nil)
}

// mapDomainError translates the domain error taxonomy to HTTP codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, booths.ErrBoothConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, booths.ErrHoldExpired):
		return http.StatusGone, err.Error()
	case errors.Is(err, booths.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booths.ErrNotFound):
		return http.StatusNotFound, "reservation or booth not found"
	case errors.Is(err, booths.ErrPaymentFailed):
		return http.StatusPaymentRequired, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
