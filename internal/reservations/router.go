package reservations

import (
	"expofloor/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, webhookSecret string) {

	// EXHIBITOR RESERVATION OPERATIONS

	reservations := rg.Group("/reservations")
	reservations.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleExhibitor, middleware.RoleAdmin))
	{
		reservations.POST("", controller.ReserveBundle)          // POST /api/v1/reservations
		reservations.GET("", controller.ListMyReservations)      // GET /api/v1/reservations
		reservations.GET("/:id", controller.GetReservation)      // GET /api/v1/reservations/:id
		reservations.POST("/:id/cancel", controller.CancelReservation) // POST /api/v1/reservations/:id/cancel
	}

	// PAYMENT PROVIDER WEBHOOK

	payments := rg.Group("/payments")
	payments.Use(middleware.WebhookAuth(webhookSecret))
	{
		payments.POST("/callback", controller.PaymentCallback) // POST /api/v1/payments/callback
	}
}
