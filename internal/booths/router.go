package booths

import (
	"expofloor/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupBoothRoutes(rg *gin.RouterGroup, controller *Controller) {

	// PUBLIC FLOOR PLAN READS

	events := rg.Group("/events")
	{
		events.GET("/:eventId/booths", controller.GetFloorPlan) // GET /api/v1/events/:eventId/booths
	}

	booths := rg.Group("/booths")
	{
		booths.GET("/:id", controller.GetBooth) // GET /api/v1/booths/:id
	}

	// ADMIN FLOOR PLAN MANAGEMENT

	adminEvents := rg.Group("/admin/events")
	adminEvents.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminEvents.POST("/:eventId/booths", controller.CreateBooth) // POST /api/v1/admin/events/:eventId/booths
	}

	adminBooths := rg.Group("/admin/booths")
	adminBooths.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminBooths.PATCH("/:id/unavailable", controller.MarkUnavailable) // PATCH /api/v1/admin/booths/:id/unavailable
		adminBooths.PATCH("/:id/available", controller.MarkAvailable)     // PATCH /api/v1/admin/booths/:id/available
	}
}
