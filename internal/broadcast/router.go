package broadcast

import "github.com/gin-gonic/gin"

func SetupBroadcastRoutes(rg *gin.RouterGroup, controller *Controller) {
	events := rg.Group("/events")
	{
		events.GET("/:eventId/stream", controller.StreamFloorPlan) // GET /api/v1/events/:eventId/stream
	}
}
