package seats

import (
	"ticketing/internal/shared/middleware"
	"ticketing/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupSeatRoutes mounts seat routes on the /seats group
func SetupSeatRoutes(seats *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	// Public read paths
	seats.GET("/event/:eventId", controller.GetEventSeats)                    // GET /api/v1/seats/event/:eventId
	seats.GET("/event/:eventId/map", controller.GetSeatMap)                   // GET /api/v1/seats/event/:eventId/map
	seats.GET("/event/:eventId/stats", controller.GetSeatStats)               // GET /api/v1/seats/event/:eventId/stats
	seats.GET("/event/:eventId/section/:section", controller.GetSectionSeats) // GET /api/v1/seats/event/:eventId/section/:section

	// Layout authoring
	seats.POST("/create-batch", auth,
		middleware.RequireRoles(users.RoleVenueManager, users.RoleOrganizer, users.RoleAdmin),
		controller.CreateBatch) // POST /api/v1/seats/create-batch
}
