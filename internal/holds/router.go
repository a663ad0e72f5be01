package holds

import (
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupHoldRoutes mounts reservation routes on the /seats group
func SetupHoldRoutes(seats *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	reservations := seats.Group("")
	reservations.Use(auth)
	{
		reservations.POST("/reserve", controller.Reserve)                        // POST /api/v1/seats/reserve
		reservations.POST("/release", controller.Release)                        // POST /api/v1/seats/release
		reservations.POST("/confirm", controller.Confirm)                        // POST /api/v1/seats/confirm
		reservations.GET("/reservations", controller.ListReservations)           // GET /api/v1/seats/reservations
		reservations.GET("/reservations/:id", controller.GetReservation)         // GET /api/v1/seats/reservations/:id
		reservations.POST("/reservations/:id/payment", controller.AttachPayment) // POST /api/v1/seats/reservations/:id/payment
	}

	admin := seats.Group("/admin")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.GET("/sweeper", controller.GetSweeperStats) // GET /api/v1/seats/admin/sweeper
	}
}
