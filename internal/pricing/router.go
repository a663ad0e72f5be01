package pricing

import (
	"ticketing/internal/shared/middleware"
	"ticketing/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupPricingRoutes mounts tier routes on the /seats group
func SetupPricingRoutes(seats *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	// Public catalog reads
	seats.GET("/event/:eventId/pricing", controller.GetEventPricing)     // GET /api/v1/seats/event/:eventId/pricing
	seats.GET("/venue/:venueId/pricing-tiers", controller.GetVenueTiers) // GET /api/v1/seats/venue/:venueId/pricing-tiers

	// Catalog writes; ownership is checked by the service
	seats.POST("/venue/:venueId/pricing-tiers", auth,
		middleware.RequireRoles(users.RoleVenueManager, users.RoleAdmin),
		controller.ReplaceVenueTiers) // POST /api/v1/seats/venue/:venueId/pricing-tiers
	seats.POST("/event/:eventId/pricing", auth,
		middleware.RequireRoles(users.RoleOrganizer, users.RoleAdmin),
		controller.UpsertEventTiers) // POST /api/v1/seats/event/:eventId/pricing
}
