// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	_ "ticketing/internal/docs"
	"ticketing/internal/holds"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services are the feature services the HTTP layer exposes
type Services struct {
	Pricing pricing.Service
	Seats   seats.Service
	Holds   holds.Service
	// Sweeper is nil when the expiry sweeper is disabled
	Sweeper *holds.Sweeper
}

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	services *Services
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, services *Services) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		services: services,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API documentation
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupSeatRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.db != nil {
			if err := r.db.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "seat-inventory",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "seat-inventory",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"storage":     r.config.StorageDriver,
			"timestamp":   time.Now(),
		}
		if r.services.Sweeper != nil {
			status["sweeper_running"] = r.services.Sweeper.GetStats().IsRunning
		}
		c.JSON(http.StatusOK, status)
	})
}

// setupSeatRoutes mounts the seat, pricing and reservation routers on /seats
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	auth := middleware.JWTAuthWithConfig(r.config)
	group := rg.Group("/seats")

	seats.SetupSeatRoutes(group, seats.NewController(r.services.Seats), auth)
	pricing.SetupPricingRoutes(group, pricing.NewController(r.services.Pricing), auth)

	var sweeperStats holds.StatsSource
	if r.services.Sweeper != nil {
		sweeperStats = r.services.Sweeper
	}
	holds.SetupHoldRoutes(group, holds.NewController(r.services.Holds, sweeperStats), auth)
}
