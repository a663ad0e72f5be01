package pricing

import (
	"net/http"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetEventPricing godoc
// @Summary Effective pricing tiers for an event
// @Tags pricing
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=EventPricingResponse}
// @Failure 404 {object} response.StandardApiResponse
// @Router /seats/event/{eventId}/pricing [get]
func (c *Controller) GetEventPricing(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid event ID"))
		return
	}

	result, err := c.service.EffectiveTiers(ctx.Request.Context(), eventID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Pricing tiers retrieved successfully",
		EventPricingResponse{PricingTiers: result.Tiers, Source: result.Source}, nil)
}

// GetVenueTiers godoc
// @Summary Venue pricing catalog
// @Tags pricing
// @Produce json
// @Param venueId path string true "Venue ID"
// @Success 200 {object} response.StandardApiResponse{data=VenueTiersResponse}
// @Failure 404 {object} response.StandardApiResponse
// @Router /seats/venue/{venueId}/pricing-tiers [get]
func (c *Controller) GetVenueTiers(ctx *gin.Context) {
	venueID, err := uuid.Parse(ctx.Param("venueId"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid venue ID"))
		return
	}

	tiers, err := c.service.VenueTiers(ctx.Request.Context(), venueID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Venue pricing tiers retrieved successfully",
		VenueTiersResponse{PricingTiers: tiers}, nil)
}

// ReplaceVenueTiers godoc
// @Summary Replace the venue pricing catalog
// @Tags pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param venueId path string true "Venue ID"
// @Param request body ReplaceVenueTiersRequest true "New catalog"
// @Success 200 {object} response.StandardApiResponse{data=VenueTiersResponse}
// @Failure 400,403,404,409 {object} response.StandardApiResponse
// @Router /seats/venue/{venueId}/pricing-tiers [post]
func (c *Controller) ReplaceVenueTiers(ctx *gin.Context) {
	venueID, err := uuid.Parse(ctx.Param("venueId"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid venue ID"))
		return
	}
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ReplaceVenueTiersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	tiers, err := c.service.ReplaceVenueTiers(ctx.Request.Context(), actor, venueID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Venue pricing tiers replaced successfully",
		VenueTiersResponse{PricingTiers: tiers}, nil)
}

// UpsertEventTiers godoc
// @Summary Create or update event pricing tiers
// @Tags pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Param request body UpsertEventTiersRequest true "Tiers"
// @Success 200 {object} response.StandardApiResponse{data=UpsertEventTiersResponse}
// @Failure 400,403,404 {object} response.StandardApiResponse
// @Router /seats/event/{eventId}/pricing [post]
func (c *Controller) UpsertEventTiers(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid event ID"))
		return
	}
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req UpsertEventTiersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	results, err := c.service.UpsertEventTiers(ctx.Request.Context(), actor, eventID, req.Tiers)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event pricing tiers saved successfully",
		UpsertEventTiersResponse{Results: results}, nil)
}
