package seats

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

func parseEventID(ctx *gin.Context) (uuid.UUID, bool) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid event ID"))
		return uuid.Nil, false
	}
	return eventID, true
}

// GetEventSeats godoc
// @Summary List an event's seats
// @Tags seats
// @Produce json
// @Param eventId path string true "Event ID"
// @Param section query string false "Section"
// @Param row query string false "Row"
// @Param status query string false "Seat status"
// @Success 200 {object} response.StandardApiResponse{data=ListSeatsResponse}
// @Failure 404 {object} response.StandardApiResponse
// @Router /seats/event/{eventId} [get]
func (c *Controller) GetEventSeats(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	var query ListSeatsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	views, err := c.service.LoadSeats(ctx.Request.Context(), eventID, Filter{
		Section: query.Section,
		Row:     query.Row,
		Status:  SeatStatus(query.Status),
	})
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats retrieved successfully",
		ListSeatsResponse{Seats: views, TotalSeats: len(views)}, nil)
}

// GetSeatMap godoc
// @Summary Seat map grouped by section with tiers and statistics
// @Tags seats
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=SeatMapResponse}
// @Failure 404 {object} response.StandardApiResponse
// @Router /seats/event/{eventId}/map [get]
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	seatMap, err := c.service.SeatMap(ctx.Request.Context(), eventID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

// GetSeatStats godoc
// @Summary Seat counts, revenue and occupancy for an event
// @Tags seats
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=StatsResponse}
// @Router /seats/event/{eventId}/stats [get]
func (c *Controller) GetSeatStats(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	stats, err := c.service.Stats(ctx.Request.Context(), eventID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat statistics retrieved successfully", stats, nil)
}

// GetSectionSeats godoc
// @Summary Paged seats of one section
// @Tags seats
// @Produce json
// @Param eventId path string true "Event ID"
// @Param section path string true "Section"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse{data=SectionSeatsResponse}
// @Failure 404 {object} response.StandardApiResponse
// @Router /seats/event/{eventId}/section/{section} [get]
func (c *Controller) GetSectionSeats(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	var query SectionSeatsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := c.service.SeatsBySection(ctx.Request.Context(), eventID, ctx.Param("section"), query.Page, query.Limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Section seats retrieved successfully", result, nil)
}

// CreateBatch godoc
// @Summary Author the seat layout of an event
// @Tags seats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSeatsRequest true "Seats"
// @Success 201 {object} response.StandardApiResponse{data=CreateSeatsResponse}
// @Failure 400,403,404,409 {object} response.StandardApiResponse
// @Router /seats/create-batch [post]
func (c *Controller) CreateBatch(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	created, err := c.service.CreateSeats(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats created successfully",
		CreateSeatsResponse{Seats: created, Count: len(created)}, nil)
}
