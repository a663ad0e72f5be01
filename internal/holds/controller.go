package holds

import (
	"net/http"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatsSource exposes sweeper counters to the admin route
type StatsSource interface {
	GetStats() SweeperStats
}

type Controller struct {
	service Service
	sweeper StatsSource
}

func NewController(service Service, sweeper StatsSource) *Controller {
	return &Controller{service: service, sweeper: sweeper}
}

// Reserve godoc
// @Summary Hold seats for the caller
// @Description Acquires every requested seat or none. The hold expires after the configured TTL.
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReserveRequest true "Seats to hold"
// @Success 201 {object} response.StandardApiResponse{data=ReserveResponse}
// @Failure 400,404,409 {object} response.StandardApiResponse
// @Router /seats/reserve [post]
func (c *Controller) Reserve(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ReserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.Reserve(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats reserved successfully", result, nil)
}

// Release godoc
// @Summary Release a pending reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReleaseRequest true "Reservation"
// @Success 200 {object} response.StandardApiResponse{data=ReleaseResponse}
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Router /seats/release [post]
func (c *Controller) Release(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.Release(ctx.Request.Context(), actor, req.ReservationID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation released successfully", result, nil)
}

// Confirm godoc
// @Summary Confirm a reservation against a completed payment
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ConfirmRequest true "Reservation and payment"
// @Success 200 {object} response.StandardApiResponse{data=ConfirmResponse}
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Router /seats/confirm [post]
func (c *Controller) Confirm(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.ConfirmForUser(ctx.Request.Context(), actor, req.ReservationID, req.PaymentID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation confirmed successfully", result, nil)
}

// ListReservations godoc
// @Summary List the caller's reservations
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, confirmed, released or expired"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse{data=ListReservationsResponse}
// @Router /seats/reservations [get]
func (c *Controller) ListReservations(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query ListReservationsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := c.service.ListUserHolds(ctx.Request.Context(), actor, ListQuery{
		State: HoldState(query.Status),
		Page:  query.Page,
		Limit: query.Limit,
	})
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservations retrieved successfully", result, nil)
}

// GetReservation godoc
// @Summary Reservation detail
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse{data=ReservationView}
// @Failure 403,404 {object} response.StandardApiResponse
// @Router /seats/reservations/{id} [get]
func (c *Controller) GetReservation(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	holdID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid reservation ID"))
		return
	}

	view, err := c.service.GetHold(ctx.Request.Context(), actor, holdID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation retrieved successfully", view, nil)
}

// AttachPayment godoc
// @Summary Bind the payment that will confirm a pending reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reservation ID"
// @Param request body AttachPaymentRequest true "Payment"
// @Success 200 {object} response.StandardApiResponse{data=ReservationView}
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Router /seats/reservations/{id}/payment [post]
func (c *Controller) AttachPayment(ctx *gin.Context) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	holdID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperr.Invalid("invalid reservation ID"))
		return
	}

	var req AttachPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	view, err := c.service.AttachPayment(ctx.Request.Context(), actor, holdID, req.PaymentID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment attached successfully", view, nil)
}

// GetSweeperStats godoc
// @Summary Expiry sweeper counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.StandardApiResponse{data=SweeperStats}
// @Router /seats/admin/sweeper [get]
func (c *Controller) GetSweeperStats(ctx *gin.Context) {
	if c.sweeper == nil {
		response.RespondJSON(ctx, "success", http.StatusOK, "Sweeper is disabled", SweeperStats{}, nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Sweeper statistics retrieved successfully", c.sweeper.GetStats(), nil)
}
