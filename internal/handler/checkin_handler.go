package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/service"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// CheckinHandler exposes geofenced teacher check-in endpoints.
type CheckinHandler struct {
	service *service.CheckinService
}

// NewCheckinHandler creates a new handler.
func NewCheckinHandler(svc *service.CheckinService) *CheckinHandler {
	return &CheckinHandler{service: svc}
}

// CheckIn godoc
// @Summary Teacher check-in
// @Description Record teacher presence; coordinates must fall inside the active geofence
// @Tags Check-in
// @Accept json
// @Produce json
// @Param payload body dto.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /checkins [post]
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}

	checkin, err := h.service.CheckIn(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, checkin)
}

// CheckOut godoc
// @Summary Teacher check-out
// @Tags Check-in
// @Accept json
// @Produce json
// @Param payload body dto.CheckOutRequest true "Check-out payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkins/checkout [post]
func (h *CheckinHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-out payload"))
		return
	}

	if err := h.service.CheckOut(c.Request.Context(), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// History godoc
// @Summary Teacher check-in history
// @Tags Check-in
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /checkins [get]
func (h *CheckinHandler) History(c *gin.Context) {
	items, err := h.service.History(c.Request.Context(), claimsFromContext(c), intQuery(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
