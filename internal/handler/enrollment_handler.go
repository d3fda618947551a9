package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// EnrollmentHandler exposes batch membership endpoints.
type EnrollmentHandler struct {
	service   *service.EnrollmentService
	dashboard *service.DashboardService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, dashboard *service.DashboardService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, dashboard: dashboard}
}

// ListBatches godoc
// @Summary List batches
// @Tags Enrollment
// @Produce json
// @Param program query string false "Filter by program" Enums(MAHAD, DUGSI)
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *EnrollmentHandler) ListBatches(c *gin.Context) {
	items, err := h.service.ListBatches(c.Request.Context(), models.Program(c.Query("program")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Assign godoc
// @Summary Assign students to a batch
// @Description Bulk assignment; failed ids are reported, not fatal
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.AssignToBatchRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/assign [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	var req dto.AssignToBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	result, err := h.service.AssignToBatch(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Transfer godoc
// @Summary Transfer students between batches
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.TransferBatchRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/transfer [post]
func (h *EnrollmentHandler) Transfer(c *gin.Context) {
	var req dto.TransferBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}

	result, err := h.service.TransferBatch(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}
