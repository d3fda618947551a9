package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/service"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// DuplicateHandler exposes duplicate detection and resolution endpoints.
type DuplicateHandler struct {
	service   *service.DuplicateService
	dashboard *service.DashboardService
}

// NewDuplicateHandler creates a new handler.
func NewDuplicateHandler(svc *service.DuplicateService, dashboard *service.DashboardService) *DuplicateHandler {
	return &DuplicateHandler{service: svc, dashboard: dashboard}
}

// Detect godoc
// @Summary Detect duplicate students
// @Description Cluster student records sharing a normalised email
// @Tags Duplicates
// @Produce json
// @Param program query string false "Filter by program" Enums(MAHAD, DUGSI)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /duplicates [get]
func (h *DuplicateHandler) Detect(c *gin.Context) {
	var filter dto.DetectDuplicatesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid duplicates filter"))
		return
	}

	groups, err := h.service.DetectGroups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}

// Resolve godoc
// @Summary Resolve a duplicate group
// @Description Merge duplicate records into one and delete the rest
// @Tags Duplicates
// @Accept json
// @Produce json
// @Param payload body dto.ResolveDuplicatesRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /duplicates/resolve [post]
func (h *DuplicateHandler) Resolve(c *gin.Context) {
	var req dto.ResolveDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolve payload"))
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}
