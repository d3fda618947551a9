package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/service"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// SiblingHandler exposes sibling relationship endpoints.
type SiblingHandler struct {
	service *service.SiblingService
}

// NewSiblingHandler creates a new handler.
func NewSiblingHandler(svc *service.SiblingService) *SiblingHandler {
	return &SiblingHandler{service: svc}
}

type siblingPairRequest struct {
	Person1ID string `json:"person1_id" binding:"required"`
	Person2ID string `json:"person2_id" binding:"required"`
}

// Link godoc
// @Summary Link two siblings
// @Tags Siblings
// @Accept json
// @Produce json
// @Param payload body siblingPairRequest true "Sibling pair"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /siblings [post]
func (h *SiblingHandler) Link(c *gin.Context) {
	var req siblingPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sibling payload"))
		return
	}

	rel, err := h.service.Link(c.Request.Context(), req.Person1ID, req.Person2ID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, rel)
}

// Unlink godoc
// @Summary Unlink two siblings
// @Tags Siblings
// @Accept json
// @Produce json
// @Param payload body siblingPairRequest true "Sibling pair"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /siblings [delete]
func (h *SiblingHandler) Unlink(c *gin.Context) {
	var req siblingPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sibling payload"))
		return
	}

	if err := h.service.Unlink(c.Request.Context(), req.Person1ID, req.Person2ID, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListForPerson godoc
// @Summary Sibling links for a person
// @Tags Siblings
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /people/{id}/siblings [get]
func (h *SiblingHandler) ListForPerson(c *gin.Context) {
	items, err := h.service.ListForPerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AutoLinkFamily godoc
// @Summary Auto-link siblings within a family
// @Description Create automatic edges between every pair of family members
// @Tags Siblings
// @Produce json
// @Param familyId path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /families/{familyId}/auto-link [post]
func (h *SiblingHandler) AutoLinkFamily(c *gin.Context) {
	linked, err := h.service.AutoLinkFamily(c.Request.Context(), c.Param("familyId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"linked": linked}, nil)
}
