package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// BillingHandler exposes family subscription endpoints.
type BillingHandler struct {
	service *service.BillingService
}

// NewBillingHandler creates a new handler.
func NewBillingHandler(svc *service.BillingService) *BillingHandler {
	return &BillingHandler{service: svc}
}

// Get godoc
// @Summary Family subscription
// @Tags Billing
// @Produce json
// @Param familyId path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /billing/families/{familyId} [get]
func (h *BillingHandler) Get(c *gin.Context) {
	sub, err := h.service.GetSubscription(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Sync godoc
// @Summary Sync family subscription
// @Description Recompute plan and monthly rate from current enrollment
// @Tags Billing
// @Accept json
// @Produce json
// @Param familyId path string true "Family ID"
// @Param program query string false "Count students in one program only" Enums(MAHAD, DUGSI)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /billing/families/{familyId}/sync [post]
func (h *BillingHandler) Sync(c *gin.Context) {
	program := models.Program(c.Query("program"))
	sub, err := h.service.SyncFamilySubscription(c.Request.Context(), c.Param("familyId"), program, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
