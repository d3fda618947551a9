package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

// ExportHandler streams rendered roster exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Students godoc
// @Summary Export student roster
// @Tags Exports
// @Produce octet-stream
// @Param program query string false "Filter by program" Enums(MAHAD, DUGSI)
// @Param format query string false "Export format" Enums(csv, pdf, xlsx)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /exports/students [get]
func (h *ExportHandler) Students(c *gin.Context) {
	file, err := h.service.StudentRoster(
		c.Request.Context(),
		models.Program(c.Query("program")),
		service.ExportFormat(c.Query("format")),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, file)
}

// SessionRoster godoc
// @Summary Export attendance roster
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "Export format" Enums(csv, pdf, xlsx)
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /exports/sessions/{id} [get]
func (h *ExportHandler) SessionRoster(c *gin.Context) {
	file, err := h.service.SessionRoster(
		c.Request.Context(),
		c.Param("id"),
		service.ExportFormat(c.Query("format")),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, file)
}

func serveExport(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
