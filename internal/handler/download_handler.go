package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitdesk/fitdesk-api/internal/service"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/response"
)

// DownloadHandler mints signed export links and serves the archived files
// they point at.
type DownloadHandler struct {
	clients   *service.ClientService
	plans     *service.MealPlanService
	downloads *service.DownloadService
}

// NewDownloadHandler creates a new handler.
func NewDownloadHandler(clients *service.ClientService, plans *service.MealPlanService, downloads *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{clients: clients, plans: plans, downloads: downloads}
}

// ClientRosterLink godoc
// @Summary Create a signed download link for the client roster CSV
// @Tags Downloads
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /clients/export/link [get]
func (h *DownloadHandler) ClientRosterLink(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.clients.ExportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	link, err := h.downloads.ArchiveAndSign(service.RosterPath(claims.UserID, time.Now()), data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// MealPlanLink godoc
// @Summary Create a signed download link for a meal plan PDF
// @Tags Downloads
// @Produce json
// @Param id path string true "Meal plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /meal-plans/{id}/export/link [get]
func (h *DownloadHandler) MealPlanLink(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	data, err := h.plans.ExportPDF(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	link, err := h.downloads.ArchiveAndSign(service.MealPlanPath(id, time.Now()), data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Fetch godoc
// @Summary Download an archived export by signed token
// @Tags Downloads
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {string} string "File payload"
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *DownloadHandler) Fetch(c *gin.Context) {
	file, name, err := h.downloads.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "download not found"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", contentTypeFor(name))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
