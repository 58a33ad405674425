package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitdesk/fitdesk-api/internal/service"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/response"
)

// PortalHandler wires HTTP endpoints to the PIN-gated client portal.
type PortalHandler struct {
	service *service.PortalService
}

// NewPortalHandler creates a new handler.
func NewPortalHandler(svc *service.PortalService) *PortalHandler {
	return &PortalHandler{service: svc}
}

// SetPIN godoc
// @Summary Issue portal PIN
// @Description Issue or replace the portal PIN for a client
// @Tags Portal
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param payload body map[string]string true "PIN payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /clients/{id}/portal-pin [put]
func (h *PortalHandler) SetPIN(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "pin required"))
		return
	}

	if err := h.service.SetPIN(c.Request.Context(), c.Param("id"), claims.UserID, payload.PIN); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RevokePIN godoc
// @Summary Revoke portal PIN
// @Tags Portal
// @Param id path string true "Client ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clients/{id}/portal-pin [delete]
func (h *PortalHandler) RevokePIN(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RevokePIN(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Access godoc
// @Summary Access client portal
// @Description Verify the portal PIN and return the read-only client view
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Client ID and PIN payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /portal/access [post]
func (h *PortalHandler) Access(c *gin.Context) {
	var payload struct {
		ClientID string `json:"client_id" binding:"required"`
		PIN      string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "client_id and pin required"))
		return
	}

	view, err := h.service.Access(c.Request.Context(), payload.ClientID, payload.PIN, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}
