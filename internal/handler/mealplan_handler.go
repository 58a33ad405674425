package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/service"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/response"
)

// MealPlanHandler wires HTTP endpoints to the meal plan service.
type MealPlanHandler struct {
	service *service.MealPlanService
}

// NewMealPlanHandler creates a new handler.
func NewMealPlanHandler(svc *service.MealPlanService) *MealPlanHandler {
	return &MealPlanHandler{service: svc}
}

// List godoc
// @Summary List meal plans
// @Tags MealPlans
// @Produce json
// @Param client_id query string false "Filter by client"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /meal-plans [get]
func (h *MealPlanHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.MealPlanFilter{
		TrainerID: claims.UserID,
		ClientID:  c.Query("client_id"),
		Active:    queryBool(c, "active"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}

	plans, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, plans, pagination)
}

// Get godoc
// @Summary Get meal plan with meals
// @Tags MealPlans
// @Produce json
// @Param id path string true "Meal plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /meal-plans/{id} [get]
func (h *MealPlanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create meal plan
// @Tags MealPlans
// @Accept json
// @Produce json
// @Param payload body service.CreateMealPlanRequest true "Meal plan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /meal-plans [post]
func (h *MealPlanHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meal plan payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Update godoc
// @Summary Update meal plan
// @Description Replace a meal plan's targets and meals
// @Tags MealPlans
// @Accept json
// @Produce json
// @Param id path string true "Meal plan ID"
// @Param payload body service.CreateMealPlanRequest true "Meal plan payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /meal-plans/{id} [put]
func (h *MealPlanHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meal plan payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// ExportPDF godoc
// @Summary Export meal plan as PDF
// @Tags MealPlans
// @Produce application/pdf
// @Param id path string true "Meal plan ID"
// @Success 200 {string} string "PDF payload"
// @Failure 404 {object} response.Envelope
// @Router /meal-plans/{id}/export [get]
func (h *MealPlanHandler) ExportPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.service.ExportPDF(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("meal-plan-%s.pdf", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
