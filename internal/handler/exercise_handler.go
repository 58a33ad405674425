package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/service"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/response"
)

// ExerciseHandler wires HTTP endpoints to the exercise library service.
type ExerciseHandler struct {
	service *service.ExerciseService
}

// NewExerciseHandler creates a new handler.
func NewExerciseHandler(svc *service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{service: svc}
}

// List godoc
// @Summary List exercises
// @Description List the exercise library with optional muscle group and search filters
// @Tags Exercises
// @Produce json
// @Param muscle_group query string false "Filter by muscle group"
// @Param search query string false "Search by name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exercises [get]
func (h *ExerciseHandler) List(c *gin.Context) {
	filter := models.ExerciseFilter{
		MuscleGroup: c.Query("muscle_group"),
		Search:      c.Query("search"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}

	exercises, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exercises, pagination)
}

// Get godoc
// @Summary Get exercise
// @Tags Exercises
// @Produce json
// @Param id path string true "Exercise ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) Get(c *gin.Context) {
	exercise, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exercise, nil)
}

// Create godoc
// @Summary Create exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param payload body service.CreateExerciseRequest true "Exercise payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exercises [post]
func (h *ExerciseHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exercise payload"))
		return
	}

	exercise, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, exercise)
}

// Update godoc
// @Summary Update exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param id path string true "Exercise ID"
// @Param payload body service.CreateExerciseRequest true "Exercise payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exercises/{id} [put]
func (h *ExerciseHandler) Update(c *gin.Context) {
	var req service.CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exercise payload"))
		return
	}

	exercise, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exercise, nil)
}

// Delete godoc
// @Summary Delete exercise
// @Tags Exercises
// @Param id path string true "Exercise ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
