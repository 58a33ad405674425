package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type exerciseRepository interface {
	List(ctx context.Context, filter models.ExerciseFilter) ([]models.Exercise, int, error)
	FindByID(ctx context.Context, id string) (*models.Exercise, error)
	Create(ctx context.Context, exercise *models.Exercise) error
	Update(ctx context.Context, exercise *models.Exercise) error
	Delete(ctx context.Context, id string) error
}

// CreateExerciseRequest represents payload for creating exercises.
type CreateExerciseRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	MuscleGroup string  `json:"muscle_group" validate:"required,max=100"`
	Equipment   *string `json:"equipment" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	VideoURL    *string `json:"video_url" validate:"omitempty,url"`
}

// ExerciseService orchestrates exercise library operations.
type ExerciseService struct {
	repo      exerciseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExerciseService constructs an ExerciseService.
func NewExerciseService(repo exerciseRepository, validate *validator.Validate, logger *zap.Logger) *ExerciseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExerciseService{repo: repo, validator: validate, logger: logger}
}

// List returns exercises plus pagination data.
func (s *ExerciseService) List(ctx context.Context, filter models.ExerciseFilter) ([]models.Exercise, *models.Pagination, error) {
	exercises, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exercises")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return exercises, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an exercise by id.
func (s *ExerciseService) Get(ctx context.Context, id string) (*models.Exercise, error) {
	exercise, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exercise not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exercise")
	}
	return exercise, nil
}

// Create adds an exercise to the library.
func (s *ExerciseService) Create(ctx context.Context, createdBy string, req CreateExerciseRequest) (*models.Exercise, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exercise payload")
	}

	exercise := &models.Exercise{
		Name:        req.Name,
		MuscleGroup: req.MuscleGroup,
		Equipment:   req.Equipment,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, exercise); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exercise")
	}
	return exercise, nil
}

// Update modifies an exercise in the library.
func (s *ExerciseService) Update(ctx context.Context, id string, req CreateExerciseRequest) (*models.Exercise, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exercise payload")
	}

	exercise, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exercise.Name = req.Name
	exercise.MuscleGroup = req.MuscleGroup
	exercise.Equipment = req.Equipment
	exercise.Description = req.Description
	exercise.VideoURL = req.VideoURL

	if err := s.repo.Update(ctx, exercise); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exercise")
	}
	return exercise, nil
}

// Delete removes an exercise from the library.
func (s *ExerciseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exercise")
	}
	return nil
}
