package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/export"
)

type mealPlanRepository interface {
	List(ctx context.Context, filter models.MealPlanFilter) ([]models.MealPlan, int, error)
	FindByID(ctx context.Context, id string) (*models.MealPlan, error)
	ListMeals(ctx context.Context, planID string) ([]models.Meal, error)
	Create(ctx context.Context, plan *models.MealPlan) error
	Update(ctx context.Context, plan *models.MealPlan) error
	ReplaceMeals(ctx context.Context, planID string, meals []models.Meal) error
}

type mealPlanClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type mealPlanNotifier interface {
	Publish(ctx context.Context, userID string, kind models.NotificationKind, title, body string) error
}

// MealRequest is one meal inside a plan payload.
type MealRequest struct {
	Day         int     `json:"day" validate:"required,min=1,max=7"`
	Position    int     `json:"position" validate:"min=0"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Calories    int     `json:"calories" validate:"min=0,max=10000"`
}

// CreateMealPlanRequest represents payload for creating or replacing a meal plan.
type CreateMealPlanRequest struct {
	ClientID       string        `json:"client_id" validate:"required,uuid4"`
	Name           string        `json:"name" validate:"required,max=200"`
	CaloriesTarget int           `json:"calories_target" validate:"required,min=800,max=10000"`
	ProteinGrams   int           `json:"protein_grams" validate:"min=0,max=1000"`
	CarbsGrams     int           `json:"carbs_grams" validate:"min=0,max=2000"`
	FatGrams       int           `json:"fat_grams" validate:"min=0,max=1000"`
	Meals          []MealRequest `json:"meals" validate:"omitempty,dive"`
}

// MealPlanService orchestrates meal plan operations.
type MealPlanService struct {
	repo      mealPlanRepository
	clients   mealPlanClientReader
	notifier  mealPlanNotifier
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMealPlanService constructs a MealPlanService.
func NewMealPlanService(repo mealPlanRepository, clients mealPlanClientReader, notifier mealPlanNotifier, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger) *MealPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &MealPlanService{repo: repo, clients: clients, notifier: notifier, pdf: pdf, validator: validate, logger: logger}
}

// List returns the trainer's meal plans plus pagination data.
func (s *MealPlanService) List(ctx context.Context, filter models.MealPlanFilter) ([]models.MealPlan, *models.Pagination, error) {
	plans, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meal plans")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return plans, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a meal plan with its meals, enforcing trainer ownership.
func (s *MealPlanService) Get(ctx context.Context, id, trainerID string) (*models.MealPlanDetail, error) {
	plan, err := s.findOwned(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	meals, err := s.repo.ListMeals(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meals")
	}
	return &models.MealPlanDetail{MealPlan: *plan, Meals: meals}, nil
}

// Create builds a meal plan with its meals for the trainer.
func (s *MealPlanService) Create(ctx context.Context, trainerID string, req CreateMealPlanRequest) (*models.MealPlanDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meal plan payload")
	}
	if err := s.checkClient(ctx, req.ClientID, trainerID); err != nil {
		return nil, err
	}

	plan := &models.MealPlan{
		TrainerID:      trainerID,
		ClientID:       req.ClientID,
		Name:           req.Name,
		CaloriesTarget: req.CaloriesTarget,
		ProteinGrams:   req.ProteinGrams,
		CarbsGrams:     req.CarbsGrams,
		FatGrams:       req.FatGrams,
		Active:         true,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meal plan")
	}
	if err := s.repo.ReplaceMeals(ctx, plan.ID, buildMeals(plan.ID, req.Meals)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save meals")
	}

	if s.notifier != nil {
		body := fmt.Sprintf("Meal plan %q was assigned to your plan.", plan.Name)
		if err := s.notifier.Publish(ctx, trainerID, models.NotificationMealPlan, "Meal plan assigned", body); err != nil {
			s.logger.Warn("failed to publish meal plan notification", zap.Error(err), zap.String("plan_id", plan.ID))
		}
	}
	return s.Get(ctx, plan.ID, trainerID)
}

// Update replaces a meal plan's metadata and meals.
func (s *MealPlanService) Update(ctx context.Context, id, trainerID string, req CreateMealPlanRequest) (*models.MealPlanDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meal plan payload")
	}

	plan, err := s.findOwned(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkClient(ctx, req.ClientID, trainerID); err != nil {
		return nil, err
	}

	plan.ClientID = req.ClientID
	plan.Name = req.Name
	plan.CaloriesTarget = req.CaloriesTarget
	plan.ProteinGrams = req.ProteinGrams
	plan.CarbsGrams = req.CarbsGrams
	plan.FatGrams = req.FatGrams

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update meal plan")
	}
	if err := s.repo.ReplaceMeals(ctx, plan.ID, buildMeals(plan.ID, req.Meals)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save meals")
	}
	return s.Get(ctx, plan.ID, trainerID)
}

// ExportPDF renders the meal plan as a printable PDF.
func (s *MealPlanService) ExportPDF(ctx context.Context, id, trainerID string) ([]byte, error) {
	detail, err := s.Get(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}

	mealHeaders := []string{"Meal", "Description", "Calories"}
	byDay := make(map[int][]map[string]string)
	days := make([]int, 0, 7)
	for _, meal := range detail.Meals {
		if _, ok := byDay[meal.Day]; !ok {
			days = append(days, meal.Day)
		}
		desc := ""
		if meal.Description != nil {
			desc = *meal.Description
		}
		byDay[meal.Day] = append(byDay[meal.Day], map[string]string{
			"Meal":        meal.Name,
			"Description": desc,
			"Calories":    fmt.Sprintf("%d kcal", meal.Calories),
		})
	}

	sections := make([]export.Section, 0, len(days)+1)
	sections = append(sections, export.Section{
		Title: "Daily Targets",
		Data: export.Dataset{
			Headers: []string{"Target", "Value"},
			Rows: []map[string]string{
				{"Target": "Calories", "Value": fmt.Sprintf("%d kcal", detail.CaloriesTarget)},
				{"Target": "Protein", "Value": fmt.Sprintf("%d g", detail.ProteinGrams)},
				{"Target": "Carbs", "Value": fmt.Sprintf("%d g", detail.CarbsGrams)},
				{"Target": "Fat", "Value": fmt.Sprintf("%d g", detail.FatGrams)},
			},
		},
	})
	for _, day := range days {
		sections = append(sections, export.Section{
			Title: fmt.Sprintf("Day %d", day),
			Data:  export.Dataset{Headers: mealHeaders, Rows: byDay[day]},
		})
	}

	pdf, err := s.pdf.Render(detail.Name, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render meal plan pdf")
	}
	return pdf, nil
}

func (s *MealPlanService) findOwned(ctx context.Context, id, trainerID string) (*models.MealPlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meal plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meal plan")
	}
	if plan.TrainerID != trainerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "meal plan belongs to another trainer")
	}
	return plan, nil
}

func (s *MealPlanService) checkClient(ctx context.Context, clientID, trainerID string) error {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if client.TrainerID != trainerID {
		return appErrors.Clone(appErrors.ErrForbidden, "client belongs to another trainer")
	}
	return nil
}

func buildMeals(planID string, reqs []MealRequest) []models.Meal {
	meals := make([]models.Meal, 0, len(reqs))
	for i, m := range reqs {
		pos := m.Position
		if pos == 0 {
			pos = i
		}
		meals = append(meals, models.Meal{
			PlanID:      planID,
			Day:         m.Day,
			Position:    pos,
			Name:        m.Name,
			Description: m.Description,
			Calories:    m.Calories,
		})
	}
	return meals
}
