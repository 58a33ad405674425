package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type mockMealPlanRepo struct {
	plans map[string]*models.MealPlan
	meals map[string][]models.Meal
}

func (m *mockMealPlanRepo) List(ctx context.Context, filter models.MealPlanFilter) ([]models.MealPlan, int, error) {
	out := make([]models.MealPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockMealPlanRepo) FindByID(ctx context.Context, id string) (*models.MealPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (m *mockMealPlanRepo) ListMeals(ctx context.Context, planID string) ([]models.Meal, error) {
	return m.meals[planID], nil
}

func (m *mockMealPlanRepo) Create(ctx context.Context, plan *models.MealPlan) error {
	plan.ID = "plan-1"
	if m.plans == nil {
		m.plans = make(map[string]*models.MealPlan)
	}
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockMealPlanRepo) Update(ctx context.Context, plan *models.MealPlan) error {
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockMealPlanRepo) ReplaceMeals(ctx context.Context, planID string, meals []models.Meal) error {
	if m.meals == nil {
		m.meals = make(map[string][]models.Meal)
	}
	m.meals[planID] = meals
	return nil
}

func newMealPlanFixture() (*MealPlanService, *mockMealPlanRepo) {
	desc := "Oats with berries"
	repo := &mockMealPlanRepo{
		plans: map[string]*models.MealPlan{
			"plan-1": {
				ID:             "plan-1",
				TrainerID:      testTrainerID,
				ClientID:       testClientID,
				Name:           "Cutting Plan",
				CaloriesTarget: 2200,
				ProteinGrams:   160,
				CarbsGrams:     220,
				FatGrams:       70,
				Active:         true,
			},
		},
		meals: map[string][]models.Meal{
			"plan-1": {
				{ID: "meal-1", PlanID: "plan-1", Day: 1, Position: 0, Name: "Breakfast", Description: &desc, Calories: 450},
				{ID: "meal-2", PlanID: "plan-1", Day: 1, Position: 1, Name: "Lunch", Calories: 700},
				{ID: "meal-3", PlanID: "plan-1", Day: 2, Position: 0, Name: "Breakfast", Calories: 500},
			},
		},
	}
	clients := &mockClientReader{clients: map[string]*models.Client{
		testClientID: {ID: testClientID, TrainerID: testTrainerID, FullName: "Client One", Active: true},
	}}
	svc := NewMealPlanService(repo, clients, nil, nil, nil, nil)
	return svc, repo
}

func TestMealPlanExportPDFRendersDocument(t *testing.T) {
	svc, _ := newMealPlanFixture()

	data, err := svc.ExportPDF(context.Background(), "plan-1", testTrainerID)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output should be a pdf document")
}

func TestMealPlanExportPDFForeignPlan(t *testing.T) {
	svc, _ := newMealPlanFixture()

	_, err := svc.ExportPDF(context.Background(), "plan-1", "ffffffff-ffff-4fff-8fff-ffffffffffff")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMealPlanGetUnknownPlan(t *testing.T) {
	svc, _ := newMealPlanFixture()

	_, err := svc.Get(context.Background(), "missing", testTrainerID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
