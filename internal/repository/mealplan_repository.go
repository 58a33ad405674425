package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitdesk/fitdesk-api/internal/models"
)

// MealPlanRepository provides database access for meal plans.
type MealPlanRepository struct {
	db *sqlx.DB
}

// NewMealPlanRepository creates a new instance of MealPlanRepository.
func NewMealPlanRepository(db *sqlx.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

const mealPlanColumns = `id, trainer_id, client_id, name, calories_target, protein_grams, carbs_grams, fat_grams, active, created_at, updated_at`

// List returns meal plans based on filters with total count.
func (r *MealPlanRepository) List(ctx context.Context, filter models.MealPlanFilter) ([]models.MealPlan, int, error) {
	baseQuery := `FROM meal_plans WHERE trainer_id = $1`
	args := []interface{}{filter.TrainerID}

	if filter.ClientID != "" {
		baseQuery += fmt.Sprintf(" AND client_id = $%d", len(args)+1)
		args = append(args, filter.ClientID)
	}
	if filter.Active != nil {
		baseQuery += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", mealPlanColumns, baseQuery, pageSize, offset)

	var plans []models.MealPlan
	if err := r.db.SelectContext(ctx, &plans, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list meal plans: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count meal plans: %w", err)
	}

	return plans, total, nil
}

// FindByID returns a meal plan by identifier.
func (r *MealPlanRepository) FindByID(ctx context.Context, id string) (*models.MealPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM meal_plans WHERE id = $1 LIMIT 1`, mealPlanColumns)
	var plan models.MealPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find meal plan by id: %w", err)
	}
	return &plan, nil
}

// ListMeals returns the meals of a plan ordered by day and position.
func (r *MealPlanRepository) ListMeals(ctx context.Context, planID string) ([]models.Meal, error) {
	const query = `SELECT id, plan_id, day, position, name, description, calories FROM meals WHERE plan_id = $1 ORDER BY day ASC, position ASC`
	var meals []models.Meal
	if err := r.db.SelectContext(ctx, &meals, query, planID); err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	return meals, nil
}

// Create inserts a new meal plan.
func (r *MealPlanRepository) Create(ctx context.Context, plan *models.MealPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	const query = `INSERT INTO meal_plans (id, trainer_id, client_id, name, calories_target, protein_grams, carbs_grams, fat_grams, active, created_at, updated_at) VALUES (:id, :trainer_id, :client_id, :name, :calories_target, :protein_grams, :carbs_grams, :fat_grams, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create meal plan: %w", err)
	}
	return nil
}

// Update updates mutable fields of a meal plan.
func (r *MealPlanRepository) Update(ctx context.Context, plan *models.MealPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE meal_plans SET name = :name, calories_target = :calories_target, protein_grams = :protein_grams, carbs_grams = :carbs_grams, fat_grams = :fat_grams, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("update meal plan: %w", err)
	}
	return nil
}

// ReplaceMeals swaps the full meal list of a plan inside a transaction.
func (r *MealPlanRepository) ReplaceMeals(ctx context.Context, planID string, meals []models.Meal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace meals: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("clear meals: %w", err)
	}

	const insert = `INSERT INTO meals (id, plan_id, day, position, name, description, calories) VALUES (:id, :plan_id, :day, :position, :name, :description, :calories)`
	for i := range meals {
		meal := &meals[i]
		if meal.ID == "" {
			meal.ID = uuid.NewString()
		}
		meal.PlanID = planID
		if _, err := tx.NamedExecContext(ctx, insert, meal); err != nil {
			return fmt.Errorf("insert meal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace meals: %w", err)
	}
	return nil
}

// FindActiveByClient returns a client's current active meal plan.
func (r *MealPlanRepository) FindActiveByClient(ctx context.Context, clientID string) (*models.MealPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM meal_plans WHERE client_id = $1 AND active = TRUE ORDER BY updated_at DESC LIMIT 1`, mealPlanColumns)
	var plan models.MealPlan
	if err := r.db.GetContext(ctx, &plan, query, clientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active meal plan by client: %w", err)
	}
	return &plan, nil
}
