package models

import "time"

// MealPlan holds macro targets and daily meals for a client.
type MealPlan struct {
	ID             string    `db:"id" json:"id"`
	TrainerID      string    `db:"trainer_id" json:"trainer_id"`
	ClientID       string    `db:"client_id" json:"client_id"`
	Name           string    `db:"name" json:"name"`
	CaloriesTarget int       `db:"calories_target" json:"calories_target"`
	ProteinGrams   int       `db:"protein_grams" json:"protein_grams"`
	CarbsGrams     int       `db:"carbs_grams" json:"carbs_grams"`
	FatGrams       int       `db:"fat_grams" json:"fat_grams"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Meal is a single meal inside a plan day.
type Meal struct {
	ID          string  `db:"id" json:"id"`
	PlanID      string  `db:"plan_id" json:"plan_id"`
	Day         int     `db:"day" json:"day"`
	Position    int     `db:"position" json:"position"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	Calories    int     `db:"calories" json:"calories"`
}

// MealPlanDetail bundles a meal plan with its meals ordered by day and position.
type MealPlanDetail struct {
	MealPlan
	Meals []Meal `json:"meals"`
}

// MealPlanFilter captures filtering criteria for listing meal plans.
type MealPlanFilter struct {
	TrainerID string
	ClientID  string
	Active    *bool
	Page      int
	PageSize  int
}
