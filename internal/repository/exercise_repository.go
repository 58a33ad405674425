package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitdesk/fitdesk-api/internal/models"
)

// ExerciseRepository provides database access for the exercise library.
type ExerciseRepository struct {
	db *sqlx.DB
}

// NewExerciseRepository creates a new instance of ExerciseRepository.
func NewExerciseRepository(db *sqlx.DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

const exerciseColumns = `id, name, muscle_group, equipment, description, video_url, created_by, created_at, updated_at`

// List returns exercises based on filters with total count.
func (r *ExerciseRepository) List(ctx context.Context, filter models.ExerciseFilter) ([]models.Exercise, int, error) {
	baseQuery := `FROM exercises WHERE 1=1`
	var args []interface{}

	if filter.MuscleGroup != "" {
		baseQuery += fmt.Sprintf(" AND muscle_group = $%d", len(args)+1)
		args = append(args, filter.MuscleGroup)
	}
	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", exerciseColumns, baseQuery, pageSize, offset)

	var exercises []models.Exercise
	if err := r.db.SelectContext(ctx, &exercises, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exercises: %w", err)
	}

	return exercises, total, nil
}

// FindByID returns an exercise by identifier.
func (r *ExerciseRepository) FindByID(ctx context.Context, id string) (*models.Exercise, error) {
	query := fmt.Sprintf(`SELECT %s FROM exercises WHERE id = $1 LIMIT 1`, exerciseColumns)
	var exercise models.Exercise
	if err := r.db.GetContext(ctx, &exercise, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exercise by id: %w", err)
	}
	return &exercise, nil
}

// Create inserts a new exercise.
func (r *ExerciseRepository) Create(ctx context.Context, exercise *models.Exercise) error {
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = now
	}
	exercise.UpdatedAt = now

	const query = `INSERT INTO exercises (id, name, muscle_group, equipment, description, video_url, created_by, created_at, updated_at) VALUES (:id, :name, :muscle_group, :equipment, :description, :video_url, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exercise); err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	return nil
}

// Update updates mutable fields of an exercise.
func (r *ExerciseRepository) Update(ctx context.Context, exercise *models.Exercise) error {
	exercise.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exercises SET name = :name, muscle_group = :muscle_group, equipment = :equipment, description = :description, video_url = :video_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, exercise); err != nil {
		return fmt.Errorf("update exercise: %w", err)
	}
	return nil
}

// Delete removes an exercise from the library.
func (r *ExerciseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM exercises WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return nil
}
