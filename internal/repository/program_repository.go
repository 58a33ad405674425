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

// ProgramRepository provides database access for training programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository creates a new instance of ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `id, trainer_id, client_id, name, description, weeks, active, created_at, updated_at`

// List returns programs based on filters with total count.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	baseQuery := `FROM programs WHERE trainer_id = $1`
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", programColumns, baseQuery, pageSize, offset)

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	return programs, total, nil
}

// FindByID returns a program by identifier.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := fmt.Sprintf(`SELECT %s FROM programs WHERE id = $1 LIMIT 1`, programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find program by id: %w", err)
	}
	return &program, nil
}

// ListEntries returns a program's entries joined with exercise metadata.
func (r *ProgramRepository) ListEntries(ctx context.Context, programID string) ([]models.ProgramEntryDetail, error) {
	const query = `SELECT pe.id, pe.program_id, pe.exercise_id, pe.day, pe.position, pe.sets, pe.reps, pe.rest_seconds, pe.notes, e.name AS exercise_name, e.muscle_group
		FROM program_entries pe
		JOIN exercises e ON e.id = pe.exercise_id
		WHERE pe.program_id = $1
		ORDER BY pe.day ASC, pe.position ASC`
	var entries []models.ProgramEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, programID); err != nil {
		return nil, fmt.Errorf("list program entries: %w", err)
	}
	return entries, nil
}

// Create inserts a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now

	const query = `INSERT INTO programs (id, trainer_id, client_id, name, description, weeks, active, created_at, updated_at) VALUES (:id, :trainer_id, :client_id, :name, :description, :weeks, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update updates mutable fields of a program.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET client_id = :client_id, name = :name, description = :description, weeks = :weeks, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// ReplaceEntries swaps the full entry list of a program inside a transaction.
func (r *ProgramRepository) ReplaceEntries(ctx context.Context, programID string, entries []models.ProgramEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace entries: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM program_entries WHERE program_id = $1`, programID); err != nil {
		return fmt.Errorf("clear program entries: %w", err)
	}

	const insert = `INSERT INTO program_entries (id, program_id, exercise_id, day, position, sets, reps, rest_seconds, notes) VALUES (:id, :program_id, :exercise_id, :day, :position, :sets, :reps, :rest_seconds, :notes)`
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ProgramID = programID
		if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
			return fmt.Errorf("insert program entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace entries: %w", err)
	}
	return nil
}

// Deactivate marks a program inactive.
func (r *ProgramRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE programs SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate program: %w", err)
	}
	return nil
}

// FindActiveByClient returns a client's currently assigned active program.
func (r *ProgramRepository) FindActiveByClient(ctx context.Context, clientID string) (*models.Program, error) {
	query := fmt.Sprintf(`SELECT %s FROM programs WHERE client_id = $1 AND active = TRUE ORDER BY updated_at DESC LIMIT 1`, programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, clientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active program by client: %w", err)
	}
	return &program, nil
}

// CountActiveByTrainer returns the number of active programs for a trainer.
func (r *ProgramRepository) CountActiveByTrainer(ctx context.Context, trainerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM programs WHERE trainer_id = $1 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, trainerID); err != nil {
		return 0, fmt.Errorf("count active programs: %w", err)
	}
	return count, nil
}
