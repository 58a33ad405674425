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

// SessionRepository provides database access for scheduled training sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, trainer_id, client_id, starts_at, ends_at, status, location, notes, created_at, updated_at`

// List returns sessions based on filters with total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, int, error) {
	baseQuery := `FROM training_sessions WHERE trainer_id = $1`
	args := []interface{}{filter.TrainerID}

	if filter.ClientID != "" {
		baseQuery += fmt.Sprintf(" AND client_id = $%d", len(args)+1)
		args = append(args, filter.ClientID)
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		baseQuery += fmt.Sprintf(" AND starts_at >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		baseQuery += fmt.Sprintf(" AND starts_at < $%d", len(args)+1)
		args = append(args, *filter.To)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY starts_at ASC LIMIT %d OFFSET %d", sessionColumns, baseQuery, pageSize, offset)

	var sessions []models.TrainingSession
	if err := r.db.SelectContext(ctx, &sessions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.TrainingSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_sessions WHERE id = $1 LIMIT 1`, sessionColumns)
	var session models.TrainingSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// HasOverlap reports whether the trainer already has a scheduled session that overlaps the window.
func (r *SessionRepository) HasOverlap(ctx context.Context, trainerID string, startsAt, endsAt time.Time, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM training_sessions WHERE trainer_id = $1 AND status = 'SCHEDULED' AND starts_at < $3 AND ends_at > $2 AND id <> $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, trainerID, startsAt, endsAt, excludeID); err != nil {
		return false, fmt.Errorf("check session overlap: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new training session.
func (r *SessionRepository) Create(ctx context.Context, session *models.TrainingSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO training_sessions (id, trainer_id, client_id, starts_at, ends_at, status, location, notes, created_at, updated_at) VALUES (:id, :trainer_id, :client_id, :starts_at, :ends_at, :status, :location, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update updates mutable fields of a session.
func (r *SessionRepository) Update(ctx context.Context, session *models.TrainingSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE training_sessions SET starts_at = :starts_at, ends_at = :ends_at, status = :status, location = :location, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListUpcomingByClient returns a client's next scheduled sessions.
func (r *SessionRepository) ListUpcomingByClient(ctx context.Context, clientID string, limit int) ([]models.TrainingSession, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM training_sessions WHERE client_id = $1 AND status = 'SCHEDULED' AND starts_at >= $2 ORDER BY starts_at ASC LIMIT %d`, sessionColumns, limit)
	var sessions []models.TrainingSession
	if err := r.db.SelectContext(ctx, &sessions, query, clientID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return sessions, nil
}

// ListStartingBetween returns scheduled sessions across all trainers whose
// start falls inside the window. Used by the reminder dispatcher.
func (r *SessionRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.TrainingSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_sessions WHERE status = 'SCHEDULED' AND starts_at >= $1 AND starts_at < $2 ORDER BY starts_at ASC`, sessionColumns)
	var sessions []models.TrainingSession
	if err := r.db.SelectContext(ctx, &sessions, query, from, to); err != nil {
		return nil, fmt.Errorf("list sessions starting between: %w", err)
	}
	return sessions, nil
}

// CountInRange returns the number of sessions for a trainer in a time window.
func (r *SessionRepository) CountInRange(ctx context.Context, trainerID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM training_sessions WHERE trainer_id = $1 AND starts_at >= $2 AND starts_at < $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, trainerID, from, to); err != nil {
		return 0, fmt.Errorf("count sessions in range: %w", err)
	}
	return count, nil
}
