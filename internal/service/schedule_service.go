package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, int, error)
	FindByID(ctx context.Context, id string) (*models.TrainingSession, error)
	HasOverlap(ctx context.Context, trainerID string, startsAt, endsAt time.Time, excludeID string) (bool, error)
	Create(ctx context.Context, session *models.TrainingSession) error
	Update(ctx context.Context, session *models.TrainingSession) error
}

type scheduleClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type scheduleNotifier interface {
	Publish(ctx context.Context, userID string, kind models.NotificationKind, title, body string) error
}

// ScheduleSessionRequest represents payload for booking or rescheduling a session.
type ScheduleSessionRequest struct {
	ClientID string    `json:"client_id" validate:"required,uuid4"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
	Location *string   `json:"location" validate:"omitempty,max=200"`
	Notes    *string   `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateSessionStatusRequest moves a session through its lifecycle.
type UpdateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=SCHEDULED COMPLETED CANCELLED NO_SHOW"`
}

// ScheduleService orchestrates training session scheduling.
type ScheduleService struct {
	repo      sessionRepository
	clients   scheduleClientReader
	notifier  scheduleNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo sessionRepository, clients scheduleClientReader, notifier scheduleNotifier, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, clients: clients, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// List returns the trainer's sessions plus pagination data.
func (s *ScheduleService) List(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a session, enforcing trainer ownership.
func (s *ScheduleService) Get(ctx context.Context, id, trainerID string) (*models.TrainingSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.TrainerID != trainerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another trainer")
	}
	return session, nil
}

// Schedule books a new session, rejecting overlapping slots for the trainer.
func (s *ScheduleService) Schedule(ctx context.Context, trainerID string, req ScheduleSessionRequest) (*models.TrainingSession, error) {
	if err := s.validateSlot(ctx, trainerID, req, ""); err != nil {
		return nil, err
	}

	session := &models.TrainingSession{
		TrainerID: trainerID,
		ClientID:  req.ClientID,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		Status:    models.SessionScheduled,
		Location:  req.Location,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.notify(ctx, session, "Session scheduled")
	return session, nil
}

// Reschedule moves an existing session to a new slot.
func (s *ScheduleService) Reschedule(ctx context.Context, id, trainerID string, req ScheduleSessionRequest) (*models.TrainingSession, error) {
	session, err := s.Get(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only scheduled sessions can be moved")
	}
	if err := s.validateSlot(ctx, trainerID, req, id); err != nil {
		return nil, err
	}

	session.ClientID = req.ClientID
	session.StartsAt = req.StartsAt.UTC()
	session.EndsAt = req.EndsAt.UTC()
	session.Location = req.Location
	session.Notes = req.Notes

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}

	s.notify(ctx, session, "Session rescheduled")
	return session, nil
}

// UpdateStatus transitions a session to a terminal state.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id, trainerID string, req UpdateSessionStatusRequest) (*models.TrainingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	session, err := s.Get(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	if !validTransition(session.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move session from %s to %s", session.Status, req.Status))
	}

	session.Status = req.Status
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	if req.Status == models.SessionCancelled {
		s.notify(ctx, session, "Session cancelled")
	}
	return session, nil
}

func (s *ScheduleService) validateSlot(ctx context.Context, trainerID string, req ScheduleSessionRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return appErrors.Clone(appErrors.ErrValidation, "session must end after it starts")
	}
	if req.StartsAt.Before(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "session cannot start in the past")
	}

	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if client.TrainerID != trainerID {
		return appErrors.Clone(appErrors.ErrForbidden, "client belongs to another trainer")
	}

	overlap, err := s.repo.HasOverlap(ctx, trainerID, req.StartsAt.UTC(), req.EndsAt.UTC(), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if overlap {
		return appErrors.Clone(appErrors.ErrConflict, "time slot overlaps an existing session")
	}
	return nil
}

func (s *ScheduleService) notify(ctx context.Context, session *models.TrainingSession, title string) {
	if s.notifier == nil {
		return
	}
	body := fmt.Sprintf("%s from %s to %s.", title,
		session.StartsAt.Format(time.RFC3339), session.EndsAt.Format(time.RFC3339))
	if err := s.notifier.Publish(ctx, session.TrainerID, models.NotificationSession, title, body); err != nil {
		s.logger.Warn("failed to publish session notification", zap.Error(err), zap.String("session_id", session.ID))
	}
}

// validTransition enforces the session lifecycle: scheduled sessions may move
// to any terminal state, terminal states are final.
func validTransition(from, to models.SessionStatus) bool {
	if from == to {
		return false
	}
	return from == models.SessionScheduled
}
