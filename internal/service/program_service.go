package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	ListEntries(ctx context.Context, programID string) ([]models.ProgramEntryDetail, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	ReplaceEntries(ctx context.Context, programID string, entries []models.ProgramEntry) error
	Deactivate(ctx context.Context, id string) error
}

type programClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type programNotifier interface {
	Publish(ctx context.Context, userID string, kind models.NotificationKind, title, body string) error
}

// ProgramEntryRequest is one prescribed exercise in a program payload.
type ProgramEntryRequest struct {
	ExerciseID  string  `json:"exercise_id" validate:"required,uuid4"`
	Day         int     `json:"day" validate:"required,min=1,max=7"`
	Position    int     `json:"position" validate:"min=0"`
	Sets        int     `json:"sets" validate:"required,min=1,max=20"`
	Reps        string  `json:"reps" validate:"required,max=50"`
	RestSeconds int     `json:"rest_seconds" validate:"min=0,max=3600"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
}

// CreateProgramRequest represents payload for creating or replacing a program.
type CreateProgramRequest struct {
	Name        string                `json:"name" validate:"required,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	ClientID    *string               `json:"client_id" validate:"omitempty,uuid4"`
	Weeks       int                   `json:"weeks" validate:"required,min=1,max=52"`
	Entries     []ProgramEntryRequest `json:"entries" validate:"omitempty,dive"`
}

// ProgramService orchestrates training program operations.
type ProgramService struct {
	repo      programRepository
	clients   programClientReader
	notifier  programNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepository, clients programClientReader, notifier programNotifier, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, clients: clients, notifier: notifier, validator: validate, logger: logger}
}

// List returns the trainer's programs plus pagination data.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return programs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a program with its entries, enforcing trainer ownership.
func (s *ProgramService) Get(ctx context.Context, id, trainerID string) (*models.ProgramDetail, error) {
	program, err := s.findOwned(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program entries")
	}
	return &models.ProgramDetail{Program: *program, Entries: entries}, nil
}

// Create builds a program with its entries for the trainer.
func (s *ProgramService) Create(ctx context.Context, trainerID string, req CreateProgramRequest) (*models.ProgramDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if err := s.checkClientOwnership(ctx, req.ClientID, trainerID); err != nil {
		return nil, err
	}

	program := &models.Program{
		TrainerID:   trainerID,
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Weeks:       req.Weeks,
		Active:      true,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	if err := s.repo.ReplaceEntries(ctx, program.ID, buildEntries(program.ID, req.Entries)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save program entries")
	}

	s.notifyAssignment(ctx, program)
	return s.Get(ctx, program.ID, trainerID)
}

// Update replaces a program's metadata and entries.
func (s *ProgramService) Update(ctx context.Context, id, trainerID string, req CreateProgramRequest) (*models.ProgramDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	program, err := s.findOwned(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkClientOwnership(ctx, req.ClientID, trainerID); err != nil {
		return nil, err
	}

	reassigned := !samePtr(program.ClientID, req.ClientID)

	program.Name = req.Name
	program.Description = req.Description
	program.ClientID = req.ClientID
	program.Weeks = req.Weeks

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	if err := s.repo.ReplaceEntries(ctx, program.ID, buildEntries(program.ID, req.Entries)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save program entries")
	}

	if reassigned {
		s.notifyAssignment(ctx, program)
	}
	return s.Get(ctx, program.ID, trainerID)
}

// Deactivate archives a program without deleting its history.
func (s *ProgramService) Deactivate(ctx context.Context, id, trainerID string) error {
	if _, err := s.findOwned(ctx, id, trainerID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate program")
	}
	return nil
}

func (s *ProgramService) findOwned(ctx context.Context, id, trainerID string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.TrainerID != trainerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "program belongs to another trainer")
	}
	return program, nil
}

func (s *ProgramService) checkClientOwnership(ctx context.Context, clientID *string, trainerID string) error {
	if clientID == nil {
		return nil
	}
	client, err := s.clients.FindByID(ctx, *clientID)
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

func (s *ProgramService) notifyAssignment(ctx context.Context, program *models.Program) {
	if s.notifier == nil || program.ClientID == nil {
		return
	}
	body := fmt.Sprintf("Training program %q was assigned to your plan.", program.Name)
	if err := s.notifier.Publish(ctx, program.TrainerID, models.NotificationProgram, "Program assigned", body); err != nil {
		s.logger.Warn("failed to publish program notification", zap.Error(err), zap.String("program_id", program.ID))
	}
}

func buildEntries(programID string, reqs []ProgramEntryRequest) []models.ProgramEntry {
	entries := make([]models.ProgramEntry, 0, len(reqs))
	for i, e := range reqs {
		pos := e.Position
		if pos == 0 {
			pos = i
		}
		entries = append(entries, models.ProgramEntry{
			ProgramID:   programID,
			ExerciseID:  e.ExerciseID,
			Day:         e.Day,
			Position:    pos,
			Sets:        e.Sets,
			Reps:        e.Reps,
			RestSeconds: e.RestSeconds,
			Notes:       e.Notes,
		})
	}
	return entries
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
