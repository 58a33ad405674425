package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/export"
)

type clientRepository interface {
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	FindByID(ctx context.Context, id string) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Deactivate(ctx context.Context, id string) error
}

// CreateClientRequest represents payload for creating clients.
type CreateClientRequest struct {
	FullName  string     `json:"full_name" validate:"required"`
	Email     *string    `json:"email" validate:"omitempty,email"`
	Phone     *string    `json:"phone" validate:"omitempty,max=50"`
	BirthDate *time.Time `json:"birth_date"`
	Goal      *string    `json:"goal" validate:"omitempty,max=500"`
	Notes     *string    `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateClientRequest represents payload for updating clients.
type UpdateClientRequest struct {
	FullName  string     `json:"full_name" validate:"required"`
	Email     *string    `json:"email" validate:"omitempty,email"`
	Phone     *string    `json:"phone" validate:"omitempty,max=50"`
	BirthDate *time.Time `json:"birth_date"`
	Goal      *string    `json:"goal" validate:"omitempty,max=500"`
	Notes     *string    `json:"notes" validate:"omitempty,max=2000"`
	Active    *bool      `json:"active"`
}

// ClientService orchestrates client roster operations.
type ClientService struct {
	repo      clientRepository
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClientService constructs a ClientService.
func NewClientService(repo clientRepository, csv *export.CSVExporter, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ClientService{repo: repo, csv: csv, validator: validate, logger: logger}
}

// List returns the trainer's clients plus pagination data.
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	clients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return clients, pagination, nil
}

// Get returns a client owned by the trainer.
func (s *ClientService) Get(ctx context.Context, id, trainerID string) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if client.TrainerID != trainerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "client belongs to another trainer")
	}
	return client, nil
}

// Create registers a new client for the trainer.
func (s *ClientService) Create(ctx context.Context, trainerID string, req CreateClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	client := &models.Client{
		TrainerID: trainerID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
		Goal:      req.Goal,
		Notes:     req.Notes,
		Active:    true,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create client")
	}
	return client, nil
}

// Update modifies a client owned by the trainer.
func (s *ClientService) Update(ctx context.Context, id, trainerID string, req UpdateClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	client, err := s.Get(ctx, id, trainerID)
	if err != nil {
		return nil, err
	}

	client.FullName = req.FullName
	client.Email = req.Email
	client.Phone = req.Phone
	client.BirthDate = req.BirthDate
	client.Goal = req.Goal
	client.Notes = req.Notes
	if req.Active != nil {
		client.Active = *req.Active
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update client")
	}
	return client, nil
}

// Deactivate soft deletes a client owned by the trainer.
func (s *ClientService) Deactivate(ctx context.Context, id, trainerID string) error {
	if _, err := s.Get(ctx, id, trainerID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate client")
	}
	return nil
}

// ExportCSV renders the trainer's full roster as CSV bytes.
func (s *ClientService) ExportCSV(ctx context.Context, trainerID string) ([]byte, error) {
	clients, _, err := s.repo.List(ctx, models.ClientFilter{TrainerID: trainerID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Phone", "Goal", "Active", "Since"},
	}
	for _, c := range clients {
		row := map[string]string{
			"Name":   c.FullName,
			"Active": boolLabel(c.Active),
			"Since":  c.CreatedAt.Format("2006-01-02"),
		}
		if c.Email != nil {
			row["Email"] = *c.Email
		}
		if c.Phone != nil {
			row["Phone"] = *c.Phone
		}
		if c.Goal != nil {
			row["Goal"] = *c.Goal
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render client export")
	}
	return data, nil
}

func boolLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
