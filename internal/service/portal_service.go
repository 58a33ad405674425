package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/pkg/config"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type portalRepository interface {
	Upsert(ctx context.Context, access *models.PortalAccess) error
	FindByClientID(ctx context.Context, clientID string) (*models.PortalAccess, error)
	Delete(ctx context.Context, clientID string) error
}

type portalClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type portalProgramReader interface {
	FindActiveByClient(ctx context.Context, clientID string) (*models.Program, error)
	ListEntries(ctx context.Context, programID string) ([]models.ProgramEntryDetail, error)
}

type portalMealPlanReader interface {
	FindActiveByClient(ctx context.Context, clientID string) (*models.MealPlan, error)
	ListMeals(ctx context.Context, planID string) ([]models.Meal, error)
}

type portalSessionReader interface {
	ListUpcomingByClient(ctx context.Context, clientID string, limit int) ([]models.TrainingSession, error)
}

type portalAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type portalAttemptCounter interface {
	Count(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string)
}

const portalUpcomingSessions = 5

// PortalService gates read-only client portal access behind a per-client PIN.
type PortalService struct {
	repo     portalRepository
	clients  portalClientReader
	programs portalProgramReader
	plans    portalMealPlanReader
	sessions portalSessionReader
	audit    portalAuditWriter
	attempts portalAttemptCounter
	cfg      config.PortalConfig
	logger   *zap.Logger
}

// NewPortalService constructs a PortalService.
func NewPortalService(
	repo portalRepository,
	clients portalClientReader,
	programs portalProgramReader,
	plans portalMealPlanReader,
	sessions portalSessionReader,
	audit portalAuditWriter,
	attempts portalAttemptCounter,
	cfg config.PortalConfig,
	logger *zap.Logger,
) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutTTL <= 0 {
		cfg.LockoutTTL = 15 * time.Minute
	}
	if cfg.PinMinLength <= 0 {
		cfg.PinMinLength = 4
	}
	return &PortalService{
		repo:     repo,
		clients:  clients,
		programs: programs,
		plans:    plans,
		sessions: sessions,
		audit:    audit,
		attempts: attempts,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetPIN issues or replaces the portal PIN for one of the trainer's clients.
func (s *PortalService) SetPIN(ctx context.Context, clientID, trainerID, pin string) error {
	if len(pin) < s.cfg.PinMinLength {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("pin must be at least %d characters", s.cfg.PinMinLength))
	}

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

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}

	access := &models.PortalAccess{
		ClientID: clientID,
		PINHash:  string(hash),
		IssuedBy: trainerID,
	}
	if err := s.repo.Upsert(ctx, access); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store portal access")
	}

	if s.attempts != nil {
		s.attempts.Delete(ctx, attemptKey(clientID))
	}
	return nil
}

// RevokePIN removes portal access for one of the trainer's clients.
func (s *PortalService) RevokePIN(ctx context.Context, clientID, trainerID string) error {
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
	if err := s.repo.Delete(ctx, clientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke portal access")
	}
	return nil
}

// Access verifies a client's PIN and returns their read-only portal view.
// Failed attempts are counted in redis; once the limit is hit the client is
// locked out until the counter expires.
func (s *PortalService) Access(ctx context.Context, clientID, pin, ipAddress, userAgent string) (*models.PortalView, error) {
	// The lockout gate runs before the PIN is even compared, so a correct
	// guess during the window is still rejected.
	if s.attempts != nil {
		count, err := s.attempts.Count(ctx, attemptKey(clientID))
		if err != nil {
			s.logger.Warn("failed to read portal attempt counter", zap.Error(err), zap.String("client_id", clientID))
		} else if count >= int64(s.cfg.MaxAttempts) {
			s.recordDenied(ctx, clientID, ipAddress, userAgent)
			return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, "")
		}
	}

	access, err := s.repo.FindByClientID(ctx, clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "portal access not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load portal access")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(access.PINHash), []byte(pin)); err != nil {
		s.recordDenied(ctx, clientID, ipAddress, userAgent)
		if s.attempts != nil {
			count, incErr := s.attempts.Increment(ctx, attemptKey(clientID), s.cfg.LockoutTTL)
			if incErr != nil {
				s.logger.Warn("failed to count portal attempt", zap.Error(incErr), zap.String("client_id", clientID))
			} else if count >= int64(s.cfg.MaxAttempts) {
				return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, "")
			}
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidPIN, "")
	}

	if s.attempts != nil {
		s.attempts.Delete(ctx, attemptKey(clientID))
	}

	view, err := s.buildView(ctx, clientID)
	if err != nil {
		return nil, err
	}

	s.recordAccess(ctx, clientID, ipAddress, userAgent)
	return view, nil
}

func (s *PortalService) buildView(ctx context.Context, clientID string) (*models.PortalView, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}

	view := &models.PortalView{Client: *client, UpcomingSessions: []models.TrainingSession{}}

	program, err := s.programs.FindActiveByClient(ctx, clientID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program != nil {
		entries, err := s.programs.ListEntries(ctx, program.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program entries")
		}
		view.Program = &models.ProgramDetail{Program: *program, Entries: entries}
	}

	plan, err := s.plans.FindActiveByClient(ctx, clientID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meal plan")
	}
	if plan != nil {
		meals, err := s.plans.ListMeals(ctx, plan.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meals")
		}
		view.MealPlan = &models.MealPlanDetail{MealPlan: *plan, Meals: meals}
	}

	sessions, err := s.sessions.ListUpcomingByClient(ctx, clientID, portalUpcomingSessions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if sessions != nil {
		view.UpcomingSessions = sessions
	}
	return view, nil
}

func (s *PortalService) recordAccess(ctx context.Context, clientID, ipAddress, userAgent string) {
	s.writeAudit(ctx, models.AuditActionPortalAccess, clientID, ipAddress, userAgent)
}

func (s *PortalService) recordDenied(ctx context.Context, clientID, ipAddress, userAgent string) {
	s.writeAudit(ctx, models.AuditActionPortalDenied, clientID, ipAddress, userAgent)
}

func (s *PortalService) writeAudit(ctx context.Context, action, clientID, ipAddress, userAgent string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "portal",
		ResourceID: &clientID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write portal audit log", zap.Error(err), zap.String("client_id", clientID))
	}
}

func attemptKey(clientID string) string {
	return fmt.Sprintf("portal:attempts:%s", clientID)
}
