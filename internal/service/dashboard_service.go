package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

type dashboardClientCounter interface {
	CountActiveByTrainer(ctx context.Context, trainerID string) (int, error)
}

type dashboardSessionCounter interface {
	CountInRange(ctx context.Context, trainerID string, from, to time.Time) (int, error)
}

type dashboardProgramCounter interface {
	CountActiveByTrainer(ctx context.Context, trainerID string) (int, error)
}

type dashboardNotificationCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const dashboardCacheTTL = time.Minute

// DashboardService aggregates headline counts for a trainer's dashboard.
type DashboardService struct {
	clients       dashboardClientCounter
	sessions      dashboardSessionCounter
	programs      dashboardProgramCounter
	notifications dashboardNotificationCounter
	cache         dashboardCache
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(
	clients dashboardClientCounter,
	sessions dashboardSessionCounter,
	programs dashboardProgramCounter,
	notifications dashboardNotificationCounter,
	cache dashboardCache,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		clients:       clients,
		sessions:      sessions,
		programs:      programs,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		now:           time.Now,
	}
}

// Summary returns the trainer's dashboard counts, served from cache when warm.
func (s *DashboardService) Summary(ctx context.Context, trainerID string) (*models.DashboardSummary, error) {
	key := dashboardKey(trainerID)
	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	summary := &models.DashboardSummary{}

	activeClients, err := s.clients.CountActiveByTrainer(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count clients")
	}
	summary.ActiveClients = activeClients

	weekStart, weekEnd := weekBounds(s.now().UTC())
	sessionsThisWeek, err := s.sessions.CountInRange(ctx, trainerID, weekStart, weekEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	summary.SessionsThisWeek = sessionsThisWeek

	activePrograms, err := s.programs.CountActiveByTrainer(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count programs")
	}
	summary.ActivePrograms = activePrograms

	unread, err := s.notifications.CountUnread(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	summary.UnreadNotifications = unread

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, dashboardCacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err), zap.String("trainer_id", trainerID))
		}
	}
	return summary, nil
}

// weekBounds returns the Monday 00:00 UTC start and the following Monday for
// the week containing ts.
func weekBounds(ts time.Time) (time.Time, time.Time) {
	weekday := int(ts.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7)
}

func dashboardKey(trainerID string) string {
	return fmt.Sprintf("dashboard:summary:%s", trainerID)
}
