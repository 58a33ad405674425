package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/pkg/config"
	"github.com/fitdesk/fitdesk-api/pkg/jobs"
)

const reminderTaskKind = "session-reminder"

type reminderSessionReader interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.TrainingSession, error)
	FindByID(ctx context.Context, id string) (*models.TrainingSession, error)
}

type reminderClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type reminderNotifier interface {
	Publish(ctx context.Context, userID string, kind models.NotificationKind, title, body string) error
}

type reminderMarker interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ReminderService publishes a notification to the trainer for each session
// starting within the configured lead window. A redis marker keyed by session
// keeps reminders to one per session.
type ReminderService struct {
	sessions reminderSessionReader
	clients  reminderClientReader
	notifier reminderNotifier
	marker   reminderMarker
	cfg      config.ReminderConfig
	logger   *zap.Logger

	pool *jobs.Pool
	stop context.CancelFunc
	now  func() time.Time
}

// NewReminderService wires the reminder dispatcher.
func NewReminderService(
	sessions reminderSessionReader,
	clients reminderClientReader,
	notifier reminderNotifier,
	marker reminderMarker,
	cfg config.ReminderConfig,
	logger *zap.Logger,
) *ReminderService {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ReminderService{
		sessions: sessions,
		clients:  clients,
		notifier: notifier,
		marker:   marker,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	s.pool = jobs.NewPool("reminders", s.dispatch, jobs.PoolConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the worker pool and the periodic scan.
func (s *ReminderService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.pool.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		s.Scan(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Scan(ctx)
			}
		}
	}()
}

// Stop halts the scan loop and drains the pool.
func (s *ReminderService) Stop() {
	if s.stop != nil {
		s.stop()
	}
	s.pool.Stop()
}

// Scan queues a reminder task for every session starting inside the lead
// window that has not been reminded yet.
func (s *ReminderService) Scan(ctx context.Context) {
	now := s.now().UTC()
	upcoming, err := s.sessions.ListStartingBetween(ctx, now, now.Add(s.cfg.Lead))
	if err != nil {
		s.logger.Warn("reminder scan failed", zap.Error(err))
		return
	}

	for _, session := range upcoming {
		claimed, err := s.marker.SetNX(ctx, reminderKey(session.ID), s.cfg.Lead+time.Hour)
		if err != nil {
			s.logger.Warn("reminder marker failed",
				zap.String("session_id", session.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		if err := s.pool.Submit(jobs.Task{ID: session.ID, Kind: reminderTaskKind}); err != nil {
			s.logger.Warn("reminder enqueue failed",
				zap.String("session_id", session.ID), zap.Error(err))
		}
	}
}

// dispatch resolves a queued task back to a session and notifies its trainer.
// Sessions cancelled after being queued are skipped silently.
func (s *ReminderService) dispatch(ctx context.Context, task jobs.Task) error {
	session, err := s.sessions.FindByID(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", task.ID, err)
	}
	if session.Status != models.SessionScheduled {
		return nil
	}

	clientName := "your client"
	if client, err := s.clients.FindByID(ctx, session.ClientID); err == nil {
		clientName = client.FullName
	}

	title := "Upcoming session"
	body := fmt.Sprintf("Session with %s at %s", clientName, session.StartsAt.Format("Mon Jan 2 15:04"))
	if err := s.notifier.Publish(ctx, session.TrainerID, models.NotificationSession, title, body); err != nil {
		return fmt.Errorf("publish reminder for session %s: %w", task.ID, err)
	}
	return nil
}

func reminderKey(sessionID string) string {
	return fmt.Sprintf("reminder:sent:%s", sessionID)
}
