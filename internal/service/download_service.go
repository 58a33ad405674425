package service

import (
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
	"github.com/fitdesk/fitdesk-api/pkg/storage"
)

// DownloadService archives generated exports and mints the signed links the
// download route honors.
type DownloadService struct {
	archive   *storage.ExportArchive
	signer    *storage.DownloadSigner
	retention time.Duration
	logger    *zap.Logger
}

// NewDownloadService wires the export archive and link signer.
func NewDownloadService(archive *storage.ExportArchive, signer *storage.DownloadSigner, retention time.Duration, logger *zap.Logger) *DownloadService {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadService{archive: archive, signer: signer, retention: retention, logger: logger}
}

// ArchiveAndSign stores the export under relPath and returns a signed link
// for it.
func (s *DownloadService) ArchiveAndSign(relPath string, data []byte) (*models.ExportLink, error) {
	if _, err := s.archive.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive export")
	}
	token, expiresAt, err := s.signer.Sign(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.ExportLink{
		Token:     token,
		URL:       "/api/v1/downloads/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a token and returns the archived file plus its base name.
// Invalid or expired tokens map to not-found so the route leaks nothing.
func (s *DownloadService) Open(token string) (*os.File, string, error) {
	relPath, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	file, err := s.archive.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	return file, path.Base(relPath), nil
}

// Sweep drops archived exports past the retention window.
func (s *DownloadService) Sweep() {
	deleted, err := s.archive.Sweep(s.retention)
	if err != nil {
		s.logger.Warn("export archive sweep failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("export archive swept", zap.Int("removed", len(deleted)))
	}
}

// RosterPath builds the archive location for a trainer roster export.
func RosterPath(trainerID string, now time.Time) string {
	return fmt.Sprintf("clients/%s/roster-%s.csv", trainerID, now.UTC().Format("20060102-150405"))
}

// MealPlanPath builds the archive location for a meal plan export.
func MealPlanPath(planID string, now time.Time) string {
	return fmt.Sprintf("meal-plans/%s/%s.pdf", planID, now.UTC().Format("20060102-150405"))
}
