package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportArchive keeps copies of generated exports (CSV rosters, meal plan
// PDFs) on disk so they can be re-downloaded through a signed link.
type ExportArchive struct {
	baseDir string
}

// NewExportArchive ensures the archive directory exists.
func NewExportArchive(baseDir string) (*ExportArchive, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &ExportArchive{baseDir: baseDir}, nil
}

// Save writes an export under the archive and returns its relative path.
func (a *ExportArchive) Save(relPath string, data []byte) (string, error) {
	path := a.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archived export: %w", err)
	}
	return relPath, nil
}

// Open returns a read-only handle for an archived export.
func (a *ExportArchive) Open(relPath string) (*os.File, error) {
	file, err := os.Open(a.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open archived export: %w", err)
	}
	return file, nil
}

// Remove deletes an archived export if present.
func (a *ExportArchive) Remove(relPath string) error {
	if err := os.Remove(a.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove archived export: %w", err)
	}
	return nil
}

// Sweep removes archived exports older than the retention window and
// returns the relative paths it deleted.
func (a *ExportArchive) Sweep(retention time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-retention)
	var deleted []string
	err := filepath.WalkDir(a.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(a.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep archive: %w", err)
	}
	return deleted, nil
}

func (a *ExportArchive) resolve(relPath string) string {
	return filepath.Join(a.baseDir, filepath.Clean("/"+relPath))
}
