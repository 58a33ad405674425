package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fitdesk/fitdesk-api/internal/models"
)

// PortalRepository provides database access for client portal PINs.
type PortalRepository struct {
	db *sqlx.DB
}

// NewPortalRepository creates a new instance of PortalRepository.
func NewPortalRepository(db *sqlx.DB) *PortalRepository {
	return &PortalRepository{db: db}
}

// Upsert stores or replaces the portal PIN for a client.
func (r *PortalRepository) Upsert(ctx context.Context, access *models.PortalAccess) error {
	now := time.Now().UTC()
	if access.CreatedAt.IsZero() {
		access.CreatedAt = now
	}
	access.UpdatedAt = now

	const query = `INSERT INTO portal_access (client_id, pin_hash, issued_by, created_at, updated_at)
		VALUES (:client_id, :pin_hash, :issued_by, :created_at, :updated_at)
		ON CONFLICT (client_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash, issued_by = EXCLUDED.issued_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, access); err != nil {
		return fmt.Errorf("upsert portal access: %w", err)
	}
	return nil
}

// FindByClientID returns the portal access record for a client.
func (r *PortalRepository) FindByClientID(ctx context.Context, clientID string) (*models.PortalAccess, error) {
	const query = `SELECT client_id, pin_hash, issued_by, created_at, updated_at FROM portal_access WHERE client_id = $1 LIMIT 1`
	var access models.PortalAccess
	if err := r.db.GetContext(ctx, &access, query, clientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find portal access: %w", err)
	}
	return &access, nil
}

// Delete removes the portal access record for a client.
func (r *PortalRepository) Delete(ctx context.Context, clientID string) error {
	const query = `DELETE FROM portal_access WHERE client_id = $1`
	if _, err := r.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("delete portal access: %w", err)
	}
	return nil
}
