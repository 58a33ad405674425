package models

import "time"

// ExportLink is a signed, expiring pointer to an archived export file.
type ExportLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
