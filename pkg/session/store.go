// Package session holds the client-side authentication session lifecycle:
// a durable token store modelled on browser cookies, the in-memory session
// state, and the hydrate/sync manager keeping the two aligned.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store field names.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "expires_at"
)

// Retention windows. The refresh token outlives the access token storage so a
// returning user can still mint a new session after the access token record
// has lapsed.
const (
	AccessTokenTTLDays  = 7
	ExpiresAtTTLDays    = 7
	RefreshTokenTTLDays = 30
)

// Store persists session fields as expiring records. Read never errors:
// missing or expired records read as empty.
type Store interface {
	Write(name, value string, ttlDays int)
	Read(name string) string
	Purge()
}

// record mirrors the attributes a browser cookie would carry.
type record struct {
	Value    string    `json:"value"`
	Expires  time.Time `json:"expires"`
	Path     string    `json:"path"`
	SameSite string    `json:"same_site"`
	Secure   bool      `json:"secure"`
}

func (r record) expired(now time.Time) bool {
	return !now.Before(r.Expires)
}

// isLocalHost reports whether host refers to local development, where the
// secure attribute is dropped so plain-http testing works.
func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

// FileStore is a JSON-file-backed Store, the durable equivalent of a
// browser's cookie jar.
type FileStore struct {
	mu      sync.Mutex
	path    string
	host    string
	now     func() time.Time
	records map[string]record
}

// NewFileStore opens (or creates) the store file at path. host decides the
// secure attribute on written records.
func NewFileStore(path, host string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		host:    host,
		now:     time.Now,
		records: make(map[string]record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// a corrupt store reads as empty rather than failing startup
	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	s.records = records
	return nil
}

func (s *FileStore) flush() {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}

// Write stores value under name with an absolute expiry ttlDays from now.
func (s *FileStore) Write(name, value string, ttlDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = record{
		Value:    value,
		Expires:  s.now().Add(time.Duration(ttlDays) * 24 * time.Hour),
		Path:     "/",
		SameSite: "Lax",
		Secure:   !isLocalHost(s.host),
	}
	s.flush()
}

// Read returns the stored value, or empty when absent or expired.
func (s *FileStore) Read(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok || rec.expired(s.now()) {
		return ""
	}
	return rec.Value
}

// Purge removes every record.
func (s *FileStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]record)
	s.flush()
}

// MemoryStore is an in-memory Store for tests and short-lived processes.
type MemoryStore struct {
	mu      sync.Mutex
	host    string
	now     func() time.Time
	records map[string]record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(host string) *MemoryStore {
	return &MemoryStore{
		host:    host,
		now:     time.Now,
		records: make(map[string]record),
	}
}

// Write stores value under name with an absolute expiry ttlDays from now.
func (s *MemoryStore) Write(name, value string, ttlDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = record{
		Value:    value,
		Expires:  s.now().Add(time.Duration(ttlDays) * 24 * time.Hour),
		Path:     "/",
		SameSite: "Lax",
		Secure:   !isLocalHost(s.host),
	}
}

// Read returns the stored value, or empty when absent or expired.
func (s *MemoryStore) Read(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok || rec.expired(s.now()) {
		return ""
	}
	return rec.Value
}

// Purge removes every record.
func (s *MemoryStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]record)
}
