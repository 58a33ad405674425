package session

import (
	"strconv"
	"sync"
	"time"
)

// Manager keeps the in-memory State and the durable Store aligned. Hydrate
// pulls a persisted session into memory once at startup; Sync pushes the
// current state back out after every meaningful change.
type Manager struct {
	store Store
	state *State

	mu          sync.Mutex
	initialized bool

	now func() time.Time
}

// NewManager pairs a state with its backing store.
func NewManager(store Store, state *State) *Manager {
	return &Manager{store: store, state: state, now: time.Now}
}

// State returns the managed session state.
func (m *Manager) State() *State {
	return m.state
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// Hydrate restores a persisted session into the state. It runs at most once;
// later calls are no-ops. A store missing any field, or holding an expiry in
// the past, is purged instead of restored. The user profile is never restored
// from the store; callers fetch it from the API after hydration.
func (m *Manager) Hydrate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return
	}
	m.initialized = true

	access := m.store.Read(KeyAccessToken)
	refresh := m.store.Read(KeyRefreshToken)
	rawExpiry := m.store.Read(KeyExpiresAt)

	if access == "" || refresh == "" || rawExpiry == "" {
		m.store.Purge()
		return
	}

	expiresAt, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		m.store.Purge()
		return
	}

	remaining := (expiresAt - m.now().UnixMilli()) / 1000
	if remaining <= 0 {
		m.store.Purge()
		return
	}

	m.state.SetTokens(access, refresh, remaining)
}

// Initialized reports whether Hydrate has run.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Sync mirrors the state into the store. It does nothing before Hydrate has
// run. A logged-in state writes all three fields with fresh TTLs; a logged-out
// state purges the store if it still holds an access token.
func (m *Manager) Sync() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}

	access := m.state.AccessToken()
	refresh := m.state.RefreshToken()
	expiresAt := m.state.ExpiresAt()

	if access != "" && refresh != "" && expiresAt != 0 {
		m.store.Write(KeyAccessToken, access, AccessTokenTTLDays)
		m.store.Write(KeyRefreshToken, refresh, RefreshTokenTTLDays)
		m.store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)
		return
	}

	if m.store.Read(KeyAccessToken) != "" {
		m.store.Purge()
	}
}
