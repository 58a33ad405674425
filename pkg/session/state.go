package session

import (
	"sync"
	"time"
)

// ExpiryBuffer is subtracted from the stored expiry when deciding whether the
// access token still has useful life left.
const ExpiryBuffer = 5 * time.Minute

// User is the profile snapshot kept alongside the tokens.
type User struct {
	ID       string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Verified bool   `json:"is_verified"`
}

// State is the single authoritative in-memory session record. All mutations
// go through its methods; tokens and expiry are always set and cleared
// together.
type State struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    int64 // epoch milliseconds, 0 when unset
	user         *User
	now          func() time.Time
}

// NewState creates an empty session state.
func NewState() *State {
	return &State{now: time.Now}
}

// LoginSuccess installs tokens and the user snapshot after authentication.
// expiresIn is the access token lifetime in seconds.
func (s *State) LoginSuccess(accessToken, refreshToken string, expiresIn int64, user User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = s.now().UnixMilli() + expiresIn*1000
	u := user
	s.user = &u
}

// SetTokens replaces the token triple, leaving the user snapshot alone.
func (s *State) SetTokens(accessToken, refreshToken string, expiresIn int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = s.now().UnixMilli() + expiresIn*1000
}

// SetUser replaces the user snapshot, leaving tokens alone.
func (s *State) SetUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := user
	s.user = &u
}

// Logout clears the whole session.
func (s *State) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = 0
	s.user = nil
}

// ClearTokens drops the tokens but keeps the user snapshot.
func (s *State) ClearTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = 0
}

// AccessToken returns the current access token, empty when logged out.
func (s *State) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, empty when logged out.
func (s *State) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// ExpiresAt returns the absolute access token expiry in epoch milliseconds,
// 0 when no tokens are held.
func (s *State) ExpiresAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// User returns a copy of the user snapshot, nil when none is held.
func (s *State) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether an access token is held.
func (s *State) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

// Expired reports whether the access token is into its final five minutes or
// past expiry. No tokens counts as expired.
func (s *State) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiresAt == 0 {
		return true
	}
	return s.now().UnixMilli() >= s.expiresAt-ExpiryBuffer.Milliseconds()
}
