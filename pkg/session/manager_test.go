package session

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestManager(base time.Time) (*Manager, *MemoryStore, *State) {
	store := NewMemoryStore("localhost")
	store.now = fixedClock(base)
	state := NewState()
	state.now = fixedClock(base)
	mgr := NewManager(store, state)
	mgr.now = fixedClock(base)
	return mgr, store, state
}

func TestManagerHydratePopulatesEmptyState(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	expiresAt := base.Add(time.Hour).UnixMilli()
	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)

	mgr.Hydrate()

	assert.True(t, state.IsAuthenticated())
	assert.Equal(t, "access", state.AccessToken())
	assert.Equal(t, "refresh", state.RefreshToken())
	assert.Equal(t, expiresAt, state.ExpiresAt())
	// profile is never restored from the store
	assert.Nil(t, state.User())
}

func TestManagerHydrateRunsOnce(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	expiresAt := base.Add(time.Hour).UnixMilli()
	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)

	mgr.Hydrate()
	state.SetTokens("rotated", "rotated-refresh", 7200)

	// a second hydrate must not clobber the rotated tokens
	mgr.Hydrate()
	assert.Equal(t, "rotated", state.AccessToken())
}

func TestManagerHydratePurgesIncompleteStore(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	// refresh token and expiry missing

	mgr.Hydrate()

	assert.False(t, state.IsAuthenticated())
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerHydratePurgesExpiredSession(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	expiresAt := base.Add(-time.Minute).UnixMilli()
	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)

	mgr.Hydrate()

	assert.False(t, state.IsAuthenticated())
	assert.Empty(t, store.Read(KeyRefreshToken))
}

func TestManagerHydratePurgesSessionExpiringNow(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	// an expiry equal to the current instant counts as expired
	expiresAt := base.UnixMilli()
	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)

	mgr.Hydrate()

	assert.False(t, state.IsAuthenticated())
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerHydratePurgesSubSecondRemainder(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	// remaining lifetime is measured in whole seconds, so anything under a
	// second reads as zero and the session is discarded
	expiresAt := base.Add(500 * time.Millisecond).UnixMilli()
	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, strconv.FormatInt(expiresAt, 10), ExpiresAtTTLDays)

	mgr.Hydrate()

	assert.False(t, state.IsAuthenticated())
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerHydratePurgesMalformedExpiry(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	store.Write(KeyAccessToken, "access", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "refresh", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, "garbage", ExpiresAtTTLDays)

	mgr.Hydrate()

	assert.False(t, state.IsAuthenticated())
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerSyncBeforeHydrateIsNoop(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	state.SetTokens("access", "refresh", 3600)
	mgr.Sync()

	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerSyncWritesSession(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	mgr.Hydrate()
	state.SetTokens("access", "refresh", 3600)
	mgr.Sync()

	assert.Equal(t, "access", store.Read(KeyAccessToken))
	assert.Equal(t, "refresh", store.Read(KeyRefreshToken))
	assert.Equal(t, strconv.FormatInt(state.ExpiresAt(), 10), store.Read(KeyExpiresAt))
}

func TestManagerSyncPurgesOnLogout(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	mgr.Hydrate()
	state.SetTokens("access", "refresh", 3600)
	mgr.Sync()

	state.Logout()
	mgr.Sync()

	assert.Empty(t, store.Read(KeyAccessToken))
	assert.Empty(t, store.Read(KeyRefreshToken))
	assert.Empty(t, store.Read(KeyExpiresAt))
}

func TestManagerSyncEmptyStateEmptyStoreIsNoop(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, _ := newTestManager(base)

	mgr.Hydrate()
	mgr.Sync()

	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestManagerRoundTrip(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr, store, state := newTestManager(base)

	mgr.Hydrate()
	state.LoginSuccess("access", "refresh", 3600, User{ID: "u-1"})
	mgr.Sync()

	// a fresh process hydrates the same session back
	state2 := NewState()
	state2.now = fixedClock(base)
	mgr2 := NewManager(store, state2)
	mgr2.now = fixedClock(base)
	mgr2.Hydrate()

	assert.Equal(t, "access", state2.AccessToken())
	assert.Equal(t, "refresh", state2.RefreshToken())
	assert.Equal(t, state.ExpiresAt(), state2.ExpiresAt())
}
