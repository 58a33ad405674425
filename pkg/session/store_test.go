package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "localhost")
	require.NoError(t, err)

	store.Write(KeyAccessToken, "token-a", AccessTokenTTLDays)
	store.Write(KeyRefreshToken, "token-r", RefreshTokenTTLDays)
	store.Write(KeyExpiresAt, "1700000000000", ExpiresAtTTLDays)

	assert.Equal(t, "token-a", store.Read(KeyAccessToken))
	assert.Equal(t, "token-r", store.Read(KeyRefreshToken))
	assert.Equal(t, "1700000000000", store.Read(KeyExpiresAt))

	// values survive a reopen
	reopened, err := NewFileStore(path, "localhost")
	require.NoError(t, err)
	assert.Equal(t, "token-a", reopened.Read(KeyAccessToken))
	assert.Equal(t, "token-r", reopened.Read(KeyRefreshToken))
}

func TestFileStoreExpiredRecordReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "localhost")
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	store.Write(KeyAccessToken, "token-a", AccessTokenTTLDays)

	store.now = func() time.Time { return base.Add(AccessTokenTTLDays * 24 * time.Hour) }
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestFileStoreSecureAttribute(t *testing.T) {
	local, err := NewFileStore(filepath.Join(t.TempDir(), "s.json"), "localhost")
	require.NoError(t, err)
	local.Write(KeyAccessToken, "x", 1)
	assert.False(t, local.records[KeyAccessToken].Secure)

	remote, err := NewFileStore(filepath.Join(t.TempDir(), "s.json"), "app.fitdesk.io")
	require.NoError(t, err)
	remote.Write(KeyAccessToken, "x", 1)
	rec := remote.records[KeyAccessToken]
	assert.True(t, rec.Secure)
	assert.Equal(t, "/", rec.Path)
	assert.Equal(t, "Lax", rec.SameSite)
}

func TestFileStorePurge(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "s.json"), "localhost")
	require.NoError(t, err)

	store.Write(KeyAccessToken, "a", 1)
	store.Write(KeyRefreshToken, "r", 1)
	store.Purge()

	assert.Empty(t, store.Read(KeyAccessToken))
	assert.Empty(t, store.Read(KeyRefreshToken))
}

func TestFileStoreCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path, "localhost")
	require.NoError(t, err)
	assert.Empty(t, store.Read(KeyAccessToken))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore("localhost")

	store.Write(KeyAccessToken, "token-a", AccessTokenTTLDays)
	assert.Equal(t, "token-a", store.Read(KeyAccessToken))
	assert.Empty(t, store.Read(KeyRefreshToken))

	store.Purge()
	assert.Empty(t, store.Read(KeyAccessToken))
}
