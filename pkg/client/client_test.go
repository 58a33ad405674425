package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdesk/fitdesk-api/pkg/session"
)

func newTestClient(t *testing.T, srvURL string) (*Client, *session.Manager) {
	t.Helper()
	store := session.NewMemoryStore("localhost")
	state := session.NewState()
	mgr := session.NewManager(store, state)
	mgr.Hydrate()
	return New(srvURL, mgr), mgr
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": code, "message": message}})
}

func TestClientLoginInstallsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)
		writeData(w, http.StatusOK, LoginResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
			UserID:       "u-1",
			Email:        "trainer@example.com",
		})
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	res, err := c.Login(context.Background(), LoginRequest{Email: "trainer@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "access-1", res.AccessToken)

	assert.Equal(t, "access-1", mgr.State().AccessToken())
	assert.Equal(t, "u-1", mgr.State().User().ID)
	// sync pushed the session into the durable store
	assert.Equal(t, "access-1", mgr.Store().Read(session.KeyAccessToken))
	assert.Equal(t, "refresh-1", mgr.Store().Read(session.KeyRefreshToken))
}

func TestClientRefreshAndRetryOnce(t *testing.T) {
	var bearers []string
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshCalls++
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "refresh-old", payload["refresh_token"])
			writeData(w, http.StatusOK, LoginResponse{AccessToken: "access-new", RefreshToken: "refresh-new", ExpiresIn: 3600})
		case "/api/v1/auth/me":
			bearers = append(bearers, r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") != "Bearer access-new" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
				return
			}
			writeData(w, http.StatusOK, UserInfo{ID: "u-1", Email: "trainer@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.State().SetTokens("access-old", "refresh-old", 3600)

	info, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", info.ID)

	assert.Equal(t, 1, refreshCalls)
	require.Len(t, bearers, 2)
	assert.Equal(t, "Bearer access-old", bearers[0])
	assert.Equal(t, "Bearer access-new", bearers[1])
	assert.Equal(t, "access-new", mgr.State().AccessToken())
	assert.Equal(t, "refresh-new", mgr.State().RefreshToken())
}

func TestClientRetriedUnauthorizedStopsAfterOneRefresh(t *testing.T) {
	var meCalls, refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshCalls++
			writeData(w, http.StatusOK, LoginResponse{AccessToken: "access-new", RefreshToken: "refresh-new", ExpiresIn: 3600})
		case "/api/v1/auth/me":
			meCalls++
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.State().SetTokens("access-old", "refresh-old", 3600)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	// a 401 on the retried request surfaces as-is; no second refresh cycle
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 2, meCalls)
}

func TestClientRefreshFailureLogsOut(t *testing.T) {
	var meCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token is expired or revoked")
		case "/api/v1/auth/me":
			meCalls++
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.State().SetTokens("access-old", "refresh-old", 3600)
	mgr.Sync()

	_, err := c.Me(context.Background())
	require.Error(t, err)
	// the original 401 is surfaced, not the refresh failure
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 1, meCalls)

	// both the live state and the durable store are cleared
	assert.False(t, mgr.State().IsAuthenticated())
	assert.Empty(t, mgr.Store().Read(session.KeyAccessToken))
	assert.Empty(t, mgr.Store().Read(session.KeyRefreshToken))
}

func TestClientNoRefreshTokenLogsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEqual(t, "/api/v1/auth/refresh", r.URL.Path)
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	// access token only, no refresh token to fall back on
	mgr.Store().Write(session.KeyAccessToken, "stale", session.AccessTokenTTLDays)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, mgr.State().IsAuthenticated())
	assert.Empty(t, mgr.Store().Read(session.KeyAccessToken))
}

func TestClientForbiddenPassesThrough(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshCalls++
			writeData(w, http.StatusOK, LoginResponse{AccessToken: "x", RefreshToken: "y", ExpiresIn: 3600})
			return
		}
		writeError(w, http.StatusForbidden, "FORBIDDEN", "client belongs to another trainer")
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.State().SetTokens("access", "refresh", 3600)

	_, err := c.GetClient(context.Background(), "client-1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	// 403 never triggers refresh or logout
	assert.Equal(t, 0, refreshCalls)
	assert.True(t, mgr.State().IsAuthenticated())
}

func TestClientBearerFallsBackToStore(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		writeData(w, http.StatusOK, UserInfo{ID: "u-1"})
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.Store().Write(session.KeyAccessToken, "stored-token", session.AccessTokenTTLDays)

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored-token", seen)
}

func TestClientUnauthenticatedRequestGoesOutBare(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		writeData(w, http.StatusOK, []ClientRecord{})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.ListClients(context.Background(), "", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestClientLogoutClearsSessionEvenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	}))
	defer srv.Close()

	c, mgr := newTestClient(t, srv.URL)
	mgr.State().SetTokens("access", "refresh", 3600)
	mgr.Sync()

	err := c.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, mgr.State().IsAuthenticated())
	assert.Empty(t, mgr.Store().Read(session.KeyAccessToken))
}
