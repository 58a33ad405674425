// Package client is the session-aware FitDesk API client. Every request
// carries the current bearer token; a 401 triggers exactly one token refresh
// followed by one retry of the original request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fitdesk/fitdesk-api/pkg/session"
)

const refreshPath = "/api/v1/auth/refresh"

// Client is the FitDesk API client.
type Client struct {
	baseURL    string
	manager    *session.Manager
	httpClient *http.Client
}

// New creates a new API client bound to a session manager.
func New(baseURL string, manager *session.Manager) *Client {
	return &Client{
		baseURL: baseURL,
		manager: manager,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the common response contract of the API.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// LoginRequest is the payload for authenticating a trainer.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for creating a trainer account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginResponse is the flattened session payload returned by login,
// register and refresh.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	Verified     bool   `json:"is_verified"`
}

// UserInfo is the authenticated profile snapshot.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Verified bool   `json:"is_verified"`
}

// ClientRecord is a coached client as returned by the API.
type ClientRecord struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Goal     *string `json:"goal,omitempty"`
	Active   bool    `json:"active"`
}

// DashboardSummary mirrors the trainer dashboard counts.
type DashboardSummary struct {
	ActiveClients       int `json:"active_clients"`
	SessionsThisWeek    int `json:"sessions_this_week"`
	ActivePrograms      int `json:"active_programs"`
	UnreadNotifications int `json:"unread_notifications"`
}

// Login authenticates and installs the session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var res LoginResponse
	if err := c.doBare(ctx, http.MethodPost, "/api/v1/auth/login", req, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	c.installSession(res)
	return &res, nil
}

// Register creates a trainer account and installs the resulting session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var res LoginResponse
	if err := c.doBare(ctx, http.MethodPost, "/api/v1/auth/register", req, &res); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	c.installSession(res)
	return &res, nil
}

// Logout revokes the refresh token server-side and clears the session. The
// local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.manager.State().RefreshToken()
	var callErr error
	if refresh != "" {
		callErr = c.Do(ctx, http.MethodPost, "/api/v1/auth/logout", map[string]string{"refresh_token": refresh}, nil)
	}
	c.manager.State().Logout()
	c.manager.Sync()
	if callErr != nil {
		return fmt.Errorf("client.Logout: %w", callErr)
	}
	return nil
}

// Me fetches the authenticated profile and caches it in the session state.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.Do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &info); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	c.manager.State().SetUser(session.User{
		ID:       info.ID,
		Email:    info.Email,
		Username: info.Username,
		FullName: info.FullName,
		Role:     info.Role,
		Verified: info.Verified,
	})
	return &info, nil
}

// ListClients fetches the trainer's roster.
func (c *Client) ListClients(ctx context.Context, search string, page, pageSize int) ([]ClientRecord, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var clients []ClientRecord
	if err := c.Do(ctx, http.MethodGet, "/api/v1/clients?"+params.Encode(), nil, &clients); err != nil {
		return nil, fmt.Errorf("client.ListClients: %w", err)
	}
	return clients, nil
}

// GetClient fetches one client by id.
func (c *Client) GetClient(ctx context.Context, id string) (*ClientRecord, error) {
	var record ClientRecord
	if err := c.Do(ctx, http.MethodGet, "/api/v1/clients/"+url.PathEscape(id), nil, &record); err != nil {
		return nil, fmt.Errorf("client.GetClient: %w", err)
	}
	return &record, nil
}

// GetDashboard fetches the trainer's dashboard summary.
func (c *Client) GetDashboard(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	if err := c.Do(ctx, http.MethodGet, "/api/v1/dashboard/summary", nil, &summary); err != nil {
		return nil, fmt.Errorf("client.GetDashboard: %w", err)
	}
	return &summary, nil
}

// Do performs an authenticated request. On a 401 it attempts exactly one
// token refresh and, when that succeeds, retries the original request exactly
// once with the new bearer. A failed refresh (or no refresh token) logs the
// session out and surfaces the original 401. A 403 is returned untouched.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}

	status, err := c.doOnce(ctx, method, path, payload, c.bearer(), out)
	if err == nil || status != http.StatusUnauthorized {
		return err
	}

	refresh := c.manager.State().RefreshToken()
	if refresh == "" {
		c.manager.State().Logout()
		c.manager.Sync()
		return err
	}

	if refreshErr := c.refreshTokens(ctx, refresh); refreshErr != nil {
		c.manager.State().Logout()
		c.manager.Sync()
		return err
	}

	_, retryErr := c.doOnce(ctx, method, path, payload, c.bearer(), out)
	return retryErr
}

// bearer returns the current access token, preferring live state and falling
// back to the durable store.
func (c *Client) bearer() string {
	if token := c.manager.State().AccessToken(); token != "" {
		return token
	}
	return c.manager.Store().Read(session.KeyAccessToken)
}

func (c *Client) installSession(res LoginResponse) {
	c.manager.State().LoginSuccess(res.AccessToken, res.RefreshToken, res.ExpiresIn, session.User{
		ID:       res.UserID,
		Email:    res.Email,
		Username: res.Username,
		FullName: res.FullName,
		Role:     res.Role,
		Verified: res.Verified,
	})
	c.manager.Sync()
}

// refreshTokens exchanges the refresh token on the bare transport, outside
// the retry wrapper.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) error {
	var res LoginResponse
	if err := c.doBare(ctx, http.MethodPost, refreshPath, map[string]string{"refresh_token": refreshToken}, &res); err != nil {
		return err
	}
	c.manager.State().SetTokens(res.AccessToken, res.RefreshToken, res.ExpiresIn)
	c.manager.Sync()
	return nil
}

// doBare performs a request without bearer injection or retry.
func (c *Client) doBare(ctx context.Context, method, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	_, err = c.doOnce(ctx, method, path, payload, "", out)
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, token string, out any) (int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Error != nil {
			return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Message: env.Error.Message}
		}
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode data: %w", err)
			}
		}
	}
	return resp.StatusCode, nil
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return data, nil
}
